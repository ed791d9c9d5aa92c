package handlers

import (
	"time"

	"github.com/diewo77/care-meals/internal/events"
	"github.com/diewo77/care-meals/internal/policy"
	"github.com/diewo77/care-meals/internal/services"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RouterConfig holds the configured services, handlers and authorization gate of the application.
type RouterConfig struct {
	AuthGate *policy.AuthGate

	Orders    *services.OrderService
	Residents *services.ResidentService
	Users     *services.UserService

	AuthHandler     *AuthHandler
	OrderHandler    *OrderHandler
	ResidentHandler *ResidentHandler
	UserHandler     *UserHandler
	KitchenHandler  *KitchenHandler
}

// NewRouterConfig wires the services and handlers on top of db.
// Identities are cached for cacheTTL; role changes and deletes evict them.
func NewRouterConfig(db *gorm.DB, pub events.Publisher, cacheTTL time.Duration, log *zap.Logger) *RouterConfig {
	if log == nil {
		log = zap.NewNop()
	}
	ag := policy.NewAuthGate(db, cacheTTL)

	orders := services.NewOrderService(db, ag.Table, pub, log.Named("orders"))
	residents := services.NewResidentService(db, ag.Table, log.Named("residents"))
	users := services.NewUserService(db, ag.Table, log.Named("users"))
	users.Invalidate = ag.InvalidateUser

	return &RouterConfig{
		AuthGate:        ag,
		Orders:          orders,
		Residents:       residents,
		Users:           users,
		AuthHandler:     NewAuthHandler(users, ag, log),
		OrderHandler:    NewOrderHandler(orders, residents, ag, log),
		ResidentHandler: NewResidentHandler(residents, ag, log),
		UserHandler:     NewUserHandler(users, ag, log),
		KitchenHandler:  NewKitchenHandler(orders, ag, log),
	}
}
