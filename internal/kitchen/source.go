package kitchen

import (
	"context"
	"time"

	"github.com/diewo77/care-meals/internal/models"
	"github.com/diewo77/care-meals/internal/policy"
	"github.com/diewo77/care-meals/internal/services"
)

// OrderSource fetches all orders of one day and meal.
type OrderSource interface {
	Orders(ctx context.Context, day time.Time, meal models.MealType) ([]models.Order, error)
}

// SourceFunc adapts a function to OrderSource.
type SourceFunc func(ctx context.Context, day time.Time, meal models.MealType) ([]models.Order, error)

func (f SourceFunc) Orders(ctx context.Context, day time.Time, meal models.MealType) ([]models.Order, error) {
	return f(ctx, day, meal)
}

// ServiceSource reads orders in process through the order service, as Who.
type ServiceSource struct {
	Service *services.OrderService
	Who     *policy.Identity
}

func (s ServiceSource) Orders(ctx context.Context, day time.Time, meal models.MealType) ([]models.Order, error) {
	q := Query(day, meal)
	var all []models.Order
	for {
		page, total, err := s.Service.List(ctx, s.Who, q)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) == 0 || int64(len(all)) >= total {
			return all, nil
		}
		q.Page.Page++
	}
}
