package services

import (
	"context"
	"testing"

	"github.com/diewo77/care-meals/internal/db"
	"github.com/diewo77/care-meals/internal/events"
	"github.com/diewo77/care-meals/internal/models"
	"github.com/diewo77/care-meals/internal/policy"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type recordingPublisher struct {
	events []events.StatusChanged
	err    error
}

func (p *recordingPublisher) PublishStatusChanged(_ context.Context, e events.StatusChanged) error {
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

type testEnv struct {
	db        *gorm.DB
	orders    *OrderService
	residents *ResidentService
	users     *UserService
	pub       *recordingPublisher

	admin, caregiver, kitchen *policy.Identity
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	d, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared&_fk=1"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(d))
	require.NoError(t, db.Seed(context.Background(), d, "test", zap.NewNop()))
	t.Cleanup(func() {
		if sqlDB, err := d.DB(); err == nil {
			sqlDB.Close()
		}
	})

	table := policy.NewTable()
	pub := &recordingPublisher{}
	env := &testEnv{
		db:        d,
		orders:    NewOrderService(d, table, pub, zap.NewNop()),
		residents: NewResidentService(d, table, zap.NewNop()),
		users:     NewUserService(d, table, zap.NewNop()),
		pub:       pub,
	}
	env.admin = env.identity(t, models.RoleAdmin)
	env.caregiver = env.identity(t, models.RoleCaregiver)
	env.kitchen = env.identity(t, models.RoleKitchen)
	return env
}

func (e *testEnv) identity(t *testing.T, role models.Role) *policy.Identity {
	t.Helper()
	var u models.User
	require.NoError(t, e.db.Where("role = ?", role).First(&u).Error)
	return &policy.Identity{ID: u.ID, Role: u.Role}
}

func (e *testEnv) firstOrder(t *testing.T, meal models.MealType) models.Order {
	t.Helper()
	var o models.Order
	require.NoError(t, e.db.Where("meal_type = ?", meal).Order("id").First(&o).Error)
	return o
}

func (e *testEnv) firstResident(t *testing.T) models.Resident {
	t.Helper()
	var r models.Resident
	require.NoError(t, e.db.Order("id").First(&r).Error)
	return r
}

func ptr[T any](v T) *T { return &v }
