package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/diewo77/care-meals/gate"
	"github.com/diewo77/care-meals/internal/events"
	"github.com/diewo77/care-meals/internal/models"
	"github.com/diewo77/care-meals/internal/policy"
	"github.com/diewo77/care-meals/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type OrderService struct {
	db        *gorm.DB
	table     *gate.Table[*policy.Identity]
	publisher events.Publisher
	log       *zap.Logger
}

func NewOrderService(db *gorm.DB, table *gate.Table[*policy.Identity], pub events.Publisher, log *zap.Logger) *OrderService {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderService{db: db, table: table, publisher: pub, log: log}
}

// List returns one page of orders matching q, with residents loaded, and the total match count.
func (s *OrderService) List(ctx context.Context, who *policy.Identity, q OrderQuery) ([]models.Order, int64, error) {
	if err := s.table.Authorize(ctx, who, policy.CollectionOrders, gate.ActionRead, nil); err != nil {
		return nil, 0, err
	}
	q.Page = q.Page.Normalize()

	var total int64
	if err := q.apply(s.db.WithContext(ctx).Model(&models.Order{})).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	var orders []models.Order
	err := q.Page.apply(q.apply(s.db.WithContext(ctx))).
		Preload("Resident").
		Order("date, meal_type, id").
		Find(&orders).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

func (s *OrderService) Get(ctx context.Context, who *policy.Identity, id uint) (*models.Order, error) {
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.table.Authorize(ctx, who, policy.CollectionOrders, gate.ActionRead, o); err != nil {
		return nil, err
	}
	return o, nil
}

// Create inserts a new order built from in. Status defaults to pending.
func (s *OrderService) Create(ctx context.Context, who *policy.Identity, in OrderPatch) (*models.Order, error) {
	if err := s.table.Authorize(ctx, who, policy.CollectionOrders, gate.ActionCreate, nil); err != nil {
		return nil, err
	}
	o := &models.Order{Status: models.StatusPending}
	in.Apply(o)
	if err := s.validate(ctx, o); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Omit("Resident").Create(o).Error; err != nil {
		if isForeignKeyViolation(err) {
			return nil, invalid(validation.Violations{"resident": "not_found"})
		}
		return nil, fmt.Errorf("create order: %w", err)
	}
	s.log.Info("order created", zap.Uint("order_id", o.ID), zap.Uint("user_id", who.ID))
	return s.load(ctx, o.ID)
}

// Update applies the fields of patch that differ from the stored order.
// Every changed field must pass its field rule; a single denied field rejects the whole update.
func (s *OrderService) Update(ctx context.Context, who *policy.Identity, id uint, patch OrderPatch) (*models.Order, error) {
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	cols, fields := patch.changes(o)
	if err := s.table.AuthorizeFields(ctx, who, policy.CollectionOrders, gate.ActionUpdate, fields, o); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return o, nil
	}

	next := *o
	patch.Apply(&next)
	if err := s.validate(ctx, &next); err != nil {
		return nil, err
	}
	if err := s.write(ctx, o, cols); err != nil {
		return nil, err
	}
	if slices.Contains(fields, "status") {
		s.statusChanged(ctx, who, o, next.Status)
	}
	return s.load(ctx, id)
}

// ToggleStatus flips the status the caller saw (displayed) to the other value.
// When the stored status no longer equals displayed, nothing is written and
// ErrStatusConflict is returned.
func (s *OrderService) ToggleStatus(ctx context.Context, who *policy.Identity, id uint, displayed models.OrderStatus) (*models.Order, error) {
	if !displayed.Valid() {
		return nil, invalid(validation.Violations{"status": "invalid_option"})
	}
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.table.AuthorizeFields(ctx, who, policy.CollectionOrders, gate.ActionUpdate, []string{"status"}, o); err != nil {
		return nil, err
	}
	if o.Status != displayed {
		return nil, ErrStatusConflict
	}
	next := displayed.Toggle()
	if err := s.write(ctx, o, map[string]any{"status": next}); err != nil {
		return nil, err
	}
	s.statusChanged(ctx, who, o, next)
	return s.load(ctx, id)
}

func (s *OrderService) Delete(ctx context.Context, who *policy.Identity, id uint) error {
	o, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.table.Authorize(ctx, who, policy.CollectionOrders, gate.ActionDelete, o); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Delete(&models.Order{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete order %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.log.Info("order deleted", zap.Uint("order_id", id), zap.Uint("user_id", who.ID))
	return nil
}

// write issues a partial update of cols. A status change is conditional on the
// status read in o, so two concurrent flips cannot both succeed.
func (s *OrderService) write(ctx context.Context, o *models.Order, cols map[string]any) error {
	tx := s.db.WithContext(ctx).Model(&models.Order{ID: o.ID})
	if _, ok := cols["status"]; ok {
		tx = tx.Where("status = ?", o.Status)
	}
	res := tx.Updates(cols)
	if res.Error != nil {
		if isForeignKeyViolation(res.Error) {
			return invalid(validation.Violations{"resident": "not_found"})
		}
		return fmt.Errorf("update order %d: %w", o.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		if _, ok := cols["status"]; ok {
			return ErrStatusConflict
		}
		return ErrNotFound
	}
	return nil
}

func (s *OrderService) validate(ctx context.Context, o *models.Order) error {
	v := o.Validate()
	if _, bad := v["resident"]; !bad && o.ResidentID != 0 {
		var n int64
		if err := s.db.WithContext(ctx).Model(&models.Resident{}).Where("id = ?", o.ResidentID).Count(&n).Error; err != nil {
			return fmt.Errorf("check resident: %w", err)
		}
		if n == 0 {
			v["resident"] = "not_found"
		}
	}
	return invalid(v)
}

func (s *OrderService) statusChanged(ctx context.Context, who *policy.Identity, o *models.Order, to models.OrderStatus) {
	e := events.StatusChanged{
		OrderID:    o.ID,
		ResidentID: o.ResidentID,
		Date:       o.Date.UTC().Format(models.DayLayout),
		MealType:   o.MealType,
		From:       o.Status,
		To:         to,
		ChangedBy:  who.ID,
		ChangedAt:  time.Now().UTC(),
	}
	s.log.Info("order status changed",
		zap.Uint("order_id", o.ID),
		zap.String("from", string(o.Status)),
		zap.String("to", string(to)),
		zap.Uint("user_id", who.ID))
	if err := s.publisher.PublishStatusChanged(ctx, e); err != nil {
		s.log.Warn("publish status event failed", zap.Uint("order_id", o.ID), zap.Error(err))
	}
}

func (s *OrderService) load(ctx context.Context, id uint) (*models.Order, error) {
	var o models.Order
	err := s.db.WithContext(ctx).Preload("Resident").First(&o, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load order %d: %w", id, err)
	}
	return &o, nil
}
