package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/diewo77/care-meals/gate"
	"github.com/diewo77/care-meals/internal/models"
	"github.com/diewo77/care-meals/internal/policy"
	"github.com/diewo77/care-meals/validation"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ResidentQuery filters the resident listing by name.
type ResidentQuery struct {
	NameLike string
	Page
}

// ParseResidentQuery reads where[name][like], limit and page.
func ParseResidentQuery(values url.Values) (ResidentQuery, validation.Violations) {
	var q ResidentQuery
	v := make(validation.Violations)
	parsePage(values, &q.Page, v)
	for key, vals := range values {
		m := whereParam.FindStringSubmatch(key)
		if m == nil {
			continue
		}
		switch {
		case m[1] != "name":
			v[key] = "unknown_field"
		case m[2] != OpLike && m[2] != OpEquals:
			v[key] = "unknown_operator"
		default:
			q.NameLike = strings.TrimSpace(vals[0])
		}
	}
	return q, v
}

// ResidentPatch is a partial resident update. Nil fields are left untouched.
type ResidentPatch struct {
	Name                *string   `json:"name"`
	Room                *string   `json:"room"`
	Table               *string   `json:"table"`
	Station             *string   `json:"station"`
	DietaryRestrictions *[]string `json:"dietaryRestrictions"`
	Aversions           *string   `json:"aversions"`
	Notes               *string   `json:"notes"`
}

func (p ResidentPatch) Apply(r *models.Resident) {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Room != nil {
		r.Room = *p.Room
	}
	if p.Table != nil {
		r.Table = *p.Table
	}
	if p.Station != nil {
		r.Station = *p.Station
	}
	if p.DietaryRestrictions != nil {
		r.DietaryRestrictions = datatypes.JSONSlice[string](*p.DietaryRestrictions)
	}
	if p.Aversions != nil {
		r.Aversions = *p.Aversions
	}
	if p.Notes != nil {
		r.Notes = *p.Notes
	}
}

type ResidentService struct {
	db    *gorm.DB
	table *gate.Table[*policy.Identity]
	log   *zap.Logger
}

func NewResidentService(db *gorm.DB, table *gate.Table[*policy.Identity], log *zap.Logger) *ResidentService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ResidentService{db: db, table: table, log: log}
}

// List returns residents sorted by name.
func (s *ResidentService) List(ctx context.Context, who *policy.Identity, q ResidentQuery) ([]models.Resident, int64, error) {
	if err := s.table.Authorize(ctx, who, policy.CollectionResidents, gate.ActionRead, nil); err != nil {
		return nil, 0, err
	}
	q.Page = q.Page.Normalize()
	scope := func(db *gorm.DB) *gorm.DB {
		if q.NameLike != "" {
			return db.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(q.NameLike)+"%")
		}
		return db
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Resident{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count residents: %w", err)
	}
	var residents []models.Resident
	err := s.db.WithContext(ctx).Scopes(scope, q.Page.apply).Order("name, id").Find(&residents).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list residents: %w", err)
	}
	return residents, total, nil
}

func (s *ResidentService) Get(ctx context.Context, who *policy.Identity, id uint) (*models.Resident, error) {
	if err := s.table.Authorize(ctx, who, policy.CollectionResidents, gate.ActionRead, nil); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

func (s *ResidentService) Create(ctx context.Context, who *policy.Identity, in ResidentPatch) (*models.Resident, error) {
	if err := s.table.Authorize(ctx, who, policy.CollectionResidents, gate.ActionCreate, nil); err != nil {
		return nil, err
	}
	r := &models.Resident{}
	in.Apply(r)
	if err := invalid(r.Validate()); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, fmt.Errorf("create resident: %w", err)
	}
	s.log.Info("resident created", zap.Uint("resident_id", r.ID), zap.Uint("user_id", who.ID))
	return r, nil
}

func (s *ResidentService) Update(ctx context.Context, who *policy.Identity, id uint, in ResidentPatch) (*models.Resident, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.table.Authorize(ctx, who, policy.CollectionResidents, gate.ActionUpdate, r); err != nil {
		return nil, err
	}
	in.Apply(r)
	if err := invalid(r.Validate()); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(r).Error; err != nil {
		return nil, fmt.Errorf("update resident %d: %w", id, err)
	}
	return r, nil
}

// Delete removes a resident. Residents that still have orders are refused with ErrInUse.
func (s *ResidentService) Delete(ctx context.Context, who *policy.Identity, id uint) error {
	r, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.table.Authorize(ctx, who, policy.CollectionResidents, gate.ActionDelete, r); err != nil {
		return err
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Order{}).Where("resident_id = ?", id).Count(&n).Error; err != nil {
		return fmt.Errorf("count orders of resident %d: %w", id, err)
	}
	if n > 0 {
		return ErrInUse
	}
	if err := s.db.WithContext(ctx).Delete(r).Error; err != nil {
		if isForeignKeyViolation(err) {
			return ErrInUse
		}
		return fmt.Errorf("delete resident %d: %w", id, err)
	}
	s.log.Info("resident deleted", zap.Uint("resident_id", id), zap.Uint("user_id", who.ID))
	return nil
}

func (s *ResidentService) load(ctx context.Context, id uint) (*models.Resident, error) {
	var r models.Resident
	err := s.db.WithContext(ctx).First(&r, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load resident %d: %w", id, err)
	}
	return &r, nil
}
