package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/diewo77/care-meals/gate"
	"github.com/diewo77/care-meals/internal/models"
	"github.com/diewo77/care-meals/internal/policy"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserPatch is a partial user update. Password is stored hashed when set.
type UserPatch struct {
	Email    *string      `json:"email"`
	Name     *string      `json:"name"`
	Password *string      `json:"password"`
	Role     *models.Role `json:"role"`
}

type UserService struct {
	db    *gorm.DB
	table *gate.Table[*policy.Identity]
	log   *zap.Logger

	// Invalidate is called with the id of a user whose role changed or who was deleted.
	Invalidate func(userID uint)
}

func NewUserService(db *gorm.DB, table *gate.Table[*policy.Identity], log *zap.Logger) *UserService {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserService{db: db, table: table, log: log, Invalidate: func(uint) {}}
}

// Authenticate returns the user with email when password matches its hash.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !u.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}
	return &u, nil
}

// List returns all users to admins and only their own record to everyone else.
func (s *UserService) List(ctx context.Context, who *policy.Identity, p Page) ([]models.User, int64, error) {
	if who == nil {
		return nil, 0, gate.ErrUnauthorized
	}
	p = p.Normalize()
	tx := s.db.WithContext(ctx).Model(&models.User{})
	if !s.table.Can(ctx, who, policy.CollectionUsers, gate.ActionRead, nil) {
		tx = tx.Where("id = ?", who.ID)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	var users []models.User
	if err := p.apply(tx).Order("email").Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

func (s *UserService) Get(ctx context.Context, who *policy.Identity, id uint) (*models.User, error) {
	if err := s.table.Authorize(ctx, who, policy.CollectionUsers, gate.ActionRead, id); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

func (s *UserService) Create(ctx context.Context, who *policy.Identity, in UserPatch) (*models.User, error) {
	if err := s.table.Authorize(ctx, who, policy.CollectionUsers, gate.ActionCreate, nil); err != nil {
		return nil, err
	}
	u := &models.User{}
	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.Role != nil {
		u.Role = *in.Role
	}
	v := u.Validate()
	if in.Password == nil || *in.Password == "" {
		v["password"] = "required"
	}
	if err := invalid(v); err != nil {
		return nil, err
	}
	if err := u.SetPassword(*in.Password); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.log.Info("user created", zap.Uint("user_id", u.ID), zap.String("role", string(u.Role)))
	return u, nil
}

// Update changes the user record. Changing the role requires the role field rule.
func (s *UserService) Update(ctx context.Context, who *policy.Identity, id uint, in UserPatch) (*models.User, error) {
	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	var fields []string
	roleChanged := in.Role != nil && *in.Role != u.Role
	if roleChanged {
		fields = append(fields, "role")
	}
	if err := s.table.AuthorizeFields(ctx, who, policy.CollectionUsers, gate.ActionUpdate, fields, u); err != nil {
		return nil, err
	}

	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.Role != nil {
		u.Role = *in.Role
	}
	v := u.Validate()
	if in.Password != nil && *in.Password == "" {
		v["password"] = "required"
	}
	if err := invalid(v); err != nil {
		return nil, err
	}
	if in.Password != nil {
		if err := u.SetPassword(*in.Password); err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
	}
	if err := s.db.WithContext(ctx).Save(u).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}
	if roleChanged {
		s.Invalidate(id)
		s.log.Info("user role changed", zap.Uint("user_id", id), zap.String("role", string(u.Role)), zap.Uint("by", who.ID))
	}
	return u, nil
}

func (s *UserService) Delete(ctx context.Context, who *policy.Identity, id uint) error {
	if err := s.table.Authorize(ctx, who, policy.CollectionUsers, gate.ActionDelete, id); err != nil {
		return err
	}
	if who.ID == id {
		return ErrSelfDelete
	}
	res := s.db.WithContext(ctx).Delete(&models.User{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete user %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.Invalidate(id)
	s.log.Info("user deleted", zap.Uint("user_id", id), zap.Uint("by", who.ID))
	return nil
}

func (s *UserService) load(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", id, err)
	}
	return &u, nil
}
