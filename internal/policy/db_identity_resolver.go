package policy

import (
	"context"

	"github.com/diewo77/care-meals/internal/models"
	"gorm.io/gorm"
)

// DBIdentityResolver loads identities from the users table.
// It implements gate.Resolver[uint, *Identity].
type DBIdentityResolver struct {
	DB *gorm.DB
}

// NewDBIdentityResolver creates a new database-backed identity resolver.
func NewDBIdentityResolver(db *gorm.DB) *DBIdentityResolver {
	return &DBIdentityResolver{DB: db}
}

// Resolve looks up the user's role. A missing user yields gorm.ErrRecordNotFound.
func (r *DBIdentityResolver) Resolve(ctx context.Context, userID uint) (*Identity, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Select("id", "role").First(&user, userID).Error; err != nil {
		return nil, err
	}
	return &Identity{ID: user.ID, Role: user.Role}, nil
}
