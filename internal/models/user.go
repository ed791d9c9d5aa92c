package models

import (
	"strings"
	"time"

	"github.com/diewo77/care-meals/validation"
	"golang.org/x/crypto/bcrypt"
)

// User represents an authenticated user in the system.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Email     string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name      string    `gorm:"size:255" json:"name,omitempty"`
	Password  string    `gorm:"size:255;not null" json:"-"` // Hashed, never exposed in JSON
	Role      Role      `gorm:"size:20;not null;default:'caregiver'" json:"role"`
}

// SetPassword stores the bcrypt hash of plain.
func (u *User) SetPassword(plain string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hash)
	return nil
}

// CheckPassword reports whether plain matches the stored hash.
func (u *User) CheckPassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(plain)) == nil
}

// Validate checks the user attributes; password presence is checked by callers on create.
func (u *User) Validate() validation.Violations {
	v := make(validation.Violations)
	u.Email = strings.TrimSpace(strings.ToLower(u.Email))
	validation.Email("email", u.Email, v)
	if u.Role == "" {
		u.Role = RoleCaregiver
	}
	validation.OneOf("role", u.Role, Roles, v)
	return v
}
