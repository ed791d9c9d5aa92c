package models

import (
	"strings"
	"time"

	"github.com/diewo77/care-meals/validation"
	"gorm.io/datatypes"
)

// Resident is a person living in the facility who receives meals.
type Resident struct {
	ID                  uint                        `gorm:"primaryKey" json:"id"`
	CreatedAt           time.Time                   `json:"createdAt"`
	UpdatedAt           time.Time                   `json:"updatedAt"`
	Name                string                      `gorm:"size:255;not null;index" json:"name"`
	Room                string                      `gorm:"size:50" json:"room,omitempty"`
	Table               string                      `gorm:"column:table_no;size:50" json:"table,omitempty"`
	Station             string                      `gorm:"size:100" json:"station,omitempty"`
	DietaryRestrictions datatypes.JSONSlice[string] `json:"dietaryRestrictions,omitempty"`
	Aversions           string                      `gorm:"type:text" json:"aversions,omitempty"`
	Notes               string                      `gorm:"type:text" json:"notes,omitempty"`
}

func (r *Resident) Validate() validation.Violations {
	v := make(validation.Violations)
	r.Name = strings.TrimSpace(r.Name)
	validation.Required("name", r.Name, v)
	validation.SubsetOf("dietaryRestrictions", r.DietaryRestrictions, DietaryRestrictions, v)
	return v
}
