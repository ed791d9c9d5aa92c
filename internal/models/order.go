package models

import (
	"strings"
	"time"

	"github.com/diewo77/care-meals/validation"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Order is one meal request for one resident on one day.
// Only the detail group matching MealType is meaningful; the others are kept but ignored.
type Order struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Date     time.Time `gorm:"index;not null" json:"date"`
	MealType MealType  `gorm:"size:20;index;not null" json:"mealType"`

	ResidentID uint      `gorm:"index;not null" json:"resident"`
	Resident   *Resident `gorm:"foreignKey:ResidentID;constraint:OnDelete:RESTRICT" json:"residentDoc,omitempty"`

	Status      OrderStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	HighCalorie bool        `json:"highCalorie"`
	Aversions   string      `gorm:"type:text" json:"aversions,omitempty"`
	Notes       string      `gorm:"type:text" json:"notes,omitempty"`

	Breakfast datatypes.JSONType[*BreakfastDetails] `json:"breakfast"`
	Lunch     datatypes.JSONType[*LunchDetails]     `json:"lunch"`
	Dinner    datatypes.JSONType[*DinnerDetails]    `json:"dinner"`
}

// BreakfastDetails holds the breakfast preferences of an order.
type BreakfastDetails struct {
	StandardBreakfast bool     `json:"standardBreakfast,omitempty" yaml:"standardBreakfast,omitempty"`
	Puree             bool     `json:"puree,omitempty" yaml:"puree,omitempty"`
	Bread             []string `json:"bread,omitempty" yaml:"bread,omitempty"`
	Preparation       string   `json:"preparation,omitempty" yaml:"preparation,omitempty"`
	Spreads           []string `json:"spreads,omitempty" yaml:"spreads,omitempty"`
	Beverages         []string `json:"beverages,omitempty" yaml:"beverages,omitempty"`
	Additions         []string `json:"additions,omitempty" yaml:"additions,omitempty"`
}

// LunchDetails holds the lunch preferences of an order.
type LunchDetails struct {
	PortionSize        string   `json:"portionSize,omitempty" yaml:"portionSize,omitempty"`
	Soup               bool     `json:"soup,omitempty" yaml:"soup,omitempty"`
	Dessert            bool     `json:"dessert,omitempty" yaml:"dessert,omitempty"`
	SpecialPreparation []string `json:"specialPreparation,omitempty" yaml:"specialPreparation,omitempty"`
	Restrictions       []string `json:"restrictions,omitempty" yaml:"restrictions,omitempty"`
}

// DinnerDetails holds the dinner preferences of an order.
type DinnerDetails struct {
	StandardDinner bool     `json:"standardDinner,omitempty" yaml:"standardDinner,omitempty"`
	Soup           bool     `json:"soup,omitempty" yaml:"soup,omitempty"`
	Puree          bool     `json:"puree,omitempty" yaml:"puree,omitempty"`
	NoFish         bool     `json:"noFish,omitempty" yaml:"noFish,omitempty"`
	Bread          []string `json:"bread,omitempty" yaml:"bread,omitempty"`
	Preparation    string   `json:"preparation,omitempty" yaml:"preparation,omitempty"`
	Spreads        []string `json:"spreads,omitempty" yaml:"spreads,omitempty"`
	Beverages      []string `json:"beverages,omitempty" yaml:"beverages,omitempty"`
	Additions      []string `json:"additions,omitempty" yaml:"additions,omitempty"`
}

// BreakfastData returns the breakfast group or nil.
func (o *Order) BreakfastData() *BreakfastDetails { return o.Breakfast.Data() }

// LunchData returns the lunch group or nil.
func (o *Order) LunchData() *LunchDetails { return o.Lunch.Data() }

// DinnerData returns the dinner group or nil.
func (o *Order) DinnerData() *DinnerDetails { return o.Dinner.Data() }

// SetBreakfast replaces the breakfast group.
func (o *Order) SetBreakfast(d *BreakfastDetails) { o.Breakfast = datatypes.NewJSONType(d) }

// SetLunch replaces the lunch group.
func (o *Order) SetLunch(d *LunchDetails) { o.Lunch = datatypes.NewJSONType(d) }

// SetDinner replaces the dinner group.
func (o *Order) SetDinner(d *DinnerDetails) { o.Dinner = datatypes.NewJSONType(d) }

// ShortID returns the last six characters of the id, as shown on kitchen notes.
func (o *Order) ShortID() string {
	s := strings.Repeat("0", 6) + uintString(o.ID)
	return s[len(s)-6:]
}

// BeforeSave keeps dates at day granularity.
func (o *Order) BeforeSave(_ *gorm.DB) error {
	if !o.Date.IsZero() {
		o.Date = Midnight(o.Date)
	}
	if o.Status == "" {
		o.Status = StatusPending
	}
	return nil
}

func (o *Order) Validate() validation.Violations {
	v := make(validation.Violations)
	if o.Date.IsZero() {
		v["date"] = "required"
	}
	validation.Required("mealType", string(o.MealType), v)
	validation.OneOf("mealType", o.MealType, MealTypes, v)
	validation.OneOf("status", o.Status, OrderStatuses, v)
	if o.ResidentID == 0 {
		v["resident"] = "required"
	}
	if b := o.BreakfastData(); b != nil {
		v.Merge("breakfast", b.Validate())
	}
	if l := o.LunchData(); l != nil {
		v.Merge("lunch", l.Validate())
	}
	if d := o.DinnerData(); d != nil {
		v.Merge("dinner", d.Validate())
	}
	return v
}

func (b *BreakfastDetails) Validate() validation.Violations {
	v := make(validation.Violations)
	validation.SubsetOf("bread", b.Bread, BreakfastBread, v)
	validation.OneOf("preparation", b.Preparation, Preparations, v)
	validation.SubsetOf("spreads", b.Spreads, BreakfastSpreads, v)
	validation.SubsetOf("beverages", b.Beverages, BreakfastBeverages, v)
	validation.SubsetOf("additions", b.Additions, BreakfastAdditions, v)
	return v
}

func (l *LunchDetails) Validate() validation.Violations {
	v := make(validation.Violations)
	validation.OneOf("portionSize", l.PortionSize, PortionSizes, v)
	validation.SubsetOf("specialPreparation", l.SpecialPreparation, SpecialPreparations, v)
	validation.SubsetOf("restrictions", l.Restrictions, LunchRestrictions, v)
	return v
}

func (d *DinnerDetails) Validate() validation.Violations {
	v := make(validation.Violations)
	validation.SubsetOf("bread", d.Bread, DinnerBread, v)
	validation.OneOf("preparation", d.Preparation, Preparations, v)
	validation.SubsetOf("spreads", d.Spreads, DinnerSpreads, v)
	validation.SubsetOf("beverages", d.Beverages, DinnerBeverages, v)
	validation.SubsetOf("additions", d.Additions, DinnerAdditions, v)
	return v
}
