package models

// Role governs authorization decisions for a user.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleCaregiver Role = "caregiver"
	RoleKitchen   Role = "kitchen"
)

// Roles lists every assignable role.
var Roles = []Role{RoleAdmin, RoleCaregiver, RoleKitchen}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCaregiver, RoleKitchen:
		return true
	}
	return false
}

// MealType selects which detail group of an order is active.
type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
)

var MealTypes = []MealType{MealBreakfast, MealLunch, MealDinner}

func (m MealType) Valid() bool {
	switch m {
	case MealBreakfast, MealLunch, MealDinner:
		return true
	}
	return false
}

// OrderStatus is the preparation state of an order.
type OrderStatus string

const (
	StatusPending  OrderStatus = "pending"
	StatusPrepared OrderStatus = "prepared"
)

var OrderStatuses = []OrderStatus{StatusPending, StatusPrepared}

func (s OrderStatus) Valid() bool {
	return s == StatusPending || s == StatusPrepared
}

// Toggle returns the other status value.
func (s OrderStatus) Toggle() OrderStatus {
	if s == StatusPrepared {
		return StatusPending
	}
	return StatusPrepared
}
