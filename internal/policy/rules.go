package policy

import (
	"context"

	"github.com/diewo77/care-meals/gate"
	"github.com/diewo77/care-meals/internal/models"
)

// Collection names used as the first part of every policy key.
const (
	CollectionUsers     = "users"
	CollectionResidents = "residents"
	CollectionOrders    = "orders"
)

// Identity is the resolved requester: who they are and which role they hold.
type Identity struct {
	ID   uint
	Role models.Role
}

// Rule is a predicate over a resolved identity.
type Rule = gate.Predicate[*Identity]

func hasRole(role models.Role) Rule {
	return func(_ context.Context, id *Identity, _ any) bool {
		return id != nil && id.Role == role
	}
}

var (
	IsAdmin     = hasRole(models.RoleAdmin)
	IsCaregiver = hasRole(models.RoleCaregiver)
	IsKitchen   = hasRole(models.RoleKitchen)
)

// IsAuthenticated holds for any resolved identity.
var IsAuthenticated Rule = func(_ context.Context, id *Identity, _ any) bool { return id != nil && id.ID != 0 }

// IsAdminOrSelf holds for admins and for the user the target refers to.
// target may be a *models.User, a models.User or a user id.
func IsAdminOrSelf(ctx context.Context, id *Identity, target any) bool {
	if IsAdmin(ctx, id, target) {
		return true
	}
	uid, ok := targetUserID(target)
	return ok && id != nil && id.ID == uid
}

// NotKitchen holds for authenticated identities that are not kitchen staff.
var NotKitchen = gate.All(IsAuthenticated, gate.Not(IsKitchen))

func targetUserID(target any) (uint, bool) {
	switch t := target.(type) {
	case *models.User:
		if t == nil {
			return 0, false
		}
		return t.ID, true
	case models.User:
		return t.ID, true
	case uint:
		return t, true
	}
	return 0, false
}

// OrderDetailFields are the order fields the kitchen may not change.
var OrderDetailFields = []string{
	"date", "mealType", "resident", "highCalorie", "aversions", "notes", "breakfast", "lunch", "dinner",
}

// NewTable returns the access rules for users, residents and orders.
func NewTable() *gate.Table[*Identity] {
	t := gate.NewTable[*Identity]()

	t.Allow(gate.NewKey(CollectionUsers, gate.ActionRead), IsAdminOrSelf).
		Allow(gate.NewKey(CollectionUsers, gate.ActionCreate), IsAdmin).
		Allow(gate.NewKey(CollectionUsers, gate.ActionUpdate), IsAdminOrSelf).
		Allow(gate.NewKey(CollectionUsers, gate.ActionDelete), IsAdmin).
		Allow(gate.FieldKey(CollectionUsers, "role", gate.ActionUpdate), IsAdmin)

	t.Allow(gate.NewKey(CollectionResidents, gate.ActionRead), IsAuthenticated).
		Allow(gate.NewKey(CollectionResidents, gate.ActionCreate), IsAdmin).
		Allow(gate.NewKey(CollectionResidents, gate.ActionUpdate), IsAdmin).
		Allow(gate.NewKey(CollectionResidents, gate.ActionDelete), IsAdmin)

	t.Allow(gate.NewKey(CollectionOrders, gate.ActionRead), IsAuthenticated).
		Allow(gate.NewKey(CollectionOrders, gate.ActionCreate), gate.Any(IsAdmin, IsCaregiver)).
		Allow(gate.NewKey(CollectionOrders, gate.ActionUpdate), IsAuthenticated).
		Allow(gate.NewKey(CollectionOrders, gate.ActionDelete), IsAdmin).
		AllowFields(CollectionOrders, gate.ActionUpdate, NotKitchen, OrderDetailFields...)

	return t
}
