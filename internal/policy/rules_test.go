package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/diewo77/care-meals/gate"
	"github.com/diewo77/care-meals/internal/models"
)

var (
	admin     = &Identity{ID: 1, Role: models.RoleAdmin}
	caregiver = &Identity{ID: 2, Role: models.RoleCaregiver}
	kitchen   = &Identity{ID: 3, Role: models.RoleKitchen}
)

func TestTable_CollectionRules(t *testing.T) {
	tbl := NewTable()
	ctx := context.Background()

	tests := []struct {
		name       string
		who        *Identity
		collection string
		action     gate.Action
		target     any
		want       bool
	}{
		{"caregiver creates order", caregiver, CollectionOrders, gate.ActionCreate, nil, true},
		{"kitchen cannot create order", kitchen, CollectionOrders, gate.ActionCreate, nil, false},
		{"kitchen reads orders", kitchen, CollectionOrders, gate.ActionRead, nil, true},
		{"kitchen updates orders", kitchen, CollectionOrders, gate.ActionUpdate, nil, true},
		{"caregiver cannot delete order", caregiver, CollectionOrders, gate.ActionDelete, nil, false},
		{"admin deletes order", admin, CollectionOrders, gate.ActionDelete, nil, true},
		{"kitchen reads residents", kitchen, CollectionResidents, gate.ActionRead, nil, true},
		{"caregiver cannot create resident", caregiver, CollectionResidents, gate.ActionCreate, nil, false},
		{"admin updates resident", admin, CollectionResidents, gate.ActionUpdate, nil, true},
		{"user reads self", caregiver, CollectionUsers, gate.ActionRead, &models.User{ID: 2}, true},
		{"user cannot read other", caregiver, CollectionUsers, gate.ActionRead, &models.User{ID: 3}, false},
		{"user updates self by id", kitchen, CollectionUsers, gate.ActionUpdate, uint(3), true},
		{"admin reads anyone", admin, CollectionUsers, gate.ActionRead, &models.User{ID: 3}, true},
		{"caregiver cannot create user", caregiver, CollectionUsers, gate.ActionCreate, nil, false},
		{"caregiver cannot delete self", caregiver, CollectionUsers, gate.ActionDelete, &models.User{ID: 2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tbl.Can(ctx, tt.who, tt.collection, tt.action, tt.target); got != tt.want {
				t.Errorf("Can() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTable_KitchenFieldLock(t *testing.T) {
	tbl := NewTable()
	ctx := context.Background()

	if err := tbl.AuthorizeFields(ctx, kitchen, CollectionOrders, gate.ActionUpdate, []string{"status"}, nil); err != nil {
		t.Fatalf("kitchen should update status: %v", err)
	}
	for _, field := range []string{"resident", "date", "mealType", "breakfast"} {
		err := tbl.AuthorizeFields(ctx, kitchen, CollectionOrders, gate.ActionUpdate, []string{"status", field}, nil)
		if !errors.Is(err, gate.ErrUnauthorized) {
			t.Errorf("kitchen update of %s: expected ErrUnauthorized, got %v", field, err)
		}
	}
	if err := tbl.AuthorizeFields(ctx, caregiver, CollectionOrders, gate.ActionUpdate, OrderDetailFields, nil); err != nil {
		t.Errorf("caregiver should update details: %v", err)
	}
}

func TestTable_RoleFieldAdminOnly(t *testing.T) {
	tbl := NewTable()
	ctx := context.Background()
	self := &models.User{ID: caregiver.ID}

	if err := tbl.AuthorizeFields(ctx, caregiver, CollectionUsers, gate.ActionUpdate, []string{"name"}, self); err != nil {
		t.Errorf("self name update should pass: %v", err)
	}
	if err := tbl.AuthorizeFields(ctx, caregiver, CollectionUsers, gate.ActionUpdate, []string{"role"}, self); err == nil {
		t.Error("self role update should be denied")
	}
	if err := tbl.AuthorizeFields(ctx, admin, CollectionUsers, gate.ActionUpdate, []string{"role"}, self); err != nil {
		t.Errorf("admin role update should pass: %v", err)
	}
}

func TestTable_UnknownCollection(t *testing.T) {
	err := NewTable().Authorize(context.Background(), admin, "invoices", gate.ActionRead, nil)
	if !errors.Is(err, gate.ErrNoPolicyDefined) {
		t.Fatalf("expected ErrNoPolicyDefined, got %v", err)
	}
}

func TestPredicates(t *testing.T) {
	ctx := context.Background()
	if IsAuthenticated(ctx, nil, nil) {
		t.Error("nil identity must not be authenticated")
	}
	if !NotKitchen(ctx, caregiver, nil) || NotKitchen(ctx, kitchen, nil) || NotKitchen(ctx, nil, nil) {
		t.Error("NotKitchen returned unexpected result")
	}
	if IsAdminOrSelf(ctx, caregiver, "2") {
		t.Error("unsupported target type must not match")
	}
}
