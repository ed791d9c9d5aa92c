// Package gate provides a table-driven authorization checkpoint.
// Each entry of the table maps (collection, field-or-*, action) to a predicate
// over the requesting subject. Collection-level entries are evaluated first;
// field entries only narrow what an already allowed operation may touch.
// This package has no dependencies on domain models.
//
// The package uses generics to allow any subject type:
//   - Table[uint] for simple user ID based auth
//   - Table[*Identity] for a resolved identity carrying a role
package gate

import (
	"context"
	"sort"
)

// Table is the central authorization checkpoint.
// U is the subject type (must be comparable for the zero-value check).
type Table[U comparable] struct {
	rules       map[Key]Predicate[U]
	collections map[string]bool
}

// NewTable creates an empty Table ready to register rules.
func NewTable[U comparable]() *Table[U] {
	return &Table[U]{
		rules:       make(map[Key]Predicate[U]),
		collections: make(map[string]bool),
	}
}

// Allow registers the predicate for key, overwriting any existing entry.
// It returns the table so registrations can be chained.
func (t *Table[U]) Allow(key Key, p Predicate[U]) *Table[U] {
	t.rules[key] = p
	t.collections[key.Collection] = true
	return t
}

// AllowFields registers the same predicate for several fields of one collection.
func (t *Table[U]) AllowFields(collection string, action Action, p Predicate[U], fields ...string) *Table[U] {
	for _, f := range fields {
		t.Allow(FieldKey(collection, f, action), p)
	}
	return t
}

// Authorize checks the collection-level rule.
// Returns ErrUnauthorized for a zero-value subject, ErrNoPolicyDefined when the
// collection has no rules at all, and a *DeniedError when the rule is missing
// for the action or its predicate rejects.
func (t *Table[U]) Authorize(ctx context.Context, subject U, collection string, action Action, target any) error {
	var zero U
	if subject == zero {
		return ErrUnauthorized
	}
	if !t.collections[collection] {
		return ErrNoPolicyDefined
	}
	key := NewKey(collection, action)
	p, ok := t.rules[key]
	if !ok || !p(ctx, subject, target) {
		return &DeniedError{Key: key}
	}
	return nil
}

// AuthorizeFields checks the collection-level rule and then the field rule of
// every field in fields. Fields without their own rule inherit the collection
// decision. The first denial is returned; callers must not write anything
// unless the result is nil.
func (t *Table[U]) AuthorizeFields(ctx context.Context, subject U, collection string, action Action, fields []string, target any) error {
	if err := t.Authorize(ctx, subject, collection, action, target); err != nil {
		return err
	}
	for _, f := range fields {
		key := FieldKey(collection, f, action)
		p, ok := t.rules[key]
		if !ok {
			continue
		}
		if !p(ctx, subject, target) {
			return &DeniedError{Key: key}
		}
	}
	return nil
}

// Can is a convenience wrapper returning bool instead of error.
func (t *Table[U]) Can(ctx context.Context, subject U, collection string, action Action, target any) bool {
	return t.Authorize(ctx, subject, collection, action, target) == nil
}

// CanField reports whether subject may apply action to a single field.
func (t *Table[U]) CanField(ctx context.Context, subject U, collection, field string, action Action, target any) bool {
	return t.AuthorizeFields(ctx, subject, collection, action, []string{field}, target) == nil
}

// Keys returns the registered keys in a stable order.
func (t *Table[U]) Keys() []Key {
	keys := make([]Key, 0, len(t.rules))
	for k := range t.rules {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}
