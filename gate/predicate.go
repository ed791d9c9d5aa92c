package gate

import "context"

// Predicate decides whether subject may act on target.
// target is nil for operations that have no specific record yet (create, list).
type Predicate[U any] func(ctx context.Context, subject U, target any) bool

// Any allows when at least one of the predicates allows.
func Any[U any](preds ...Predicate[U]) Predicate[U] {
	return func(ctx context.Context, subject U, target any) bool {
		for _, p := range preds {
			if p(ctx, subject, target) {
				return true
			}
		}
		return false
	}
}

// All allows only when every predicate allows.
func All[U any](preds ...Predicate[U]) Predicate[U] {
	return func(ctx context.Context, subject U, target any) bool {
		for _, p := range preds {
			if !p(ctx, subject, target) {
				return false
			}
		}
		return true
	}
}

// Not inverts a predicate.
func Not[U any](p Predicate[U]) Predicate[U] {
	return func(ctx context.Context, subject U, target any) bool {
		return !p(ctx, subject, target)
	}
}
