package gate

import (
	"context"
	"sync"
)

// Resolver turns a key (e.g. the session user id) into a subject the table can evaluate.
type Resolver[K comparable, V any] interface {
	Resolve(ctx context.Context, key K) (V, error)
}

// ResolverFunc adapts a plain function to the Resolver interface.
type ResolverFunc[K comparable, V any] func(ctx context.Context, key K) (V, error)

func (f ResolverFunc[K, V]) Resolve(ctx context.Context, key K) (V, error) { return f(ctx, key) }

// StaticResolver is a simple in-memory resolver.
// Useful for testing or static configuration.
type StaticResolver[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V
}

// NewStaticResolver creates an empty resolver.
func NewStaticResolver[K comparable, V any]() *StaticResolver[K, V] {
	return &StaticResolver[K, V]{items: make(map[K]V)}
}

// Set assigns a subject to a key.
func (r *StaticResolver[K, V]) Set(key K, v V) {
	r.mu.Lock()
	r.items[key] = v
	r.mu.Unlock()
}

// Resolve returns the subject for key, or the zero value when unknown.
func (r *StaticResolver[K, V]) Resolve(_ context.Context, key K) (V, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.items[key], nil
}
