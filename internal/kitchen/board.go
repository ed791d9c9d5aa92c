package kitchen

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/diewo77/care-meals/internal/models"
)

// ErrStale is returned by Board.Load when a newer load was started before this one finished.
var ErrStale = errors.New("kitchen: response superseded by a newer request")

// Board keeps the latest dashboard view. Loads may overlap; only the most
// recently started one is allowed to publish its result.
type Board struct {
	source OrderSource

	seq atomic.Uint64

	mu      sync.Mutex
	view    View
	viewSeq uint64
	loaded  bool
}

func NewBoard(source OrderSource) *Board {
	return &Board{source: source}
}

// Load fetches and aggregates the orders of day and meal. No lock is held
// while fetching. If another Load started in the meantime, the result is
// dropped and ErrStale returned; a failed fetch leaves the current view as is.
func (b *Board) Load(ctx context.Context, day time.Time, meal models.MealType) (View, error) {
	n := b.seq.Add(1)
	orders, err := b.source.Orders(ctx, day, meal)
	if n != b.seq.Load() {
		return View{}, ErrStale
	}
	if err != nil {
		return View{}, err
	}
	v := Build(day, meal, orders)

	b.mu.Lock()
	defer b.mu.Unlock()
	if n < b.viewSeq {
		return View{}, ErrStale
	}
	b.view, b.viewSeq, b.loaded = v, n, true
	return v, nil
}

// Current returns the last published view and whether there is one.
func (b *Board) Current() (View, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.view, b.loaded
}
