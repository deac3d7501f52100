// Package inmemory provides an in-memory knowledge store driver used for
// tests and zero-dependency default operation.
package inmemory

import (
	"context"
	"errors"
	"iter"
	"sort"
	"sync"

	"github.com/papercomputeco/mentor/pkg/store"
	"github.com/papercomputeco/mentor/pkg/teaching"
)

// Driver implements store.Driver using an in-memory slice.
type Driver struct {
	// mu guards teachings and byID.
	mu sync.RWMutex

	// teachings holds rows in insertion order, which is also created_at
	// ascending order since CreatedAt is assigned at creation.
	teachings []teaching.Teaching

	byID map[string]struct{}
}

// NewDriver creates a new in-memory knowledge store.
func NewDriver() *Driver {
	return &Driver{
		byID: make(map[string]struct{}),
	}
}

// Insert durably (for the process lifetime) stores a teaching.
func (d *Driver) Insert(_ context.Context, t *teaching.Teaching) error {
	if t == nil {
		return errors.New("cannot insert nil teaching")
	}
	if err := t.Validate(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.byID[t.ID]; ok {
		return store.ConflictError{ID: t.ID}
	}

	d.byID[t.ID] = struct{}{}
	d.teachings = append(d.teachings, *t)
	return nil
}

// Recent returns the newest visible teachings, created_at descending.
func (d *Driver) Recent(_ context.Context, f store.Filter, limit int) ([]teaching.Teaching, error) {
	if limit <= 0 {
		return nil, nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	visible := make([]teaching.Teaching, 0, limit)
	for _, t := range d.teachings {
		if visibleUnder(t, f) {
			visible = append(visible, t)
		}
	}

	// Stable sort keeps insertion order for identical timestamps.
	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].CreatedAt.After(visible[j].CreatedAt)
	})

	if len(visible) > limit {
		visible = visible[:limit]
	}
	return visible, nil
}

// All yields every teaching in created_at ascending order.
func (d *Driver) All(_ context.Context) iter.Seq2[teaching.Teaching, error] {
	return func(yield func(teaching.Teaching, error) bool) {
		d.mu.RLock()
		snapshot := make([]teaching.Teaching, len(d.teachings))
		copy(snapshot, d.teachings)
		d.mu.RUnlock()

		for _, t := range snapshot {
			if !yield(t, nil) {
				return
			}
		}
	}
}

// Ping always succeeds.
func (d *Driver) Ping(_ context.Context) error {
	return nil
}

// Close releases nothing.
func (d *Driver) Close() error {
	return nil
}

func visibleUnder(t teaching.Teaching, f store.Filter) bool {
	switch f.Visibility {
	case store.VisibilityGlobal:
		return t.Scope == teaching.ScopeGlobal
	case store.VisibilitySession:
		return t.Scope == teaching.ScopeSession && t.SessionID == f.SessionID
	case store.VisibilityAll:
		if t.Scope == teaching.ScopeGlobal {
			return true
		}
		return t.SessionID == f.SessionID
	default:
		return false
	}
}

var _ store.Driver = (*Driver)(nil)
