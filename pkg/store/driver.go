// Package store defines the knowledge store driver interface.
//
// The knowledge store is the single source of truth for Teachings. Vector
// index entries are derived from it and repairable via reindex, so every
// implementation must treat Insert as the durability boundary for a teach
// operation.
package store

import (
	"context"
	"iter"

	"github.com/papercomputeco/mentor/pkg/teaching"
)

// Visibility selects which scope classes a read considers.
type Visibility int

const (
	// VisibilityGlobal returns global teachings only.
	VisibilityGlobal Visibility = iota

	// VisibilitySession returns session teachings for the filter's session id.
	VisibilitySession

	// VisibilityAll returns global teachings plus session teachings for the
	// filter's session id.
	VisibilityAll
)

// Filter restricts reads to teachings visible under a scope class.
type Filter struct {
	Visibility Visibility

	// SessionID qualifies VisibilitySession and VisibilityAll.
	// Ignored for VisibilityGlobal.
	SessionID string
}

// Driver handles durable storage and retrieval of Teachings.
type Driver interface {
	// Insert durably persists a teaching. Returns teaching.ValidationError
	// for shape violations and ConflictError for duplicate ids.
	Insert(ctx context.Context, t *teaching.Teaching) error

	// Recent returns the most recently created teachings visible under the
	// filter, ordered by created_at descending, capped at limit.
	Recent(ctx context.Context, f Filter, limit int) ([]teaching.Teaching, error)

	// All yields every teaching ordered by created_at ascending. The
	// sequence is lazy and restartable; iteration stops early when the
	// yield func returns false. Used by reindex.
	All(ctx context.Context) iter.Seq2[teaching.Teaching, error]

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error

	// Close releases driver resources.
	Close() error
}
