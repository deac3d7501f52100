// Package vector provides interfaces and implementations for vector index
// storage and similarity search over embedded teachings.
//
// The vector index is a derived, repairable cache of the knowledge store:
// every point must correspond to a stored teaching with the same id, but the
// reverse need not hold since upserts are best-effort. Callers must treat
// every failure as recoverable by degrading to the lexical tier.
package vector

import (
	"context"
	"time"
)

// Payload is the teaching metadata stored alongside each vector so search
// results can be rendered without a store round trip.
type Payload struct {
	Text      string    `json:"text"`
	Tags      []string  `json:"tags"`
	Scope     string    `json:"scope"`
	SessionID string    `json:"session_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Point is a stored item with its embedding and payload.
type Point struct {
	// ID is the teaching id this point corresponds to.
	ID string

	// Embedding is the vector representation of the teaching text.
	Embedding []float32

	Payload Payload
}

// Result is a search hit with its cosine similarity score.
type Result struct {
	Point

	// Score is the cosine similarity (higher = more similar).
	Score float32
}

// Driver handles storage and retrieval of vector embeddings.
type Driver interface {
	// EnsureCollection creates the index collection if absent, with the
	// given vector size and cosine distance. Idempotent; safe to call on
	// every startup and before every write.
	EnsureCollection(ctx context.Context, dimensions uint) error

	// Upsert inserts or replaces the point for its id.
	Upsert(ctx context.Context, p Point) error

	// Search returns up to topK nearest points by cosine similarity.
	Search(ctx context.Context, embedding []float32, topK int) ([]Result, error)

	// Healthy reports whether the index is reachable.
	Healthy(ctx context.Context) error

	// Close releases any resources held by the driver.
	Close() error
}
