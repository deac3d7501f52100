// Package hashed implements a deterministic, dependency-free Embedder.
//
// Each token is hashed into a fixed number of dimensions and the resulting
// vector is L2-normalized. The projection is a cheap stand-in for a hosted
// embedding model: identical text always produces identical vectors, no
// network calls are made, and Embed never fails. Retrieval quality is lower
// than a real model, but the pipeline stays functional without external
// dependencies.
package hashed

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/papercomputeco/mentor/pkg/embeddings"
	"github.com/papercomputeco/mentor/pkg/lexical"
)

// DefaultDimensions is the default vector size for hashed embeddings.
const DefaultDimensions = 256

// Embedder projects text into a fixed-dimension vector via token hashing.
type Embedder struct {
	dimensions uint
}

// NewEmbedder creates a deterministic hashed embedder. A zero dimensions
// value falls back to DefaultDimensions.
func NewEmbedder(dimensions uint) *Embedder {
	if dimensions == 0 {
		dimensions = DefaultDimensions
	}
	return &Embedder{dimensions: dimensions}
}

// Dimensions returns the fixed vector size this embedder produces.
func (e *Embedder) Dimensions() uint {
	return e.dimensions
}

// Embed converts text into a deterministic vector embedding. It never
// returns an error.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dimensions)

	for _, token := range lexical.Tokenize(text) {
		h := fnv.New64a()
		h.Write([]byte(token))
		sum := h.Sum64()

		// Low bits pick the bucket, one high bit picks the sign. The sign
		// spreads mass so unrelated texts don't all accumulate positive
		// components in the same buckets.
		bucket := sum % uint64(e.dimensions)
		if sum&(1<<63) != 0 {
			vec[bucket]--
		} else {
			vec[bucket]++
		}
	}

	normalize(vec)
	return vec, nil
}

// Close releases nothing.
func (e *Embedder) Close() error {
	return nil
}

// normalize scales vec to unit length in place. Zero vectors are left as-is
// so empty text embeds to the origin rather than NaN.
func normalize(vec []float32) {
	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares == 0 {
		return
	}

	norm := float32(math.Sqrt(sumSquares))
	for i := range vec {
		vec[i] /= norm
	}
}

var _ embeddings.Embedder = (*Embedder)(nil)
