package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/mentor/pkg/vector"
)

// ReindexResult reports the outcome of a reindex run.
type ReindexResult struct {
	Upserted int `json:"upserted"`
	Failed   int `json:"failed"`
}

// Reindex rebuilds the vector index from the knowledge store: every
// teaching is re-embedded and upserted in ascending creation order. A
// single teaching's failure is counted, never fatal. Fails fast only when
// no vector index is configured.
func (e *Engine) Reindex(ctx context.Context) (*ReindexResult, error) {
	if e.index == nil {
		return nil, ErrNoEmbeddingCapability
	}

	result := &ReindexResult{}
	collectionReady := false

	for t, err := range e.store.All(ctx) {
		if err != nil {
			return nil, fmt.Errorf("streaming teachings: %w", err)
		}

		embedding, err := e.embedder.Embed(ctx, t.Text)
		if err != nil {
			result.Failed++
			e.logger.Warn("reindex embed failed",
				zap.String("id", t.ID),
				zap.Error(err),
			)
			continue
		}

		if !collectionReady {
			if err := e.ensureCollection(ctx, uint(len(embedding))); err != nil {
				return nil, fmt.Errorf("ensuring collection: %w", err)
			}
			collectionReady = true
		}

		err = e.index.Upsert(ctx, vector.Point{
			ID:        t.ID,
			Embedding: embedding,
			Payload: vector.Payload{
				Text:      t.Text,
				Tags:      t.Tags,
				Scope:     string(t.Scope),
				SessionID: t.SessionID,
				CreatedAt: t.CreatedAt,
			},
		})
		if err != nil {
			result.Failed++
			e.logger.Warn("reindex upsert failed",
				zap.String("id", t.ID),
				zap.Error(err),
			)
			continue
		}

		result.Upserted++
	}

	e.logger.Info("reindex complete",
		zap.Int("upserted", result.Upserted),
		zap.Int("failed", result.Failed),
	)

	return result, nil
}
