// Package engine implements the tiered retrieval-and-write-back
// orchestrator: teachings go in, queries come back answered from the
// vector index, the lexical fallback, or a generative collaborator.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/mentor/pkg/embeddings"
	"github.com/papercomputeco/mentor/pkg/eventstream"
	"github.com/papercomputeco/mentor/pkg/eventstream/nop"
	"github.com/papercomputeco/mentor/pkg/generative"
	"github.com/papercomputeco/mentor/pkg/store"
	"github.com/papercomputeco/mentor/pkg/teaching"
	"github.com/papercomputeco/mentor/pkg/vector"
)

const (
	// HighConfidence is the retrieval score above which a candidate is
	// returned verbatim without generative escalation.
	HighConfidence float32 = 0.70

	// GenerativeConfidence is the fixed confidence assigned to generated
	// answers. The collaborator reports no confidence of its own, so a
	// conservative constant stands in.
	GenerativeConfidence float32 = 0.65

	// WriteBackThreshold is the confidence above which a generated answer
	// is persisted as a new global teaching.
	WriteBackThreshold float32 = 0.60

	// DefaultTopK is the number of candidates gathered per query.
	DefaultTopK = 4

	// MaxTopK bounds caller-supplied top_k values.
	MaxTopK = 20

	// RecentWindow bounds the lexical fallback's store scan.
	RecentWindow = 50

	// PlaceholderReply is returned when no retrieval tier produces a
	// confident answer and no generative collaborator is configured.
	PlaceholderReply = "I don't have a confident answer for that yet."

	// searchOverfetch widens vector searches so scope filtering still
	// leaves topK visible candidates.
	searchOverfetch = 4
)

// ErrNoEmbeddingCapability is returned by Reindex when no vector index or
// embedder is configured.
var ErrNoEmbeddingCapability = errors.New("no embedding capability configured")

// Engine owns the retrieval pipeline's collaborators. The store is
// authoritative; the vector index is a derived cache repaired by Reindex.
type Engine struct {
	store     store.Driver
	embedder  embeddings.Embedder
	hosted    bool
	index     vector.Driver
	completer generative.Completer
	publisher eventstream.Publisher
	logger    *zap.Logger

	ensureMu sync.Mutex
	ensured  bool
}

// Opts configures a new Engine. Store, Embedder, and Logger are required.
// Index, Completer, and Publisher are optional; absent collaborators
// degrade the corresponding tier.
type Opts struct {
	Store    store.Driver
	Embedder embeddings.Embedder

	// Hosted reports whether the embedder calls an external model. Only a
	// hosted embedder enables the generative tier.
	Hosted bool

	Index     vector.Driver
	Completer generative.Completer
	Publisher eventstream.Publisher
	Logger    *zap.Logger
}

// New creates an Engine from the given collaborators.
func New(o Opts) (*Engine, error) {
	if o.Store == nil {
		return nil, fmt.Errorf("store driver is required")
	}
	if o.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if o.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	publisher := o.Publisher
	if publisher == nil {
		publisher = nop.NewPublisher()
	}

	return &Engine{
		store:     o.Store,
		embedder:  o.Embedder,
		hosted:    o.Hosted,
		index:     o.Index,
		completer: o.Completer,
		publisher: publisher,
		logger:    o.Logger,
	}, nil
}

// TeachRequest carries a new teaching to ingest.
type TeachRequest struct {
	Text      string
	Tags      []string
	Scope     teaching.Scope
	SessionID string
}

// Teach validates and durably stores a teaching, then best-effort indexes
// it and publishes a stored event. Only the store insert can fail the call.
func (e *Engine) Teach(ctx context.Context, req TeachRequest) (*teaching.Teaching, error) {
	t, err := teaching.New(req.Text, req.Tags, req.Scope, req.SessionID)
	if err != nil {
		return nil, err
	}

	if err := e.store.Insert(ctx, t); err != nil {
		return nil, fmt.Errorf("inserting teaching: %w", err)
	}

	e.indexTeaching(ctx, t)
	e.publishTeaching(ctx, t, eventstream.OriginTeach)

	return t, nil
}

// indexTeaching embeds and upserts a teaching into the vector index.
// Failures are logged and swallowed; the store already holds the row.
func (e *Engine) indexTeaching(ctx context.Context, t *teaching.Teaching) {
	if e.index == nil {
		return
	}

	embedding, err := e.embedder.Embed(ctx, t.Text)
	if err != nil {
		e.logger.Warn("embedding teaching failed, index skipped",
			zap.String("id", t.ID),
			zap.Error(err),
		)
		return
	}

	if err := e.ensureCollection(ctx, uint(len(embedding))); err != nil {
		e.logger.Warn("ensuring vector collection failed, index skipped",
			zap.String("id", t.ID),
			zap.Error(err),
		)
		return
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
		e.logger.Warn("vector upsert failed",
			zap.String("id", t.ID),
			zap.Error(err),
		)
	}
}

// ensureCollection creates the vector collection once per process.
// Teach and Respond run on concurrent request goroutines, so the
// check-then-create is serialized; a failed attempt leaves the flag
// unset and the next caller retries.
func (e *Engine) ensureCollection(ctx context.Context, dimensions uint) error {
	e.ensureMu.Lock()
	defer e.ensureMu.Unlock()

	if e.ensured {
		return nil
	}
	if err := e.index.EnsureCollection(ctx, dimensions); err != nil {
		return err
	}
	e.ensured = true
	return nil
}

// publishTeaching emits a teaching-stored event. Failures are logged and
// swallowed.
func (e *Engine) publishTeaching(ctx context.Context, t *teaching.Teaching, origin string) {
	event := &eventstream.TeachingStoredEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeTeachingStored,
		EventID:       uuid.NewString(),
		EmittedAt:     t.CreatedAt,
		Origin:        origin,
		Teaching:      *t,
	}

	if err := e.publisher.PublishTeaching(ctx, event); err != nil {
		e.logger.Warn("publishing teaching event failed",
			zap.String("id", t.ID),
			zap.String("origin", origin),
			zap.Error(err),
		)
	}
}

// Close releases all collaborators owned by the engine.
func (e *Engine) Close() error {
	var errs []error

	if e.completer != nil {
		if err := e.completer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing completer: %w", err))
		}
	}
	if e.index != nil {
		if err := e.index.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing vector index: %w", err))
		}
	}
	if err := e.embedder.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing embedder: %w", err))
	}
	if err := e.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing publisher: %w", err))
	}
	if err := e.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing store: %w", err))
	}

	return errors.Join(errs...)
}
