package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/mentor/pkg/eventstream"
	"github.com/papercomputeco/mentor/pkg/lexical"
	"github.com/papercomputeco/mentor/pkg/store"
	"github.com/papercomputeco/mentor/pkg/teaching"
)

// RespondRequest carries a query and its session context.
type RespondRequest struct {
	Input     string
	SessionID string

	// TopK bounds the number of sources returned. Zero means DefaultTopK;
	// values above MaxTopK are clamped.
	TopK int
}

// Source is a retrieved candidate attached to a reply.
type Source struct {
	ID    string   `json:"id"`
	Text  string   `json:"text"`
	Tags  []string `json:"tags"`
	Score float32  `json:"score"`
}

// RespondResult is a reply with the candidates that informed it.
type RespondResult struct {
	Reply   string   `json:"reply"`
	Sources []Source `json:"sources"`
}

// candidate pairs a Source with its creation time for tie-breaking.
type candidate struct {
	Source
	createdAt time.Time
}

// Respond answers a query through the tiered pipeline: vector retrieval,
// lexical fallback over the recent window, the confidence gate, generative
// escalation, and write-back of confident generated answers.
func (e *Engine) Respond(ctx context.Context, req RespondRequest) (*RespondResult, error) {
	if strings.TrimSpace(req.Input) == "" {
		return nil, teaching.ValidationError{Reason: "input must not be empty"}
	}

	topK := req.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}

	candidates, err := e.gatherCandidates(ctx, req.Input, req.SessionID, topK)
	if err != nil {
		return nil, err
	}

	sources := make([]Source, len(candidates))
	for i, c := range candidates {
		sources[i] = c.Source
	}

	// Confidence gate: trust the top candidate outright.
	if len(candidates) > 0 && candidates[0].Score >= HighConfidence {
		e.logger.Debug("confidence gate passed",
			zap.String("id", candidates[0].ID),
			zap.Float32("score", candidates[0].Score),
		)
		return &RespondResult{
			Reply:   candidates[0].Text,
			Sources: sources,
		}, nil
	}

	// Generative escalation. Requires a hosted embedder so the local
	// deterministic fallback never implies generative capability.
	if e.completer != nil && e.hosted {
		support := make([]teaching.Teaching, len(candidates))
		for i, c := range candidates {
			support[i] = teaching.Teaching{ID: c.ID, Text: c.Text, Tags: c.Tags}
		}

		aiText, err := e.completer.Complete(ctx, req.Input, support)
		if err != nil {
			e.logger.Warn("generative escalation failed",
				zap.Error(err),
			)
			return &RespondResult{Reply: PlaceholderReply, Sources: sources}, nil
		}

		if GenerativeConfidence >= WriteBackThreshold {
			e.writeBack(ctx, aiText)
		}

		return &RespondResult{Reply: aiText, Sources: sources}, nil
	}

	return &RespondResult{Reply: PlaceholderReply, Sources: sources}, nil
}

// gatherCandidates runs the vector tier when an index is configured and
// falls back to lexical scoring over the recent window when the vector
// tier is absent, fails, or yields nothing visible.
func (e *Engine) gatherCandidates(ctx context.Context, input, sessionID string, topK int) ([]candidate, error) {
	if e.index != nil {
		candidates, err := e.vectorCandidates(ctx, input, sessionID, topK)
		if err != nil {
			e.logger.Warn("vector tier degraded to lexical",
				zap.Error(err),
			)
		} else if len(candidates) > 0 {
			return candidates, nil
		}
	}

	return e.lexicalCandidates(ctx, input, sessionID, topK)
}

// vectorCandidates embeds the query, searches the index, and filters hits
// down to those visible to the session.
func (e *Engine) vectorCandidates(ctx context.Context, input, sessionID string, topK int) ([]candidate, error) {
	embedding, err := e.embedder.Embed(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := e.index.Search(ctx, embedding, topK*searchOverfetch)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	var candidates []candidate
	for _, r := range results {
		if !visibleTo(r.Point.Payload.Scope, r.Point.Payload.SessionID, sessionID) {
			continue
		}
		candidates = append(candidates, candidate{
			Source: Source{
				ID:    r.Point.ID,
				Text:  r.Point.Payload.Text,
				Tags:  r.Point.Payload.Tags,
				Score: r.Score,
			},
			createdAt: r.Point.Payload.CreatedAt,
		})
	}

	sortCandidates(candidates)
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	return candidates, nil
}

// lexicalCandidates scores the recent window of visible teachings against
// the query. A store failure here is fatal to the respond call.
func (e *Engine) lexicalCandidates(ctx context.Context, input, sessionID string, topK int) ([]candidate, error) {
	filter := store.Filter{Visibility: store.VisibilityGlobal}
	if sessionID != "" {
		filter = store.Filter{Visibility: store.VisibilityAll, SessionID: sessionID}
	}

	recent, err := e.store.Recent(ctx, filter, RecentWindow)
	if err != nil {
		return nil, fmt.Errorf("fetching recent teachings: %w", err)
	}

	var candidates []candidate
	for _, t := range recent {
		score := lexical.Score(input, t.Text)
		if score == 0 {
			continue
		}
		candidates = append(candidates, candidate{
			Source: Source{
				ID:    t.ID,
				Text:  t.Text,
				Tags:  t.Tags,
				Score: score,
			},
			createdAt: t.CreatedAt,
		})
	}

	sortCandidates(candidates)
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	return candidates, nil
}

// sortCandidates orders by score descending, ties broken most recent first.
func sortCandidates(candidates []candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].createdAt.After(candidates[j].createdAt)
	})
}

// visibleTo reports whether a point with the given scope and session id is
// visible to a query carrying sessionID.
func visibleTo(scope, pointSessionID, sessionID string) bool {
	switch teaching.Scope(scope) {
	case teaching.ScopeGlobal:
		return true
	case teaching.ScopeSession:
		return sessionID != "" && pointSessionID == sessionID
	default:
		return false
	}
}

// writeBack persists a generated answer as a new global teaching through
// the teach path. All failures are logged and swallowed; the reply has
// already been produced.
func (e *Engine) writeBack(ctx context.Context, aiText string) {
	t, err := teaching.New(aiText, []string{teaching.TagAIReply}, teaching.ScopeGlobal, "")
	if err != nil {
		e.logger.Warn("write-back validation failed",
			zap.Error(err),
		)
		return
	}

	if err := e.store.Insert(ctx, t); err != nil {
		e.logger.Warn("write-back insert failed",
			zap.String("id", t.ID),
			zap.Error(err),
		)
		return
	}

	e.indexTeaching(ctx, t)
	e.publishTeaching(ctx, t, eventstream.OriginWriteBack)

	e.logger.Debug("wrote back generated answer",
		zap.String("id", t.ID),
	)
}
