// Package teaching defines the unit of knowledge stored and retrieved by the
// mentor system.
//
// A Teaching is immutable once created: corrections are modeled as new
// Teachings, never as in-place updates. Every Teaching lives in the knowledge
// store; a vector index entry for it is derived and repairable.
package teaching

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Scope is the visibility class of a Teaching.
type Scope string

const (
	// ScopeGlobal makes a Teaching visible to all queries.
	ScopeGlobal Scope = "global"

	// ScopeSession restricts a Teaching to queries carrying the same session id.
	ScopeSession Scope = "session"
)

// TagAIReply marks a Teaching that was written back from a generated answer.
const TagAIReply = "ai_reply"

// Teaching is a stored unit of knowledge.
type Teaching struct {
	// ID is a globally unique identifier assigned at creation.
	ID string `json:"id"`

	// Text is the natural-language content. Never empty.
	Text string `json:"text"`

	// Tags is a deduplicated set of short labels. May be empty.
	Tags []string `json:"tags"`

	// Scope is either ScopeGlobal or ScopeSession.
	Scope Scope `json:"scope"`

	// SessionID is set when Scope is ScopeSession and empty otherwise.
	SessionID string `json:"session_id,omitempty"`

	// CreatedAt is assigned at insertion. Recency fallback and reindex
	// ordering rely on insertion order being non-decreasing.
	CreatedAt time.Time `json:"created_at"`
}

// ValidationError reports a Teaching that violates a shape invariant.
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string {
	return "invalid teaching: " + e.Reason
}

// New creates a Teaching with a fresh id and timestamp. Tags are normalized
// before validation.
func New(text string, tags []string, scope Scope, sessionID string) (*Teaching, error) {
	t := &Teaching{
		ID:        uuid.NewString(),
		Text:      text,
		Tags:      NormalizeTags(tags),
		Scope:     scope,
		SessionID: sessionID,
		CreatedAt: time.Now().UTC(),
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}

	return t, nil
}

// Validate checks the Teaching's shape invariants.
func (t *Teaching) Validate() error {
	if strings.TrimSpace(t.Text) == "" {
		return ValidationError{Reason: "text must not be empty"}
	}

	switch t.Scope {
	case ScopeGlobal:
		if t.SessionID != "" {
			return ValidationError{Reason: "global teachings must not carry a session_id"}
		}
	case ScopeSession:
		if t.SessionID == "" {
			return ValidationError{Reason: "session teachings require a session_id"}
		}
	default:
		return ValidationError{Reason: fmt.Sprintf("unknown scope %q", t.Scope)}
	}

	return nil
}

// NormalizeTags trims whitespace, drops empties, and deduplicates while
// preserving first-occurrence order.
func NormalizeTags(tags []string) []string {
	normalized := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))

	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		normalized = append(normalized, tag)
	}

	return normalized
}
