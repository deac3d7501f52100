package eventstream

import (
	"time"

	"github.com/papercomputeco/mentor/pkg/teaching"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTeachingStored is emitted after a teaching is persisted.
	EventTypeTeachingStored = "mentor.teaching.stored"

	// OriginTeach marks teachings ingested through the teach operation.
	OriginTeach = "teach"

	// OriginWriteBack marks teachings written back from generated replies.
	OriginWriteBack = "writeback"
)

// TeachingStoredEvent is a transport-neutral event payload for a
// persisted teaching.
type TeachingStoredEvent struct {
	SchemaVersion int               `json:"schema_version"`
	EventType     string            `json:"event_type"`
	EventID       string            `json:"event_id"`
	EmittedAt     time.Time         `json:"emitted_at"`
	Origin        string            `json:"origin"`
	Teaching      teaching.Teaching `json:"teaching"`
}
