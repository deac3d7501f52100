package eventstream

import "context"

// Publisher publishes teaching events to an event stream backend.
type Publisher interface {
	PublishTeaching(ctx context.Context, event *TeachingStoredEvent) error
	Close() error
}
