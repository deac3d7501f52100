package nop

import (
	"context"

	"github.com/papercomputeco/mentor/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher used for tests and disabled mode.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishTeaching validates input and otherwise does nothing.
func (p *Publisher) PublishTeaching(_ context.Context, event *eventstream.TeachingStoredEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
