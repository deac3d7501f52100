package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/papercomputeco/mentor/pkg/eventstream"
)

// MockPublisher is a test publisher that records published events.
// PublishTeaching holds mu so the mock is safe under concurrent engine
// calls.
type MockPublisher struct {
	mu sync.Mutex

	// Events accumulates all published events.
	Events []*eventstream.TeachingStoredEvent

	// Fail causes PublishTeaching to return an error.
	Fail bool
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		Events: make([]*eventstream.TeachingStoredEvent, 0),
	}
}

func (m *MockPublisher) PublishTeaching(_ context.Context, event *eventstream.TeachingStoredEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return fmt.Errorf("mock publish failure")
	}
	m.Events = append(m.Events, event)
	return nil
}

func (m *MockPublisher) Close() error {
	return nil
}
