package testutils

import (
	"context"
	"fmt"

	"github.com/papercomputeco/mentor/pkg/generative"
	"github.com/papercomputeco/mentor/pkg/teaching"
)

// MockCompleter is a test completer that records calls and returns a fixed
// reply.
type MockCompleter struct {
	// Reply is returned by Complete.
	Reply string

	// Calls counts Complete invocations.
	Calls int

	// LastQuery records the query of the most recent call.
	LastQuery string

	// LastTeachings records the teachings of the most recent call.
	LastTeachings []teaching.Teaching

	// Fail causes Complete to return an error.
	Fail bool
}

func NewMockCompleter(reply string) *MockCompleter {
	return &MockCompleter{Reply: reply}
}

func (m *MockCompleter) Complete(_ context.Context, query string, teachings []teaching.Teaching) (string, error) {
	m.Calls++
	m.LastQuery = query
	m.LastTeachings = teachings

	if m.Fail {
		return "", fmt.Errorf("mock completion failure: %w", generative.ErrGeneration)
	}
	return m.Reply, nil
}

func (m *MockCompleter) Close() error {
	return nil
}
