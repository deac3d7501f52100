package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/papercomputeco/mentor/pkg/vector"
)

// MockVectorDriver is a test vector driver that records upserts and returns
// configurable search results. Methods hold mu so the mock is safe under
// concurrent engine calls; specs read the fields directly after all
// goroutines have joined.
type MockVectorDriver struct {
	mu sync.Mutex

	// Points accumulates all points passed to Upsert, keyed by id.
	Points map[string]vector.Point

	// Results is returned by Search, truncated to topK.
	Results []vector.Result

	// EnsureCalls counts EnsureCollection invocations.
	EnsureCalls int

	// Dimensions records the last dimensions passed to EnsureCollection.
	Dimensions uint

	// FailEnsure causes EnsureCollection to return an error.
	FailEnsure bool

	// FailUpsert causes Upsert to return an error.
	FailUpsert bool

	// FailSearch causes Search to return an error.
	FailSearch bool
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{
		Points:  make(map[string]vector.Point),
		Results: make([]vector.Result, 0),
	}
}

func (m *MockVectorDriver) EnsureCollection(_ context.Context, dimensions uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailEnsure {
		return fmt.Errorf("mock ensure failure: %w", vector.ErrConnection)
	}
	m.EnsureCalls++
	m.Dimensions = dimensions
	return nil
}

func (m *MockVectorDriver) Upsert(_ context.Context, p vector.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailUpsert {
		return fmt.Errorf("mock upsert failure: %w", vector.ErrConnection)
	}
	m.Points[p.ID] = p
	return nil
}

func (m *MockVectorDriver) Search(_ context.Context, _ []float32, topK int) ([]vector.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailSearch {
		return nil, fmt.Errorf("mock search failure: %w", vector.ErrConnection)
	}
	if len(m.Results) < topK {
		return m.Results, nil
	}
	return m.Results[:topK], nil
}

func (m *MockVectorDriver) Healthy(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailSearch {
		return vector.ErrConnection
	}
	return nil
}

func (m *MockVectorDriver) Close() error {
	return nil
}
