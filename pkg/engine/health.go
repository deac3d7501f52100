package engine

import (
	"context"

	"go.uber.org/zap"
)

// HealthStatus reports each collaborator's availability independently.
type HealthStatus struct {
	// OK is true when the store is up and the vector index, if
	// configured, is reachable.
	OK bool `json:"ok"`

	// Store reports knowledge store reachability.
	Store bool `json:"store"`

	// Index reports vector index reachability. False when no index is
	// configured.
	Index bool `json:"index"`

	// Generative reports whether a generative collaborator is configured.
	Generative bool `json:"generative"`
}

// Health probes the store and vector index without failing the process
// when either is down.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Generative: e.completer != nil && e.hosted,
	}

	if err := e.store.Ping(ctx); err != nil {
		e.logger.Warn("store health check failed",
			zap.Error(err),
		)
	} else {
		status.Store = true
	}

	indexOK := true
	if e.index != nil {
		if err := e.index.Healthy(ctx); err != nil {
			e.logger.Warn("index health check failed",
				zap.Error(err),
			)
			indexOK = false
		} else {
			status.Index = true
		}
	}

	status.OK = status.Store && indexOK

	return status
}
