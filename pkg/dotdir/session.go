package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const (
	sessionFile = "session.json"
)

// SessionState represents the persisted CLI session state.
// Consecutive mentor commands share the same session id so session-scoped
// teachings remain visible across invocations.
type SessionState struct {
	// SessionID identifies the current teaching session.
	SessionID string `json:"session_id"`

	// StartedAt is when this session was first created.
	StartedAt time.Time `json:"started_at"`
}

// LoadSessionState loads the session state from a target .mentor/session.json.
// Returns nil, nil if no session state exists.
// If overrideDir is non-empty, it is used instead of the default ~/.mentor/ location.
func (m *Manager) LoadSessionState(overrideDir string) (*SessionState, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, sessionFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading session state: %w", err)
	}

	state := &SessionState{}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parsing session state: %w", err)
	}

	return state, nil
}

// EnsureSession loads the current session state, creating and persisting a
// fresh one when none exists.
func (m *Manager) EnsureSession(overrideDir string) (*SessionState, error) {
	state, err := m.LoadSessionState(overrideDir)
	if err != nil {
		return nil, err
	}
	if state != nil {
		return state, nil
	}

	state = &SessionState{
		SessionID: uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}

	if err := m.SaveSession(state, overrideDir); err != nil {
		return nil, err
	}

	return state, nil
}

// SaveSession persists the session state to a target .mentor/session.json.
func (m *Manager) SaveSession(state *SessionState, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil session state")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session state: %w", err)
	}

	path := filepath.Join(dir, sessionFile)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing session state: %w", err)
	}

	return nil
}

// ClearSession removes the session state file so the next command starts a
// fresh session. Returns nil if the file doesn't exist (already cleared).
func (m *Manager) ClearSession(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	path := filepath.Join(dir, sessionFile)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing session state: %w", err)
	}

	return nil
}
