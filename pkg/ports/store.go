package ports

import (
	"context"
	"errors"
	"time"
)

// ErrSnapshotNotFound is returned by SnapshotStore.Load when no snapshot
// exists for the requested session.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot is a router position frozen for persistence: the state the
// router sat on, the parameter values it was bound with, and when it was
// taken. Resolved data is deliberately not part of it; a restore re-runs
// the resolve graph.
type Snapshot struct {
	State   string         `json:"state"`
	Params  map[string]any `json:"params,omitempty"`
	SavedAt time.Time      `json:"saved_at"`
}

// SnapshotStore defines the interface for persisting router positions.
// This allows navigation sessions to stop and resume across restarts and
// replicas.
type SnapshotStore interface {
	// Save persists the snapshot for a given session ID.
	Save(ctx context.Context, sessionID string, snap Snapshot) error

	// Load retrieves the snapshot for a given session ID.
	// Returns ErrSnapshotNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (Snapshot, error)

	// Delete removes the snapshot for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns the session IDs that currently have a snapshot.
	List(ctx context.Context) ([]string, error)
}
