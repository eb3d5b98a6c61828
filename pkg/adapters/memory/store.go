package memory

import (
	"context"
	"sync"

	"github.com/aretw0/switchback/pkg/ports"
)

// Store implements ports.SnapshotStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]ports.Snapshot
	mu   sync.RWMutex
}

// NewStore creates a new in-memory snapshot store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]ports.Snapshot),
	}
}

// Save persists the snapshot in memory.
func (s *Store) Save(ctx context.Context, sessionID string, snap ports.Snapshot) error {
	// Copy params to ensure isolation, similar to serialization.
	copied := snap
	copied.Params = make(map[string]any, len(snap.Params))
	for k, v := range snap.Params {
		copied.Params[k] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sessionID] = copied
	return nil
}

// Load retrieves the snapshot from memory.
func (s *Store) Load(ctx context.Context, sessionID string) (ports.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.data[sessionID]
	if !ok {
		return ports.Snapshot{}, ports.ErrSnapshotNotFound
	}

	// Copy on read so the caller can't mutate stored params.
	ret := snap
	ret.Params = make(map[string]any, len(snap.Params))
	for k, v := range snap.Params {
		ret.Params[k] = v
	}
	return ret, nil
}

// Delete removes the snapshot.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// List returns the session IDs holding a snapshot.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.data))
	for id := range s.data {
		sessions = append(sessions, id)
	}
	return sessions, nil
}
