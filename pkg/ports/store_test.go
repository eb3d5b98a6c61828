package ports_test

import (
	"context"
	"testing"

	"github.com/aretw0/switchback/pkg/ports"
)

// MockStore is an in-memory implementation of SnapshotStore for testing
// purposes. It validates the contract suite itself before any real
// adapter runs it.
type MockStore struct {
	data map[string]ports.Snapshot
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[string]ports.Snapshot),
	}
}

func (m *MockStore) Save(ctx context.Context, sessionID string, snap ports.Snapshot) error {
	// Copy params to simulate serialization.
	copied := snap
	copied.Params = make(map[string]any, len(snap.Params))
	for k, v := range snap.Params {
		copied.Params[k] = v
	}
	m.data[sessionID] = copied
	return nil
}

func (m *MockStore) Load(ctx context.Context, sessionID string) (ports.Snapshot, error) {
	snap, ok := m.data[sessionID]
	if !ok {
		return ports.Snapshot{}, ports.ErrSnapshotNotFound
	}
	return snap, nil
}

func (m *MockStore) Delete(ctx context.Context, sessionID string) error {
	delete(m.data, sessionID)
	return nil
}

func (m *MockStore) List(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func TestSnapshotStore_Contract(t *testing.T) {
	// Verifies that the MockStore complies with the SnapshotStore contract.
	// Real adapters (memory, redis) run the same suite.
	ports.RunSnapshotStoreContract(t, NewMockStore())
}
