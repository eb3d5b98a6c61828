package ports

import (
	"context"

	"github.com/aretw0/switchback/pkg/state"
)

// TreeLoader defines how the router retrieves state definitions.
// This allows the definition source (YAML files, Loam, Memory) to be decoupled.
type TreeLoader interface {
	// Load returns every state definition of the tree, parents before
	// children not required: registration sorts that out.
	Load(ctx context.Context) ([]state.State, error)
}

// Watchable defines an interface for loaders that can notify about backend changes.
// This is typically used for hot-reload or dev-mode functionality.
type Watchable interface {
	// Watch returns a channel that is signaled when the underlying definitions
	// change. It abstracts away the specific event details, signaling only that
	// a reload is required.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
