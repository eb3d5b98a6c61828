package memory

import (
	"context"
	"fmt"

	"github.com/aretw0/switchback/pkg/state"
)

// Loader implements ports.TreeLoader from an in-memory slice of state
// definitions. Useful for testing, embedded scenarios, or when you don't
// want to rely on the file system.
type Loader struct {
	defs []state.State
}

// NewLoader creates a loader over the provided definitions. Names are
// validated up front so a bad tree fails at construction, not at router
// build time.
func NewLoader(defs ...state.State) (*Loader, error) {
	for _, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("state missing name")
		}
	}
	return &Loader{defs: defs}, nil
}

// Load returns the definitions as given.
func (l *Loader) Load(ctx context.Context) ([]state.State, error) {
	out := make([]state.State, len(l.defs))
	copy(out, l.defs)
	return out, nil
}
