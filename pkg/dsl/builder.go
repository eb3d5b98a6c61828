package dsl

import (
	"fmt"

	"github.com/aretw0/switchback/pkg/adapters/memory"
	"github.com/aretw0/switchback/pkg/state"
)

// Builder manages tree construction.
type Builder struct {
	states map[string]*StateBuilder
	order  []string
}

// New creates a new tree builder.
func New() *Builder {
	return &Builder{
		states: make(map[string]*StateBuilder),
	}
}

// State creates a new state in the tree. If the state already exists,
// it returns the existing builder.
func (b *Builder) State(name string) *StateBuilder {
	if sb, ok := b.states[name]; ok {
		return sb
	}
	sb := &StateBuilder{
		def: state.State{
			Name: name,
		},
		builder: b,
	}
	b.states[name] = sb
	b.order = append(b.order, name)
	return sb
}

// States returns the built definitions in declaration order, for use
// with switchback.WithStates.
func (b *Builder) States() []state.State {
	defs := make([]state.State, 0, len(b.order))
	for _, name := range b.order {
		defs = append(defs, b.states[name].def)
	}
	return defs
}

// Build compiles the tree into a memory loader.
func (b *Builder) Build() (*memory.Loader, error) {
	loader, err := memory.NewLoader(b.States()...)
	if err != nil {
		return nil, fmt.Errorf("failed to build memory loader: %w", err)
	}
	return loader, nil
}
