package state

import (
	"fmt"
	"strings"
	"sync"
)

// Tree is the registry of states. Registration is open until the first
// transition runs; the router freezes the tree at that point and the
// hierarchy becomes immutable.
type Tree struct {
	mu     sync.RWMutex
	states map[string]*State
	order  []string
	frozen bool
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{states: make(map[string]*State)}
}

// Register adds states to the tree. The batch is validated as a whole:
// states may reference parents registered earlier or appearing anywhere
// in the same batch, in any order. On error nothing is committed.
func (t *Tree) Register(defs ...State) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.frozen {
		return ErrFrozen
	}

	batch := make(map[string]*State, len(defs))
	for i := range defs {
		s := defs[i]
		if err := validateName(s.Name); err != nil {
			return err
		}
		if _, ok := t.states[s.Name]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicate, s.Name)
		}
		if _, ok := batch[s.Name]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicate, s.Name)
		}
		if err := validateDecls(&s); err != nil {
			return err
		}
		batch[s.Name] = &s
	}

	lookup := func(name string) (*State, bool) {
		if s, ok := t.states[name]; ok {
			return s, true
		}
		s, ok := batch[name]
		return s, ok
	}

	for name, s := range batch {
		visited := map[string]bool{name: true}
		for cur := s; cur.ParentName() != ""; {
			parent := cur.ParentName()
			if visited[parent] {
				return fmt.Errorf("%w: %q", ErrCyclicParent, name)
			}
			visited[parent] = true
			next, ok := lookup(parent)
			if !ok {
				return fmt.Errorf("state %q: %w: %q", name, ErrMissingParent, parent)
			}
			cur = next
		}
	}

	for _, s := range defs {
		t.order = append(t.order, s.Name)
	}
	for name, s := range batch {
		t.states[name] = s
	}
	return nil
}

func validateName(name string) error {
	if name == "" || strings.ContainsAny(name, "* ") ||
		strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func validateDecls(s *State) error {
	params := make(map[string]bool, len(s.Params))
	for _, p := range s.Params {
		if p.Name == "" {
			return fmt.Errorf("state %q: %w: empty param name", s.Name, ErrInvalidName)
		}
		if params[p.Name] {
			return fmt.Errorf("state %q: duplicate param %q", s.Name, p.Name)
		}
		params[p.Name] = true
	}
	tokens := make(map[string]bool, len(s.Resolves))
	for _, d := range s.Resolves {
		if d.Token == "" {
			return fmt.Errorf("state %q: %w: empty resolve token", s.Name, ErrInvalidName)
		}
		if tokens[d.Token] {
			return fmt.Errorf("state %q: duplicate resolve token %q", s.Name, d.Token)
		}
		tokens[d.Token] = true
	}
	return nil
}

// Get returns the registered state by name.
func (t *Tree) Get(name string) (*State, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.states[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return s, nil
}

// Has reports whether name is registered.
func (t *Tree) Has(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.states[name]
	return ok
}

// PathTo returns the root-to-leaf chain of states ending at name.
func (t *Tree) PathTo(name string) ([]*State, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s, ok := t.states[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	var chain []*State
	for {
		chain = append(chain, s)
		parent := s.ParentName()
		if parent == "" {
			break
		}
		s, ok = t.states[parent]
		if !ok {
			// Register guarantees parents exist; this would be a bug.
			return nil, fmt.Errorf("state %q: %w: %q", chain[len(chain)-1].Name, ErrMissingParent, parent)
		}
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// States returns all registered states in registration order.
func (t *Tree) States() []*State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*State, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.states[name])
	}
	return out
}

// Len reports the number of registered states.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.states)
}

// Freeze closes the tree for registration. Idempotent.
func (t *Tree) Freeze() {
	t.mu.Lock()
	t.frozen = true
	t.mu.Unlock()
}

// Frozen reports whether the tree is closed for registration.
func (t *Tree) Frozen() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.frozen
}
