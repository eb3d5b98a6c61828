package state

import (
	"strings"

	"github.com/aretw0/switchback/pkg/resolve"
)

// Param declares a parameter a state accepts.
type Param struct {
	Name string

	// Dynamic parameters may change value without forcing the state to
	// exit and re-enter; the node is retained and flagged as reloaded.
	Dynamic bool

	// Optional parameters may be omitted from a transition's values.
	Optional bool

	// Default is used when an optional parameter is omitted.
	Default any
}

// State is one node of the navigation hierarchy. States are value types
// at registration; the Tree owns the registered copies.
type State struct {
	// Name uniquely identifies the state. Dotted names imply the parent:
	// "a.b" is a child of "a".
	Name string

	// Parent overrides the dotted-name derivation when set.
	Parent string

	// URL is the pattern segment this state contributes, relative to its
	// parent (e.g. "/users/:id"). Interpreted by the URL matcher port.
	URL string

	// Params declares the parameters this state accepts.
	Params []Param

	// Resolves declares the named asynchronous values that must be
	// available before this state can activate.
	Resolves []resolve.Declaration

	// Data holds free-form metadata for hooks and adapters.
	Data map[string]any

	// Doc is an optional markdown description, rendered by the CLI.
	Doc string
}

// ParentName returns the explicit parent if set, otherwise the parent
// implied by the dotted name. Top-level states return "".
func (s *State) ParentName() string {
	if s.Parent != "" {
		return s.Parent
	}
	if i := strings.LastIndex(s.Name, "."); i >= 0 {
		return s.Name[:i]
	}
	return ""
}

// Param looks up a parameter declaration by name.
func (s *State) Param(name string) (Param, bool) {
	for _, p := range s.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}
