package dsl

import (
	"github.com/aretw0/switchback/pkg/resolve"
	"github.com/aretw0/switchback/pkg/state"
)

// StateBuilder provides a fluent API for configuring a state.
type StateBuilder struct {
	def     state.State
	builder *Builder
}

// Child creates a state named under this one: Child("users") on "app"
// builds "app.users". The dotted name implies the parent relation.
func (s *StateBuilder) Child(suffix string) *StateBuilder {
	return s.builder.State(s.def.Name + "." + suffix)
}

// URL sets the URL fragment this state contributes, relative to its
// parent.
func (s *StateBuilder) URL(fragment string) *StateBuilder {
	s.def.URL = fragment
	return s
}

// Parent overrides the parent derived from the dotted name.
func (s *StateBuilder) Parent(name string) *StateBuilder {
	s.def.Parent = name
	return s
}

// Doc sets the state's markdown description.
func (s *StateBuilder) Doc(text string) *StateBuilder {
	s.def.Doc = text
	return s
}

// Param declares a required parameter.
func (s *StateBuilder) Param(name string) *StateBuilder {
	s.def.Params = append(s.def.Params, state.Param{Name: name})
	return s
}

// OptionalParam declares an optional parameter with a default value.
// Pass nil for no default.
func (s *StateBuilder) OptionalParam(name string, def any) *StateBuilder {
	s.def.Params = append(s.def.Params, state.Param{Name: name, Optional: true, Default: def})
	return s
}

// DynamicParam declares a required parameter whose value may change
// without the state exiting and re-entering.
func (s *StateBuilder) DynamicParam(name string) *StateBuilder {
	s.def.Params = append(s.def.Params, state.Param{Name: name, Dynamic: true})
	return s
}

// Resolve declares an eagerly resolved value provided by fn, depending
// on the given tokens.
func (s *StateBuilder) Resolve(token string, fn resolve.Func, deps ...string) *StateBuilder {
	s.def.Resolves = append(s.def.Resolves, resolve.Declaration{
		Token:  token,
		Deps:   deps,
		Func:   fn,
		Policy: resolve.PolicyEager,
	})
	return s
}

// ResolveLazy declares a value resolved only when a consumer asks for it.
func (s *StateBuilder) ResolveLazy(token string, fn resolve.Func, deps ...string) *StateBuilder {
	s.def.Resolves = append(s.def.Resolves, resolve.Declaration{
		Token:  token,
		Deps:   deps,
		Func:   fn,
		Policy: resolve.PolicyLazy,
	})
	return s
}

// Value declares a static resolvable.
func (s *StateBuilder) Value(token string, value any) *StateBuilder {
	s.def.Resolves = append(s.def.Resolves, resolve.Static(token, value))
	return s
}

// Data adds a free-form metadata entry to the state.
func (s *StateBuilder) Data(key string, value any) *StateBuilder {
	if s.def.Data == nil {
		s.def.Data = make(map[string]any)
	}
	s.def.Data[key] = value
	return s
}

// Build returns the underlying state definition.
// This is primarily used by the Builder, but exposed for advanced usage.
func (s *StateBuilder) Build() state.State {
	return s.def
}
