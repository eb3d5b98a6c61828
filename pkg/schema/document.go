package schema

import (
	"fmt"

	"github.com/aretw0/switchback/pkg/resolve"
	"github.com/aretw0/switchback/pkg/state"
)

// Document is one tree file: a named list of state specs.
// It uses "mapstructure" tags so adapters can decode it from loosely
// typed YAML/JSON maps as well as directly.
type Document struct {
	Name  string      `json:"name,omitempty" yaml:"name,omitempty" mapstructure:"name"`
	Specs []StateSpec `json:"states" yaml:"states" mapstructure:"states"`
}

// StateSpec declares one state of the hierarchy.
type StateSpec struct {
	Name   string `json:"name" yaml:"name" mapstructure:"name"`
	Parent string `json:"parent,omitempty" yaml:"parent,omitempty" mapstructure:"parent"`
	URL    string `json:"url,omitempty" yaml:"url,omitempty" mapstructure:"url"`
	Doc    string `json:"doc,omitempty" yaml:"doc,omitempty" mapstructure:"doc"`

	Params  []ParamSpec    `json:"params,omitempty" yaml:"params,omitempty" mapstructure:"params"`
	Resolve []ResolveSpec  `json:"resolve,omitempty" yaml:"resolve,omitempty" mapstructure:"resolve"`
	Data    map[string]any `json:"data,omitempty" yaml:"data,omitempty" mapstructure:"data"`
}

// ParamSpec declares a parameter a state accepts.
type ParamSpec struct {
	Name     string `json:"name" yaml:"name" mapstructure:"name"`
	Dynamic  bool   `json:"dynamic,omitempty" yaml:"dynamic,omitempty" mapstructure:"dynamic"`
	Optional bool   `json:"optional,omitempty" yaml:"optional,omitempty" mapstructure:"optional"`
	Default  any    `json:"default,omitempty" yaml:"default,omitempty" mapstructure:"default"`
}

// ResolveSpec declares a resolvable. Either Value carries a static
// value, or Provider names a registered provider function.
type ResolveSpec struct {
	Token    string   `json:"token" yaml:"token" mapstructure:"token"`
	Provider string   `json:"provider,omitempty" yaml:"provider,omitempty" mapstructure:"provider"`
	Value    any      `json:"value,omitempty" yaml:"value,omitempty" mapstructure:"value"`
	Deps     []string `json:"deps,omitempty" yaml:"deps,omitempty" mapstructure:"deps"`
	Policy   string   `json:"policy,omitempty" yaml:"policy,omitempty" mapstructure:"policy"`
}

// ProviderLookup resolves provider names referenced by resolve specs.
// pkg/registry implements it.
type ProviderLookup interface {
	Provider(name string) (resolve.Func, bool)
}

// States converts the document into state definitions, resolving
// provider references through lookup. The document should be validated
// first; this reports only what conversion itself trips over.
func (d *Document) States(lookup ProviderLookup) ([]state.State, error) {
	out := make([]state.State, 0, len(d.Specs))
	for _, spec := range d.Specs {
		st, err := spec.State(lookup)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// State converts a single spec. Loaders that keep one state per source
// document use this directly instead of going through a Document.
func (s StateSpec) State(lookup ProviderLookup) (state.State, error) {
	st := state.State{
		Name:   s.Name,
		Parent: s.Parent,
		URL:    s.URL,
		Doc:    s.Doc,
		Data:   s.Data,
	}
	for _, p := range s.Params {
		st.Params = append(st.Params, state.Param{
			Name:     p.Name,
			Dynamic:  p.Dynamic,
			Optional: p.Optional,
			Default:  p.Default,
		})
	}
	for _, r := range s.Resolve {
		decl, err := r.declaration(lookup)
		if err != nil {
			return state.State{}, fmt.Errorf("state %q: %w", s.Name, err)
		}
		st.Resolves = append(st.Resolves, decl)
	}
	return st, nil
}

func (r ResolveSpec) declaration(lookup ProviderLookup) (resolve.Declaration, error) {
	policy, err := parsePolicy(r.Policy)
	if err != nil {
		return resolve.Declaration{}, fmt.Errorf("resolve %q: %w", r.Token, err)
	}

	if r.Provider != "" {
		if lookup == nil {
			return resolve.Declaration{}, fmt.Errorf("resolve %q: provider %q referenced but no provider registry given", r.Token, r.Provider)
		}
		fn, ok := lookup.Provider(r.Provider)
		if !ok {
			return resolve.Declaration{}, fmt.Errorf("resolve %q: unknown provider %q", r.Token, r.Provider)
		}
		return resolve.Declaration{Token: r.Token, Deps: r.Deps, Func: fn, Policy: policy}, nil
	}

	decl := resolve.Static(r.Token, r.Value)
	decl.Deps = r.Deps
	if r.Policy != "" {
		decl.Policy = policy
	}
	return decl, nil
}

func parsePolicy(s string) (resolve.Policy, error) {
	switch s {
	case "":
		return resolve.PolicyEager, nil
	case string(resolve.PolicyEager):
		return resolve.PolicyEager, nil
	case string(resolve.PolicyLazy):
		return resolve.PolicyLazy, nil
	default:
		return "", fmt.Errorf("unknown policy %q", s)
	}
}
