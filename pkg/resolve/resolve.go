package resolve

import "context"

// Policy controls when a resolvable's provider runs.
type Policy string

const (
	// PolicyEager resolves as soon as the owning node is known to be
	// entering, before any enter hooks run.
	PolicyEager Policy = "eager"
	// PolicyLazy resolves only when a downstream consumer asks for the
	// value, pulling in its full dependency chain on demand.
	PolicyLazy Policy = "lazy"
)

// Deps carries the already-resolved dependency values of a provider,
// keyed by token.
type Deps map[string]any

// String returns the dependency value as a string, or "" when absent or
// of another type. Convenience for the common case.
func (d Deps) String(token string) string {
	s, _ := d[token].(string)
	return s
}

// Func is a resolvable's provider. It receives the values of the tokens
// the declaration depends on. Providers may block; they are expected to
// honor ctx cancellation.
type Func func(ctx context.Context, deps Deps) (any, error)

// Declaration describes one resolvable attached to a state: a token, the
// tokens it depends on, the provider producing its value, and the policy
// deciding when the provider runs. An empty policy means PolicyEager.
type Declaration struct {
	Token  string
	Deps   []string
	Func   Func
	Policy Policy
}

// Static returns a declaration whose provider yields a fixed value.
// Loaders use it for data declared inline in tree documents.
func Static(token string, value any) Declaration {
	return Declaration{
		Token:  token,
		Policy: PolicyLazy,
		Func: func(context.Context, Deps) (any, error) {
			return value, nil
		},
	}
}
