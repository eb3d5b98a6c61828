package ports

import "errors"

// ErrNoMatch is returned by URLMatcher.Match when no registered pattern
// covers the URL.
var ErrNoMatch = errors.New("no state matches url")

// URLMatch is a successful URL-to-state resolution.
type URLMatch struct {
	State  string
	Params map[string]any
}

// URLMatcher defines the two-way mapping between URLs and states.
// It lets locations drive navigation and navigation drive locations
// without the router knowing the pattern syntax.
type URLMatcher interface {
	// Match resolves a URL path to a state and its bound parameters.
	// Returns ErrNoMatch when nothing matches.
	Match(url string) (URLMatch, error)

	// Build renders the URL for a state with the given parameter values.
	// Unused values become query parameters.
	Build(state string, params map[string]any) (string, error)
}
