// Package urlpat implements ports.URLMatcher over segment patterns like
// "/users/:id". A state's full URL is composed from its ancestors, so
// nested states nest their URLs the way they nest their names.
package urlpat

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/aretw0/switchback/pkg/ports"
	"github.com/aretw0/switchback/pkg/state"
)

type segment struct {
	literal string
	param   string
}

type route struct {
	state    string
	pattern  string
	segments []segment
	statics  int
}

// Matcher holds the registered URL patterns. Matching picks the route
// with the most literal segments; registration order breaks ties.
type Matcher struct {
	routes  []route
	byState map[string]int
}

// New creates an empty matcher.
func New() *Matcher {
	return &Matcher{byState: make(map[string]int)}
}

// FromTree composes each state's URL from its ancestors and registers
// the result. States without any URL fragment along their path are
// skipped; they are reachable by name only.
func FromTree(tree *state.Tree) (*Matcher, error) {
	m := New()
	for _, s := range tree.States() {
		chain, err := tree.PathTo(s.Name)
		if err != nil {
			return nil, err
		}
		var full string
		for _, anc := range chain {
			full += anc.URL
		}
		if full == "" {
			continue
		}
		if err := m.Register(s.Name, full); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Register adds a pattern for a state. Patterns are absolute, "/" for
// the root, with ":name" segments binding parameters.
func (m *Matcher) Register(stateName, pattern string) error {
	if stateName == "" {
		return fmt.Errorf("empty state name")
	}
	if !strings.HasPrefix(pattern, "/") {
		return fmt.Errorf("pattern %q must start with /", pattern)
	}
	if _, ok := m.byState[stateName]; ok {
		return fmt.Errorf("state %q already has a pattern", stateName)
	}

	r := route{state: stateName, pattern: pattern}
	for _, part := range splitPath(pattern) {
		if strings.HasPrefix(part, ":") {
			name := part[1:]
			if name == "" {
				return fmt.Errorf("pattern %q has an unnamed parameter", pattern)
			}
			r.segments = append(r.segments, segment{param: name})
			continue
		}
		r.segments = append(r.segments, segment{literal: part})
		r.statics++
	}

	m.byState[stateName] = len(m.routes)
	m.routes = append(m.routes, r)
	return nil
}

// Match resolves a URL to the most specific registered pattern. Query
// values join the matched path parameters.
func (m *Matcher) Match(rawURL string) (ports.URLMatch, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ports.URLMatch{}, fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	// EscapedPath keeps encoded separators intact; segments are
	// unescaped individually after splitting.
	parts := splitPath(u.EscapedPath())

	best := -1
	var bestParams map[string]any
	for i, r := range m.routes {
		params, ok := matchSegments(r.segments, parts)
		if !ok {
			continue
		}
		if best >= 0 && r.statics <= m.routes[best].statics {
			continue
		}
		best = i
		bestParams = params
	}
	if best < 0 {
		return ports.URLMatch{}, fmt.Errorf("%w: %q", ports.ErrNoMatch, rawURL)
	}

	for k, vs := range u.Query() {
		if _, taken := bestParams[k]; taken || len(vs) == 0 {
			continue
		}
		bestParams[k] = vs[0]
	}
	return ports.URLMatch{State: m.routes[best].state, Params: bestParams}, nil
}

// Build renders the URL for a state. Parameters not consumed by the
// pattern become query values, sorted for determinism.
func (m *Matcher) Build(stateName string, params map[string]any) (string, error) {
	idx, ok := m.byState[stateName]
	if !ok {
		return "", fmt.Errorf("no pattern registered for state %q", stateName)
	}
	r := m.routes[idx]

	used := make(map[string]bool)
	var sb strings.Builder
	for _, seg := range r.segments {
		sb.WriteByte('/')
		if seg.param == "" {
			sb.WriteString(seg.literal)
			continue
		}
		v, ok := params[seg.param]
		if !ok {
			return "", fmt.Errorf("missing parameter %q for pattern %q", seg.param, r.pattern)
		}
		sb.WriteString(url.PathEscape(fmt.Sprint(v)))
		used[seg.param] = true
	}
	path := sb.String()
	if path == "" {
		path = "/"
	}

	var extras []string
	for k := range params {
		if !used[k] {
			extras = append(extras, k)
		}
	}
	if len(extras) == 0 {
		return path, nil
	}
	sort.Strings(extras)
	q := url.Values{}
	for _, k := range extras {
		q.Set(k, fmt.Sprint(params[k]))
	}
	return path + "?" + q.Encode(), nil
}

func matchSegments(segs []segment, parts []string) (map[string]any, bool) {
	if len(segs) != len(parts) {
		return nil, false
	}
	params := make(map[string]any)
	for i, seg := range segs {
		if seg.param != "" {
			v, err := url.PathUnescape(parts[i])
			if err != nil {
				v = parts[i]
			}
			params[seg.param] = v
			continue
		}
		if seg.literal != parts[i] {
			return nil, false
		}
	}
	return params, true
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
