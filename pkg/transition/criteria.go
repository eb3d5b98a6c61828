package transition

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/switchback/pkg/path"
)

// Matcher is one criterion over a path node: an exact state name, a glob
// over dotted names, or an arbitrary predicate. The zero Matcher is
// unpopulated and matches implicitly.
type Matcher struct {
	name string
	glob string
	fn   func(*path.Node) bool
}

// MatchName matches a node by exact state name.
func MatchName(name string) Matcher { return Matcher{name: name} }

// MatchGlob matches dotted state names against a glob pattern: "*"
// spans one name segment, "**" spans any number. "admin.**" matches
// "admin" and every descendant.
func MatchGlob(pattern string) Matcher { return Matcher{glob: pattern} }

// MatchFunc matches with an arbitrary predicate.
func MatchFunc(fn func(*path.Node) bool) Matcher { return Matcher{fn: fn} }

func (m Matcher) isZero() bool {
	return m.name == "" && m.glob == "" && m.fn == nil
}

func (m Matcher) validate() error {
	if m.glob == "" {
		return nil
	}
	if !doublestar.ValidatePattern(slashed(m.glob)) {
		return fmt.Errorf("invalid glob %q", m.glob)
	}
	return nil
}

func (m Matcher) matches(n *path.Node) bool {
	switch {
	case m.isZero():
		return true
	case n == nil:
		return false
	case m.name != "":
		return n.Name() == m.name
	case m.glob != "":
		ok, err := doublestar.Match(slashed(m.glob), slashed(n.Name()))
		if err != nil {
			return false
		}
		if !ok && strings.HasSuffix(m.glob, ".**") {
			// "a.**" also covers "a" itself.
			ok = n.Name() == strings.TrimSuffix(m.glob, ".**")
		}
		return ok
	default:
		return m.fn(n)
	}
}

// slashed maps dotted state names onto the separator doublestar globs
// over.
func slashed(s string) string { return strings.ReplaceAll(s, ".", "/") }

// Criteria filters which transitions a hook observes. Every populated
// field must match: To and From test the terminal node of their path;
// Entering, Exiting and Retained match when any node of their path
// satisfies the matcher, and that matcher also filters the nodes a
// path-scoped hook is instantiated for.
type Criteria struct {
	To       Matcher
	From     Matcher
	Entering Matcher
	Exiting  Matcher
	Retained Matcher
}

func (c Criteria) validate() error {
	for _, m := range []Matcher{c.To, c.From, c.Entering, c.Exiting, c.Retained} {
		if err := m.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c Criteria) forSlot(slot Slot) Matcher {
	switch slot {
	case SlotTo:
		return c.To
	case SlotFrom:
		return c.From
	case SlotEntering:
		return c.Entering
	case SlotExiting:
		return c.Exiting
	case SlotRetained:
		return c.Retained
	}
	return Matcher{}
}

// matches reports whether every populated criterion matches the changes.
func (c Criteria) matches(ch *path.Changes) bool {
	return matchTerminal(c.To, ch.To) &&
		matchTerminal(c.From, ch.From) &&
		matchAny(c.Entering, ch.Entering) &&
		matchAny(c.Exiting, ch.Exiting) &&
		matchAny(c.Retained, ch.Retained)
}

func matchTerminal(m Matcher, l path.List) bool {
	if m.isZero() {
		return true
	}
	return m.matches(l.Terminal())
}

func matchAny(m Matcher, l path.List) bool {
	if m.isZero() {
		return true
	}
	for _, n := range l {
		if m.matches(n) {
			return true
		}
	}
	return false
}
