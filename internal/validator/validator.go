// Package validator lints loaded state definitions as a whole: the
// cross-state problems that only show up once every document is
// assembled into one tree, past the per-document schema checks.
package validator

import (
	"fmt"
	"strings"

	"github.com/aretw0/switchback/pkg/state"
)

// Issue is one lint finding, attributed to the state it concerns.
type Issue struct {
	State   string
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.State, i.Message)
}

// Lint inspects the definitions for parent chain loops, undeclared URL
// placeholders, ambiguous sibling URLs and dangling resolve
// dependencies. An empty result means the tree is clean.
func Lint(defs []state.State) []Issue {
	var issues []Issue

	byName := make(map[string]*state.State, len(defs))
	for i := range defs {
		byName[defs[i].Name] = &defs[i]
	}

	for i := range defs {
		st := &defs[i]
		issues = append(issues, lintParentChain(st, byName)...)
		issues = append(issues, lintURLPlaceholders(st)...)
		issues = append(issues, lintResolveDeps(st, byName)...)
	}
	issues = append(issues, lintSiblingURLs(defs)...)

	return issues
}

// lintParentChain walks a state's ancestry. Explicit Parent fields can
// form loops the per-document checks cannot see.
func lintParentChain(st *state.State, byName map[string]*state.State) []Issue {
	seen := map[string]bool{st.Name: true}
	cur := st
	for {
		parent := cur.ParentName()
		if parent == "" {
			return nil
		}
		if seen[parent] {
			return []Issue{{State: st.Name, Message: fmt.Sprintf("parent chain loops through %q", parent)}}
		}
		next, ok := byName[parent]
		if !ok {
			// The loader's document validation reports undeclared
			// parents; repeating it here would double the noise.
			return nil
		}
		seen[parent] = true
		cur = next
	}
}

// lintURLPlaceholders checks that every ":name" placeholder of the URL
// fragment has a matching parameter declaration, so Href building and
// required-parameter validation see the same contract.
func lintURLPlaceholders(st *state.State) []Issue {
	var issues []Issue
	for _, seg := range strings.Split(st.URL, "/") {
		if !strings.HasPrefix(seg, ":") {
			continue
		}
		name := strings.TrimPrefix(seg, ":")
		if name == "" {
			issues = append(issues, Issue{State: st.Name, Message: "url has an empty placeholder"})
			continue
		}
		if _, ok := st.Param(name); !ok {
			issues = append(issues, Issue{
				State:   st.Name,
				Message: fmt.Sprintf("url placeholder %q has no parameter declaration", name),
			})
		}
	}
	return issues
}

// lintResolveDeps checks that every declared dependency token is
// provided by the state itself or one of its ancestors; anything else
// fails at runtime with an unknown token.
func lintResolveDeps(st *state.State, byName map[string]*state.State) []Issue {
	// The walked guard keeps a looping parent chain (reported
	// separately) from hanging the visibility walk.
	visible := make(map[string]bool)
	walked := make(map[string]bool)
	for cur := st; cur != nil && !walked[cur.Name]; cur = byName[cur.ParentName()] {
		walked[cur.Name] = true
		for _, decl := range cur.Resolves {
			visible[decl.Token] = true
		}
	}

	var issues []Issue
	for _, decl := range st.Resolves {
		for _, dep := range decl.Deps {
			if dep == decl.Token {
				issues = append(issues, Issue{
					State:   st.Name,
					Message: fmt.Sprintf("resolvable %q depends on itself", decl.Token),
				})
				continue
			}
			if !visible[dep] {
				issues = append(issues, Issue{
					State:   st.Name,
					Message: fmt.Sprintf("resolvable %q depends on unknown token %q", decl.Token, dep),
				})
			}
		}
	}
	return issues
}

// lintSiblingURLs reports children of the same parent carrying the same
// URL fragment, which makes URL matching ambiguous.
func lintSiblingURLs(defs []state.State) []Issue {
	type key struct{ parent, url string }
	first := make(map[key]string, len(defs))

	var issues []Issue
	for i := range defs {
		st := &defs[i]
		if st.URL == "" {
			continue
		}
		k := key{parent: st.ParentName(), url: st.URL}
		if other, ok := first[k]; ok {
			issues = append(issues, Issue{
				State:   st.Name,
				Message: fmt.Sprintf("url %q is already used by sibling %q", st.URL, other),
			})
			continue
		}
		first[k] = st.Name
	}
	return issues
}
