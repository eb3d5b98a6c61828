package schema

import (
	"fmt"
	"strings"
)

// Validate checks a document's internal consistency: state names and
// their uniqueness, parent references, parameter and resolve
// declarations. All failures are collected into one AggregateError.
func Validate(doc *Document) error {
	var errs []error
	fail := func(path, reason string, value any) {
		errs = append(errs, &ValidationError{Path: path, Reason: reason, Value: value})
	}

	if doc == nil || len(doc.Specs) == 0 {
		fail("states", "document declares no states", nil)
		return &AggregateError{Errors: errs}
	}

	names := make(map[string]bool, len(doc.Specs))
	for i, s := range doc.Specs {
		path := fmt.Sprintf("states[%d]", i)
		if s.Name == "" {
			fail(path, "state name is required", nil)
			continue
		}
		if names[s.Name] {
			fail(path, "duplicate state name", s.Name)
		}
		names[s.Name] = true
	}

	for i, s := range doc.Specs {
		if s.Name == "" {
			continue
		}
		path := fmt.Sprintf("states[%d] (%s)", i, s.Name)

		// The parent, explicit or implied by the dotted name, must be
		// declared in the same document.
		parent := s.Parent
		if parent == "" {
			if idx := strings.LastIndex(s.Name, "."); idx >= 0 {
				parent = s.Name[:idx]
			}
		}
		if parent != "" && !names[parent] {
			fail(path, "parent state not declared in document", parent)
		}

		if s.URL != "" && !strings.HasPrefix(s.URL, "/") {
			fail(path, "url fragment must start with /", s.URL)
		}

		params := make(map[string]bool, len(s.Params))
		for j, p := range s.Params {
			ppath := fmt.Sprintf("%s.params[%d]", path, j)
			if p.Name == "" {
				fail(ppath, "param name is required", nil)
				continue
			}
			if params[p.Name] {
				fail(ppath, "duplicate param name", p.Name)
			}
			params[p.Name] = true
		}

		tokens := make(map[string]bool, len(s.Resolve))
		for j, r := range s.Resolve {
			rpath := fmt.Sprintf("%s.resolve[%d]", path, j)
			if r.Token == "" {
				fail(rpath, "resolve token is required", nil)
				continue
			}
			if tokens[r.Token] {
				fail(rpath, "duplicate resolve token", r.Token)
			}
			tokens[r.Token] = true
			if r.Provider != "" && r.Value != nil {
				fail(rpath, "provider and value are mutually exclusive", r.Token)
			}
			if _, err := parsePolicy(r.Policy); err != nil {
				fail(rpath, "unknown policy", r.Policy)
			}
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}
