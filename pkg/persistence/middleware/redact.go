package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/switchback/pkg/ports"
)

type redactionMiddleware struct {
	next     ports.SnapshotStore
	patterns []*regexp.Regexp
}

// NewRedactionMiddleware creates a middleware that masks parameter
// values whose keys match any of the patterns before the snapshot is
// persisted. Masking is one-way: a restored session sees "***" where
// the sensitive value used to be.
//
// Patterns are compiled with regexp.MustCompile; an invalid pattern is
// a configuration bug and panics.
func NewRedactionMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.SnapshotStore) ports.SnapshotStore {
		return &redactionMiddleware{next: next, patterns: patterns}
	}
}

func (m *redactionMiddleware) Save(ctx context.Context, sessionID string, snap ports.Snapshot) error {
	// Deep clone first: the live router keeps using the original params.
	cloned := snap
	cloned.Params = deepCopyMap(snap.Params)
	maskMap(cloned.Params, m.patterns)

	return m.next.Save(ctx, sessionID, cloned)
}

func (m *redactionMiddleware) Load(ctx context.Context, sessionID string) (ports.Snapshot, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *redactionMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *redactionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// Helpers

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if subMap, ok := v.(map[string]any); ok {
			out[k] = deepCopyMap(subMap)
		} else {
			out[k] = v
		}
	}
	return out
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = "***"
				break
			}
		}

		if subMap, ok := v.(map[string]any); ok {
			maskMap(subMap, patterns)
		}
	}
}
