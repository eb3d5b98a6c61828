// Package middleware wraps snapshot stores with cross-cutting behavior:
// encryption at rest and parameter redaction. Middlewares compose, so a
// store can redact before it encrypts.
package middleware

import "github.com/aretw0/switchback/pkg/ports"

// Middleware wraps a SnapshotStore to add behavior.
type Middleware func(ports.SnapshotStore) ports.SnapshotStore

// Chain applies middlewares to a store. The first middleware becomes
// the outermost layer: Chain(s, a, b) saves through a, then b, then s.
func Chain(store ports.SnapshotStore, mws ...Middleware) ports.SnapshotStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
