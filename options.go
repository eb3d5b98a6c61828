package switchback

import (
	"log/slog"

	"github.com/aretw0/switchback/pkg/ports"
	"github.com/aretw0/switchback/pkg/state"
	"github.com/aretw0/switchback/pkg/transition"
)

// Option defines a functional option for configuring the Router.
type Option func(*Router)

// WithName labels the router; the label is attached to every log line.
func WithName(name string) Option {
	return func(r *Router) {
		r.name = name
	}
}

// WithStates registers state definitions directly, bypassing any loader.
func WithStates(defs ...state.State) Option {
	return func(r *Router) {
		r.pendingStates = append(r.pendingStates, defs...)
	}
}

// WithLoader injects a TreeLoader as the source of state definitions.
func WithLoader(l ports.TreeLoader) Option {
	return func(r *Router) {
		r.loader = l
	}
}

// WithLogger sets a custom structured logger for the router.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithURLMatcher overrides the URL scheme used by GoURL, Href and
// location synchronization. Without it, states declaring URL fragments
// get a pattern matcher composed from the tree.
func WithURLMatcher(m ports.URLMatcher) Option {
	return func(r *Router) {
		r.matcher = m
	}
}

// WithLocation wires an observable address the router can follow and
// write back to.
func WithLocation(l ports.Location) Option {
	return func(r *Router) {
		r.location = l
	}
}

// WithViews wires a view activator; the router drives it from built-in
// enter and exit hooks.
func WithViews(v ports.ViewActivator) Option {
	return func(r *Router) {
		r.views = v
	}
}

// WithSnapshots wires a snapshot store, enabling Snapshot and Restore.
func WithSnapshots(s ports.SnapshotStore) Option {
	return func(r *Router) {
		r.store = s
	}
}

// WithEvent defines a custom lifecycle event before the catalog freezes,
// e.g. a phase slotted between the built-in run events.
func WithEvent(ev transition.EventType) Option {
	return func(r *Router) {
		r.pendingEvents = append(r.pendingEvents, ev)
	}
}
