package ports

import (
	"context"

	"github.com/aretw0/switchback/pkg/path"
	"github.com/aretw0/switchback/pkg/state"
	"github.com/aretw0/switchback/pkg/transition"
)

// Navigator defines the navigation surface adapters drive.
// This is the primary interface used by adapters (e.g., HTTP, MCP) that
// steer a router without depending on its concrete type.
type Navigator interface {
	// Go navigates to a state and waits for the attempt's final outcome,
	// following redirects. The returned transition is the attempt that
	// settled, not necessarily the one created.
	Go(ctx context.Context, state string, params map[string]any, opts ...transition.TargetOption) (*transition.Transition, error)

	// GoURL matches a URL and navigates to the matched state.
	GoURL(ctx context.Context, url string) (*transition.Transition, error)

	// Current returns the committed current path, root to leaf.
	Current() path.List

	// States returns the registered state definitions for introspection
	// and visualization tools (e.g. 'switchback graph').
	States() []*state.State

	// Href renders the URL for a state, if a URL matcher is configured.
	Href(state string, params map[string]any) (string, error)
}
