package ports

import (
	"context"

	"github.com/aretw0/switchback/pkg/path"
)

// ViewActivator defines how the host materializes a path node's view.
// The router drives it from the built-in enter and exit hooks; the host
// implements it to mount components, render terminal panes, or anything
// else a "view" means to it.
type ViewActivator interface {
	// Activate is called for each entering node, root to leaf, after the
	// node's resolvables settled.
	Activate(ctx context.Context, node *path.Node) error

	// Deactivate is called for each exiting node, leaf to root.
	Deactivate(ctx context.Context, node *path.Node) error
}
