package ports

import "context"

// Location defines a mutable, observable address: a browser history in a
// frontend, an in-memory value in tests and CLIs. The router pushes
// committed URLs into it and follows the changes it emits.
type Location interface {
	// Current returns the location's present URL.
	Current() (string, error)

	// Push appends a new URL to the location's history.
	Push(url string) error

	// Replace swaps the current URL without growing history.
	Replace(url string) error

	// Watch returns a channel emitting URLs whenever the location changes
	// from the outside (e.g. a back button). The channel closes when the
	// context is canceled.
	Watch(ctx context.Context) (<-chan string, error)
}
