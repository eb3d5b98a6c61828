// Package loam adapts a Loam document repository to the TreeLoader
// port. Each document in the repository is one state: frontmatter
// carries the definition, the body becomes the state's doc text, and
// the file path supplies the name when the frontmatter doesn't.
package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aretw0/loam"

	"github.com/aretw0/switchback/pkg/schema"
	"github.com/aretw0/switchback/pkg/state"
)

// Loader implements ports.TreeLoader and ports.Watchable over a typed
// Loam repository.
type Loader struct {
	Repo   *loam.TypedRepository[StateMetadata]
	lookup schema.ProviderLookup
}

// Option customizes the loader.
type Option func(*Loader)

// WithProviders supplies the lookup used to bind resolve specs that
// reference providers by name.
func WithProviders(lookup schema.ProviderLookup) Option {
	return func(l *Loader) {
		l.lookup = lookup
	}
}

// New creates a Loam adapter over an existing typed repository.
func New(repo *loam.TypedRepository[StateMetadata], opts ...Option) *Loader {
	l := &Loader{Repo: repo}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Open initializes a read-only Loam repository at dir and returns a
// loader over it. Strict mode keeps numeric frontmatter values stable
// across the JSON and YAML adapters.
func Open(dir string, opts ...Option) (*Loader, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[StateMetadata](repo), opts...), nil
}

// Load lists every document, assembles them into a tree document and
// converts it into state definitions. Name collisions across files are
// reported with both file paths; everything else goes through the
// shared schema validation, so failures come back aggregated.
func (l *Loader) Load(ctx context.Context) ([]state.State, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string, len(docs))
	tree := schema.Document{Specs: make([]schema.StateSpec, 0, len(docs))}

	for _, doc := range docs {
		name := doc.Data.Name
		if name == "" {
			name = stateName(doc.ID)
		}

		if existing, ok := seen[name]; ok {
			return nil, fmt.Errorf("collision detected: state %q is defined in both %q and %q", name, existing, doc.ID)
		}
		seen[name] = doc.ID

		tree.Specs = append(tree.Specs, schema.StateSpec{
			Name:    name,
			Parent:  doc.Data.Parent,
			URL:     doc.Data.URL,
			Doc:     strings.TrimSpace(doc.Content),
			Params:  doc.Data.Params,
			Resolve: doc.Data.Resolve,
			Data:    doc.Data.Data,
		})
	}

	if err := schema.Validate(&tree); err != nil {
		return nil, err
	}
	return tree.States(l.lookup)
}

// Watch implements ports.Watchable by forwarding repository change
// events as reload signals. Loam applies its own debounce, so each
// event maps to one signal.
func (l *Loader) Watch(ctx context.Context) (<-chan struct{}, error) {
	events, err := l.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan struct{}, 1)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- struct{}{}:
				default:
					// A reload signal is already pending; coalesce.
				}
			}
		}
	}()

	return ch, nil
}

// stateName derives a state name from a document ID: the extension goes,
// and path separators become dots, so "app/users.md" names "app.users".
func stateName(id string) string {
	if ext := filepath.Ext(id); ext != "" {
		id = strings.TrimSuffix(id, ext)
	}
	return strings.ReplaceAll(filepath.ToSlash(id), "/", ".")
}
