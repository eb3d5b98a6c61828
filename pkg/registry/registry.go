// Package registry holds named resolve providers, so tree documents can
// reference Go functions by name.
package registry

import (
	"sort"
	"sync"

	"github.com/aretw0/switchback/pkg/resolve"
)

// Registry manages the available providers. It satisfies
// schema.ProviderLookup.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]resolve.Func
}

// New creates a new empty registry.
func New() *Registry {
	return &Registry{
		providers: make(map[string]resolve.Func),
	}
}

// Register adds a provider under a name. Registering an existing name
// overwrites it.
func (r *Registry) Register(name string, fn resolve.Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = fn
}

// Provider looks up a provider by name.
func (r *Registry) Provider(name string) (resolve.Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.providers[name]
	return fn, ok
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
