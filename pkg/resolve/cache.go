package resolve

import (
	"context"
	"sync"
)

// Cache memoizes resolved values per path node. A token's provider runs
// at most once per cache; concurrent demands for the same token share the
// single in-flight invocation.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	done  chan struct{}
	value any
	err   error
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*cacheEntry)}
}

// Do returns the memoized result for token, invoking fn to produce it on
// first demand. The first caller's context is the one fn observes; later
// callers block until the entry settles or their own context is done.
func (c *Cache) Do(ctx context.Context, token string, fn func(context.Context) (any, error)) (any, error) {
	c.mu.Lock()
	e, ok := c.entries[token]
	if !ok {
		e = &cacheEntry{done: make(chan struct{})}
		c.entries[token] = e
		c.mu.Unlock()

		e.value, e.err = fn(ctx)
		close(e.done)
		return e.value, e.err
	}
	c.mu.Unlock()

	select {
	case <-e.done:
		return e.value, e.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Peek returns the settled value for token, if the provider already
// completed successfully. In-flight and failed entries report false.
func (c *Cache) Peek(token string) (any, bool) {
	c.mu.Lock()
	e, ok := c.entries[token]
	c.mu.Unlock()
	if !ok {
		return nil, false
	}
	select {
	case <-e.done:
		if e.err != nil {
			return nil, false
		}
		return e.value, true
	default:
		return nil, false
	}
}

// Tokens lists the tokens with settled, successful values.
func (c *Cache) Tokens() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for token, e := range c.entries {
		select {
		case <-e.done:
			if e.err == nil {
				out = append(out, token)
			}
		default:
		}
	}
	return out
}
