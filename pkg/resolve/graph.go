package resolve

import (
	"context"
	"fmt"
	"sync"
)

// Node is the graph's view of one path node: the state name (for
// diagnostics), the declarations that state carries, and the node's value
// cache. Retained path nodes keep their cache across transitions, which
// is what prevents their providers from running again.
type Node struct {
	Name  string
	Decls []Declaration
	Cache *Cache
}

// NewNode builds a graph node with a fresh cache.
func NewNode(name string, decls []Declaration) *Node {
	return &Node{Name: name, Decls: decls, Cache: NewCache()}
}

// Graph is the per-transition dependency graph over a root-to-leaf path
// of nodes. Dependency tokens bind to the closest declaration at or above
// the consuming node.
type Graph struct {
	nodes []*Node

	validateOnce sync.Once
	validateErr  error
}

// NewGraph builds a graph over nodes, ordered root to leaf.
func NewGraph(nodes []*Node) *Graph {
	return &Graph{nodes: nodes}
}

// Nodes returns the graph's nodes, root to leaf.
func (g *Graph) Nodes() []*Node { return g.nodes }

// vertex identifies one declaration: the index of its owning node plus
// its token. Shadowed tokens are distinct vertices.
type vertex struct {
	node  int
	token string
}

// provider finds the declaration bound to token for a consumer at node
// index idx: the owning node is checked first, then ancestors toward the
// root.
func (g *Graph) provider(idx int, token string) (int, Declaration, bool) {
	for i := idx; i >= 0; i-- {
		for _, d := range g.nodes[i].Decls {
			if d.Token == token {
				return i, d, true
			}
		}
	}
	return -1, Declaration{}, false
}

func (g *Graph) indexOf(n *Node) int {
	for i, cand := range g.nodes {
		if cand == n {
			return i
		}
	}
	return -1
}

// Validate checks the whole graph before any provider runs: duplicate
// tokens within a node, missing providers, missing dependencies, and
// dependency cycles. The result is computed once and memoized.
func (g *Graph) Validate() error {
	g.validateOnce.Do(func() {
		g.validateErr = g.validate()
	})
	return g.validateErr
}

func (g *Graph) validate() error {
	for i, n := range g.nodes {
		seen := make(map[string]bool, len(n.Decls))
		for _, d := range n.Decls {
			if seen[d.Token] {
				return fmt.Errorf("state %q: %w: %q", n.Name, ErrDuplicateToken, d.Token)
			}
			seen[d.Token] = true
			if d.Func == nil {
				return fmt.Errorf("state %q: %w: %q", n.Name, ErrNilProvider, d.Token)
			}
			for _, dep := range d.Deps {
				if _, _, ok := g.provider(i, dep); !ok {
					return fmt.Errorf("state %q: resolvable %q: %w: %q", n.Name, d.Token, ErrUnknownDependency, dep)
				}
			}
		}
	}
	return g.checkCycles()
}

// checkCycles runs a colored DFS over every declaration vertex, following
// dependency edges as the resolver would bind them.
func (g *Graph) checkCycles() error {
	const (
		white = iota
		gray
		black
	)
	colors := make(map[vertex]int)
	var stack []string

	var visit func(v vertex, d Declaration) error
	visit = func(v vertex, d Declaration) error {
		colors[v] = gray
		stack = append(stack, v.token)
		for _, dep := range d.Deps {
			pi, pd, _ := g.provider(v.node, dep)
			pv := vertex{node: pi, token: dep}
			switch colors[pv] {
			case gray:
				chain := append(cycleSuffix(stack, dep), dep)
				return &CycleError{Chain: chain}
			case white:
				if err := visit(pv, pd); err != nil {
					return err
				}
			}
		}
		stack = stack[:len(stack)-1]
		colors[v] = black
		return nil
	}

	for i, n := range g.nodes {
		for _, d := range n.Decls {
			v := vertex{node: i, token: d.Token}
			if colors[v] == white {
				if err := visit(v, d); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// cycleSuffix trims the DFS stack down to the portion that forms the
// cycle starting at token.
func cycleSuffix(stack []string, token string) []string {
	for i, t := range stack {
		if t == token {
			out := make([]string, len(stack)-i)
			copy(out, stack[i:])
			return out
		}
	}
	out := make([]string, len(stack))
	copy(out, stack)
	return out
}

// ResolveEager resolves every eager declaration of n, independent
// resolvables in parallel. It blocks until all complete and returns the
// first failure, if any.
func (g *Graph) ResolveEager(ctx context.Context, n *Node) error {
	if err := g.Validate(); err != nil {
		return err
	}
	idx := g.indexOf(n)
	if idx < 0 {
		return ErrUnknownNode
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(n.Decls))
	for _, d := range n.Decls {
		if d.Policy == PolicyLazy {
			continue
		}
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			if _, err := g.get(ctx, idx, token); err != nil {
				errs <- err
			}
		}(d.Token)
	}
	wg.Wait()
	close(errs)
	return <-errs
}

// Get resolves token on demand for a consumer at node n, pulling in the
// full dependency chain. Values are memoized on their owning node.
func (g *Graph) Get(ctx context.Context, n *Node, token string) (any, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	idx := g.indexOf(n)
	if idx < 0 {
		return nil, ErrUnknownNode
	}
	return g.get(ctx, idx, token)
}

func (g *Graph) get(ctx context.Context, idx int, token string) (any, error) {
	pi, d, ok := g.provider(idx, token)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownToken, token)
	}
	owner := g.nodes[pi]
	return owner.Cache.Do(ctx, token, func(ctx context.Context) (any, error) {
		deps := make(Deps, len(d.Deps))
		for _, dep := range d.Deps {
			v, err := g.get(ctx, pi, dep)
			if err != nil {
				return nil, err
			}
			deps[dep] = v
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := d.Func(ctx, deps)
		if err != nil {
			return nil, fmt.Errorf("resolvable %q at state %q: %w", token, owner.Name, err)
		}
		return v, nil
	})
}
