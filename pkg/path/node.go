package path

import (
	"reflect"

	"github.com/aretw0/switchback/pkg/resolve"
	"github.com/aretw0/switchback/pkg/state"
)

// Node is a per-transition instantiation of a state: the state reference,
// the concrete parameter values for this navigation, and the node's
// resolve view (declarations plus value cache).
type Node struct {
	state  *state.State
	params map[string]any
	rnode  *resolve.Node
}

// NewNode binds st to the parameter values declared by it, picking the
// declared subset out of values and applying declared defaults. Values
// for parameters the state does not declare are ignored here; the
// transition keeps the full target values.
func NewNode(st *state.State, values map[string]any) *Node {
	params := make(map[string]any, len(st.Params))
	for _, p := range st.Params {
		if v, ok := values[p.Name]; ok {
			params[p.Name] = v
		} else if p.Default != nil {
			// A declared default makes the parameter effectively
			// optional; the path builder skips the required check too.
			params[p.Name] = p.Default
		}
	}
	return &Node{
		state:  st,
		params: params,
		rnode:  resolve.NewNode(st.Name, st.Resolves),
	}
}

// State returns the node's state.
func (n *Node) State() *state.State { return n.state }

// Name returns the state name.
func (n *Node) Name() string { return n.state.Name }

// Param returns the node's value for a declared parameter.
func (n *Node) Param(name string) any { return n.params[name] }

// Params returns a copy of the node's parameter values.
func (n *Node) Params() map[string]any {
	out := make(map[string]any, len(n.params))
	for k, v := range n.params {
		out[k] = v
	}
	return out
}

// ResolveNode exposes the node's resolve view for graph construction.
// The view is stable for the node's lifetime; retained nodes share it
// across transitions.
func (n *Node) ResolveNode() *resolve.Node { return n.rnode }

// Resolved returns the cached value of a token resolved on this node.
func (n *Node) Resolved(token string) (any, bool) {
	return n.rnode.Cache.Peek(token)
}

// AddResolve injects an extra resolvable into this node. Only meaningful
// before the owning transition starts resolving (the onCreate event is
// the supported injection point).
func (n *Node) AddResolve(d resolve.Declaration) {
	n.rnode.Decls = append(n.rnode.Decls, d)
}

// sameState reports whether both nodes instantiate the same state.
func (n *Node) sameState(other *Node) bool {
	return n.state.Name == other.state.Name
}

// staticParamsEqual compares the values of all non-dynamic declared
// parameters.
func (n *Node) staticParamsEqual(other *Node) bool {
	for _, p := range n.state.Params {
		if p.Dynamic {
			continue
		}
		if !reflect.DeepEqual(n.params[p.Name], other.params[p.Name]) {
			return false
		}
	}
	return true
}

// dynamicParamsDiffer reports whether any dynamic declared parameter
// changed value between the two nodes.
func (n *Node) dynamicParamsDiffer(other *Node) bool {
	for _, p := range n.state.Params {
		if !p.Dynamic {
			continue
		}
		if !reflect.DeepEqual(n.params[p.Name], other.params[p.Name]) {
			return true
		}
	}
	return false
}

// retain carries this node into a new transition: same state, same
// resolve view (cache included), parameter values adopted from the
// incoming node. Reports whether a dynamic parameter changed.
func (n *Node) retain(incoming *Node) (*Node, bool) {
	reloaded := n.dynamicParamsDiffer(incoming)
	return &Node{
		state:  n.state,
		params: incoming.params,
		rnode:  n.rnode,
	}, reloaded
}

// List is an ordered sequence of path nodes. Unless stated otherwise,
// lists run root to leaf.
type List []*Node

// Terminal returns the deepest node, or nil for an empty list.
func (l List) Terminal() *Node {
	if len(l) == 0 {
		return nil
	}
	return l[len(l)-1]
}

// Names returns the state names along the list.
func (l List) Names() []string {
	out := make([]string, len(l))
	for i, n := range l {
		out[i] = n.Name()
	}
	return out
}

// Node finds a node by state name.
func (l List) Node(name string) *Node {
	for _, n := range l {
		if n.Name() == name {
			return n
		}
	}
	return nil
}

// Params merges parameter values along the list, leaf values winning.
func (l List) Params() map[string]any {
	out := make(map[string]any)
	for _, n := range l {
		for k, v := range n.params {
			out[k] = v
		}
	}
	return out
}

// Reverse returns a reversed copy.
func (l List) Reverse() List {
	out := make(List, len(l))
	for i, n := range l {
		out[len(l)-1-i] = n
	}
	return out
}

// ResolveNodes projects the list into its resolve views, preserving
// order.
func (l List) ResolveNodes() []*resolve.Node {
	out := make([]*resolve.Node, len(l))
	for i, n := range l {
		out[i] = n.ResolveNode()
	}
	return out
}
