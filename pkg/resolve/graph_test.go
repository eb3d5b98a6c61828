package resolve_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/switchback/pkg/resolve"
)

func constant(v any) resolve.Func {
	return func(context.Context, resolve.Deps) (any, error) { return v, nil }
}

func TestGraph_LazyChain(t *testing.T) {
	// user depends on token, token is declared on the parent node.
	parent := resolve.NewNode("app", []resolve.Declaration{
		{Token: "token", Policy: resolve.PolicyLazy, Func: constant("tok-123")},
	})
	child := resolve.NewNode("app.users", []resolve.Declaration{
		{
			Token:  "user",
			Deps:   []string{"token"},
			Policy: resolve.PolicyLazy,
			Func: func(_ context.Context, deps resolve.Deps) (any, error) {
				return "user-for-" + deps.String("token"), nil
			},
		},
	})
	g := resolve.NewGraph([]*resolve.Node{parent, child})

	v, err := g.Get(context.Background(), child, "user")
	require.NoError(t, err)
	assert.Equal(t, "user-for-tok-123", v)

	// The chain was pulled in: the parent's value is now cached.
	tok, ok := parent.Cache.Peek("token")
	assert.True(t, ok)
	assert.Equal(t, "tok-123", tok)
}

func TestGraph_ClosestDeclarationWins(t *testing.T) {
	root := resolve.NewNode("a", []resolve.Declaration{
		{Token: "scope", Policy: resolve.PolicyLazy, Func: constant("root")},
	})
	leaf := resolve.NewNode("a.b", []resolve.Declaration{
		{Token: "scope", Policy: resolve.PolicyLazy, Func: constant("leaf")},
	})
	g := resolve.NewGraph([]*resolve.Node{root, leaf})

	v, err := g.Get(context.Background(), leaf, "scope")
	require.NoError(t, err)
	assert.Equal(t, "leaf", v, "leaf declaration shadows the root one")

	v, err = g.Get(context.Background(), root, "scope")
	require.NoError(t, err)
	assert.Equal(t, "root", v)
}

func TestGraph_EagerRunsOnceInParallel(t *testing.T) {
	var calls int32
	counting := func(v any) resolve.Func {
		return func(context.Context, resolve.Deps) (any, error) {
			atomic.AddInt32(&calls, 1)
			return v, nil
		}
	}
	n := resolve.NewNode("a", []resolve.Declaration{
		{Token: "x", Policy: resolve.PolicyEager, Func: counting(1)},
		{Token: "y", Policy: resolve.PolicyEager, Func: counting(2)},
		{Token: "z", Policy: resolve.PolicyLazy, Func: counting(3)},
	})
	g := resolve.NewGraph([]*resolve.Node{n})

	require.NoError(t, g.ResolveEager(context.Background(), n))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "lazy resolvables are not triggered")

	_, okX := n.Cache.Peek("x")
	_, okZ := n.Cache.Peek("z")
	assert.True(t, okX)
	assert.False(t, okZ)

	// A second eager pass is a no-op thanks to memoization.
	require.NoError(t, g.ResolveEager(context.Background(), n))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGraph_CycleIsNamed(t *testing.T) {
	n := resolve.NewNode("a", []resolve.Declaration{
		{Token: "x", Deps: []string{"y"}, Policy: resolve.PolicyEager, Func: constant(nil)},
		{Token: "y", Deps: []string{"x"}, Policy: resolve.PolicyEager, Func: constant(nil)},
	})
	g := resolve.NewGraph([]*resolve.Node{n})

	err := g.ResolveEager(context.Background(), n)
	require.Error(t, err)

	var cycle *resolve.CycleError
	require.ErrorAs(t, err, &cycle)
	assert.Contains(t, cycle.Chain, "x")
	assert.Contains(t, cycle.Chain, "y")
	assert.Contains(t, err.Error(), "resolve cycle")
}

func TestGraph_SelfCycle(t *testing.T) {
	n := resolve.NewNode("a", []resolve.Declaration{
		{Token: "x", Deps: []string{"x"}, Policy: resolve.PolicyLazy, Func: constant(nil)},
	})
	g := resolve.NewGraph([]*resolve.Node{n})

	_, err := g.Get(context.Background(), n, "x")
	var cycle *resolve.CycleError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []string{"x", "x"}, cycle.Chain)
}

func TestGraph_Validation(t *testing.T) {
	t.Run("missing dependency", func(t *testing.T) {
		n := resolve.NewNode("a", []resolve.Declaration{
			{Token: "x", Deps: []string{"nope"}, Policy: resolve.PolicyLazy, Func: constant(nil)},
		})
		err := resolve.NewGraph([]*resolve.Node{n}).Validate()
		assert.ErrorIs(t, err, resolve.ErrUnknownDependency)
		assert.Contains(t, err.Error(), "nope")
	})

	t.Run("duplicate token on one node", func(t *testing.T) {
		n := resolve.NewNode("a", []resolve.Declaration{
			{Token: "x", Policy: resolve.PolicyLazy, Func: constant(1)},
			{Token: "x", Policy: resolve.PolicyLazy, Func: constant(2)},
		})
		err := resolve.NewGraph([]*resolve.Node{n}).Validate()
		assert.ErrorIs(t, err, resolve.ErrDuplicateToken)
	})

	t.Run("nil provider", func(t *testing.T) {
		n := resolve.NewNode("a", []resolve.Declaration{{Token: "x", Policy: resolve.PolicyLazy}})
		err := resolve.NewGraph([]*resolve.Node{n}).Validate()
		assert.ErrorIs(t, err, resolve.ErrNilProvider)
	})

	t.Run("ancestor dependency is visible", func(t *testing.T) {
		root := resolve.NewNode("a", []resolve.Declaration{
			{Token: "base", Policy: resolve.PolicyLazy, Func: constant(1)},
		})
		leaf := resolve.NewNode("a.b", []resolve.Declaration{
			{Token: "derived", Deps: []string{"base"}, Policy: resolve.PolicyLazy, Func: constant(2)},
		})
		assert.NoError(t, resolve.NewGraph([]*resolve.Node{root, leaf}).Validate())
	})
}

func TestGraph_ProviderFailure(t *testing.T) {
	boom := errors.New("db offline")
	n := resolve.NewNode("a", []resolve.Declaration{
		{Token: "x", Policy: resolve.PolicyEager, Func: func(context.Context, resolve.Deps) (any, error) {
			return nil, boom
		}},
	})
	g := resolve.NewGraph([]*resolve.Node{n})

	err := g.ResolveEager(context.Background(), n)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `resolvable "x"`)
	assert.Contains(t, err.Error(), `state "a"`)
}

func TestGraph_UnknownNodeAndToken(t *testing.T) {
	n := resolve.NewNode("a", nil)
	g := resolve.NewGraph([]*resolve.Node{n})

	_, err := g.Get(context.Background(), resolve.NewNode("other", nil), "x")
	assert.ErrorIs(t, err, resolve.ErrUnknownNode)

	_, err = g.Get(context.Background(), n, "x")
	assert.ErrorIs(t, err, resolve.ErrUnknownToken)
}

func TestStatic(t *testing.T) {
	d := resolve.Static("greeting", "hello")
	assert.Equal(t, resolve.PolicyLazy, d.Policy)
	v, err := d.Func(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
}
