package switchback

import (
	"context"
	"sync"

	"github.com/aretw0/switchback/pkg/path"
	"github.com/aretw0/switchback/pkg/resolve"
	"github.com/aretw0/switchback/pkg/transition"
)

// On attaches a hook to any defined event, built-in or custom.
func (r *Router) On(event string, c transition.Criteria, fn transition.HookFunc, opts ...transition.HookOption) (transition.Deregister, error) {
	return r.registry.Register(event, c, fn, opts...)
}

// OnCreate hooks run synchronously while a transition is created, before
// any asynchronous work. They may mutate the tree changes, e.g. inject
// extra resolvables.
func (r *Router) OnCreate(c transition.Criteria, fn transition.HookFunc, opts ...transition.HookOption) (transition.Deregister, error) {
	return r.registry.Register(transition.EventCreate, c, fn, opts...)
}

// OnBefore hooks guard a transition before any state is exited; they may
// abort or redirect it.
func (r *Router) OnBefore(c transition.Criteria, fn transition.HookFunc, opts ...transition.HookOption) (transition.Deregister, error) {
	return r.registry.Register(transition.EventBefore, c, fn, opts...)
}

// OnStart hooks open the run phase.
func (r *Router) OnStart(c transition.Criteria, fn transition.HookFunc, opts ...transition.HookOption) (transition.Deregister, error) {
	return r.registry.Register(transition.EventStart, c, fn, opts...)
}

// OnExit hooks run once per exiting node, leaf to root.
func (r *Router) OnExit(c transition.Criteria, fn transition.HookFunc, opts ...transition.HookOption) (transition.Deregister, error) {
	return r.registry.Register(transition.EventExit, c, fn, opts...)
}

// OnRetain hooks run once per retained node; reloaded nodes are where
// dynamic parameter changes surface.
func (r *Router) OnRetain(c transition.Criteria, fn transition.HookFunc, opts ...transition.HookOption) (transition.Deregister, error) {
	return r.registry.Register(transition.EventRetain, c, fn, opts...)
}

// OnEnter hooks run once per entering node, root to leaf, after the
// node's eager resolvables settled.
func (r *Router) OnEnter(c transition.Criteria, fn transition.HookFunc, opts ...transition.HookOption) (transition.Deregister, error) {
	return r.registry.Register(transition.EventEnter, c, fn, opts...)
}

// OnFinish hooks close the run phase, right before commit.
func (r *Router) OnFinish(c transition.Criteria, fn transition.HookFunc, opts ...transition.HookOption) (transition.Deregister, error) {
	return r.registry.Register(transition.EventFinish, c, fn, opts...)
}

// OnSuccess observers fire after a transition committed. Their errors
// are logged, never escalated.
func (r *Router) OnSuccess(c transition.Criteria, fn transition.HookFunc, opts ...transition.HookOption) (transition.Deregister, error) {
	return r.registry.Register(transition.EventSuccess, c, fn, opts...)
}

// OnError observers fire after a transition failed. Their errors are
// logged, never escalated.
func (r *Router) OnError(c transition.Criteria, fn transition.HookFunc, opts ...transition.HookOption) (transition.Deregister, error) {
	return r.registry.Register(transition.EventError, c, fn, opts...)
}

// DefineEvent registers a custom lifecycle event. Rejected once the
// first transition has run.
func (r *Router) DefineEvent(ev transition.EventType) error {
	return r.registry.DefineEvent(ev)
}

// installBuiltins registers the hooks the router itself contributes:
// eager resolution at the head of onStart, and the view activator pair
// at the tail of onExit/onEnter when views are configured.
func (r *Router) installBuiltins() {
	_, _ = r.registry.Register(transition.EventStart, transition.Criteria{},
		r.resolveEntering,
		transition.WithPriority(100), transition.WithHookName("resolve.eager"))

	if r.views == nil {
		return
	}
	_, _ = r.registry.Register(transition.EventExit, transition.Criteria{},
		func(ctx context.Context, _ *transition.Transition, node *path.Node) (transition.Result, error) {
			return nil, r.views.Deactivate(ctx, node)
		},
		transition.WithPriority(-100), transition.WithHookName("views.deactivate"))
	_, _ = r.registry.Register(transition.EventEnter, transition.Criteria{},
		func(ctx context.Context, _ *transition.Transition, node *path.Node) (transition.Result, error) {
			return nil, r.views.Activate(ctx, node)
		},
		transition.WithPriority(-100), transition.WithHookName("views.activate"))
}

// resolveEntering fetches the eager resolvables of every entering node,
// nodes in parallel, before any other run-phase hook sees the
// transition. Failures surface with kind ResolveFailed.
func (r *Router) resolveEntering(ctx context.Context, tr *transition.Transition, _ *path.Node) (transition.Result, error) {
	entering := tr.Changes().Entering
	if len(entering) == 0 {
		return nil, nil
	}
	g := tr.Graph()

	var wg sync.WaitGroup
	errs := make(chan error, len(entering))
	for _, node := range entering {
		wg.Add(1)
		go func(n *resolve.Node) {
			defer wg.Done()
			if err := g.ResolveEager(ctx, n); err != nil {
				errs <- err
			}
		}(node.ResolveNode())
	}
	wg.Wait()
	close(errs)

	if err := <-errs; err != nil {
		return nil, &transition.Error{Kind: transition.KindResolveFailed, Err: err}
	}
	return nil, nil
}
