package switchback

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/aretw0/switchback/pkg/adapters/urlpat"
	"github.com/aretw0/switchback/pkg/path"
	"github.com/aretw0/switchback/pkg/ports"
	"github.com/aretw0/switchback/pkg/state"
	"github.com/aretw0/switchback/pkg/transition"
)

// Router is the high-level entry point for the Switchback library.
// It owns the state tree, the hook registry, the live current path and
// the transition pipeline, and provides a simplified API for consumers.
type Router struct {
	name     string
	tree     *state.Tree
	registry *transition.Registry
	pipeline *transition.Pipeline
	logger   *slog.Logger

	loader   ports.TreeLoader
	matcher  ports.URLMatcher
	location ports.Location
	views    ports.ViewActivator
	store    ports.SnapshotStore

	pendingStates []state.State
	pendingEvents []transition.EventType

	latest  *atomic.Uint64
	mu      sync.Mutex
	current path.List
}

// New initializes a new Router.
// States come from WithStates, a TreeLoader, or both; a router with no
// states is refused. The tree freezes once construction finishes.
func New(opts ...Option) (*Router, error) {
	r := &Router{
		tree:   state.NewTree(),
		latest: atomic.NewUint64(0),
	}
	for _, opt := range opts {
		opt(r)
	}

	// Ensure logger is initialized so the pipeline never logs through nil.
	if r.logger == nil {
		r.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if r.name != "" {
		r.logger = r.logger.With("router", r.name)
	}

	if r.loader != nil {
		defs, err := r.loader.Load(context.Background())
		if err != nil {
			return nil, fmt.Errorf("failed to load state tree: %w", err)
		}
		if err := r.tree.Register(defs...); err != nil {
			return nil, fmt.Errorf("failed to register loaded states: %w", err)
		}
	}
	if len(r.pendingStates) > 0 {
		if err := r.tree.Register(r.pendingStates...); err != nil {
			return nil, fmt.Errorf("failed to register states: %w", err)
		}
		r.pendingStates = nil
	}
	if r.tree.Len() == 0 {
		return nil, fmt.Errorf("no states registered: provide WithStates or WithLoader")
	}
	r.tree.Freeze()

	// States declaring URL fragments get a pattern matcher composed from
	// the tree unless WithURLMatcher provided one.
	if r.matcher == nil && treeDeclaresURLs(r.tree) {
		m, err := urlpat.FromTree(r.tree)
		if err != nil {
			return nil, fmt.Errorf("failed to build url matcher: %w", err)
		}
		r.matcher = m
	}

	r.registry = transition.NewRegistry()
	for _, ev := range r.pendingEvents {
		if err := r.registry.DefineEvent(ev); err != nil {
			return nil, fmt.Errorf("failed to define event: %w", err)
		}
	}
	r.pendingEvents = nil

	r.pipeline = transition.NewPipeline(r.registry, (*host)(r))
	r.installBuiltins()

	return r, nil
}

// CreateTransition builds a transition from the current path to the
// target state and runs the synchronous create-phase hooks. Unknown
// states and missing required parameters fail here, synchronously, with
// kind InvalidTransition.
func (r *Router) CreateTransition(ctx context.Context, target string, params map[string]any, opts ...transition.TargetOption) (*transition.Transition, error) {
	tgt := transition.NewTarget(target, params, opts...)
	to, err := r.buildPath(tgt)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	from := r.current
	r.mu.Unlock()

	tr := transition.New(r.latest.Inc(), from, tgt, to)
	if err := r.pipeline.RunCreate(ctx, tr); err != nil {
		return nil, err
	}
	return tr, nil
}

// Run drives a created transition to its terminal outcome, following
// redirects. The error reflects the final attempt in the chain.
func (r *Router) Run(ctx context.Context, tr *transition.Transition) error {
	_, err := r.runChain(ctx, tr)
	return err
}

// Go navigates to a state: create, run, follow redirects. It returns the
// attempt that settled last, which is the transition whose outcome the
// caller cares about.
func (r *Router) Go(ctx context.Context, target string, params map[string]any, opts ...transition.TargetOption) (*transition.Transition, error) {
	tr, err := r.CreateTransition(ctx, target, params, opts...)
	if err != nil {
		return nil, err
	}
	return r.runChain(ctx, tr)
}

// GoURL matches a URL against the configured URLMatcher and navigates to
// the matched state.
func (r *Router) GoURL(ctx context.Context, url string) (*transition.Transition, error) {
	if r.matcher == nil {
		return nil, fmt.Errorf("no url matcher configured")
	}
	m, err := r.matcher.Match(url)
	if err != nil {
		return nil, &transition.Error{Kind: transition.KindInvalidTransition, Err: err}
	}
	return r.Go(ctx, m.State, m.Params)
}

// Current returns the committed current path, root to leaf. Callers must
// treat it as read-only.
func (r *Router) Current() path.List {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// States returns the registered state definitions in registration order.
func (r *Router) States() []*state.State {
	return r.tree.States()
}

// Tree exposes the underlying state tree for introspection.
func (r *Router) Tree() *state.Tree {
	return r.tree
}

// HookCounts reports the number of live hooks per event.
func (r *Router) HookCounts() map[string]int {
	return r.registry.HookCounts()
}

// Href renders the URL for a state with the given parameter values.
func (r *Router) Href(target string, params map[string]any) (string, error) {
	if r.matcher == nil {
		return "", fmt.Errorf("no url matcher configured")
	}
	if !r.tree.Has(target) {
		return "", fmt.Errorf("%w: %q", state.ErrNotFound, target)
	}
	return r.matcher.Build(target, params)
}

// Snapshot persists the router's current position under the session ID.
func (r *Router) Snapshot(ctx context.Context, sessionID string) error {
	if r.store == nil {
		return fmt.Errorf("no snapshot store configured")
	}
	r.mu.Lock()
	cur := r.current
	r.mu.Unlock()

	terminal := cur.Terminal()
	if terminal == nil {
		return fmt.Errorf("nothing to snapshot: router has not navigated yet")
	}
	return r.store.Save(ctx, sessionID, ports.Snapshot{
		State:   terminal.Name(),
		Params:  cur.Params(),
		SavedAt: time.Now().UTC(),
	})
}

// Restore loads the snapshot for the session ID and navigates to it.
func (r *Router) Restore(ctx context.Context, sessionID string) (*transition.Transition, error) {
	if r.store == nil {
		return nil, fmt.Errorf("no snapshot store configured")
	}
	snap, err := r.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return r.Go(ctx, snap.State, snap.Params)
}

// BindLocation synchronizes the router with the configured Location: it
// navigates to the location's current URL, then follows every external
// change until the context is canceled. Committed transitions write back
// through the location only when their options ask for it.
func (r *Router) BindLocation(ctx context.Context) error {
	if r.location == nil {
		return fmt.Errorf("no location configured")
	}
	if r.matcher == nil {
		return fmt.Errorf("no url matcher configured")
	}

	if url, err := r.location.Current(); err == nil && url != "" {
		if _, err := r.GoURL(ctx, url); err != nil {
			r.logger.Warn("initial location navigation failed", "url", url, "err", err)
		}
	}

	ch, err := r.location.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch location: %w", err)
	}
	go func() {
		for url := range ch {
			if _, err := r.GoURL(ctx, url); err != nil {
				// Location echoes of our own pushes settle as same-state;
				// that is the uninteresting steady state.
				if transition.KindOf(err) == transition.KindSameState {
					continue
				}
				r.logger.Warn("location navigation failed", "url", url, "err", err)
			}
		}
	}()
	return nil
}

// Watch returns a channel that signals when the underlying state
// definitions change. Returns an error if the loader does not support
// watching.
func (r *Router) Watch(ctx context.Context) (<-chan struct{}, error) {
	if w, ok := r.loader.(ports.Watchable); ok {
		return w.Watch(ctx)
	}
	return nil, fmt.Errorf("current loader does not support watching")
}

// Loader returns the TreeLoader the router was built with, if any.
func (r *Router) Loader() ports.TreeLoader {
	return r.loader
}

// Logger returns the router's structured logger.
func (r *Router) Logger() *slog.Logger {
	return r.logger
}

// runChain runs a transition and every replacement a redirect produces,
// returning the attempt that settled last.
func (r *Router) runChain(ctx context.Context, tr *transition.Transition) (*transition.Transition, error) {
	cur := tr
	for {
		err := r.pipeline.Run(ctx, cur)
		next := cur.RedirectedTo()
		if next == nil {
			return cur, err
		}
		cur = next
		if err := r.pipeline.RunCreate(ctx, cur); err != nil {
			return cur, err
		}
	}
}

func treeDeclaresURLs(t *state.Tree) bool {
	for _, s := range t.States() {
		if s.URL != "" {
			return true
		}
	}
	return false
}

// buildPath instantiates the root-to-leaf node path for a target,
// validating the state name and its required parameters.
func (r *Router) buildPath(tgt transition.Target) (path.List, error) {
	chain, err := r.tree.PathTo(tgt.State)
	if err != nil {
		return nil, &transition.Error{Kind: transition.KindInvalidTransition, State: tgt.State, Err: err}
	}
	for _, st := range chain {
		for _, p := range st.Params {
			if p.Optional || p.Default != nil {
				continue
			}
			if _, ok := tgt.Params[p.Name]; !ok {
				return nil, &transition.Error{
					Kind:  transition.KindInvalidTransition,
					State: tgt.State,
					Err:   fmt.Errorf("missing required parameter %q declared by state %q", p.Name, st.Name),
				}
			}
		}
	}

	nodes := make(path.List, len(chain))
	for i, st := range chain {
		nodes[i] = path.NewNode(st, tgt.Params)
	}
	return nodes, nil
}

// host adapts the Router to the pipeline's Host interface without
// widening the Router's public API.
type host Router

func (h *host) LatestID() uint64 {
	return h.latest.Load()
}

func (h *host) Commit(tr *transition.Transition) error {
	r := (*Router)(h)
	r.mu.Lock()
	if r.latest.Load() != tr.ID() {
		r.mu.Unlock()
		return &transition.Error{Kind: transition.KindSuperseded, State: tr.Target().State}
	}
	r.current = tr.Changes().To
	r.mu.Unlock()

	r.applyLocation(tr)
	return nil
}

func (h *host) Redirect(tr *transition.Transition, target transition.Target) (*transition.Transition, error) {
	r := (*Router)(h)
	to, err := r.buildPath(target)
	if err != nil {
		return nil, err
	}
	return transition.NewRedirect(tr, r.latest.Inc(), target, to)
}

func (h *host) Logger() *slog.Logger {
	return (*Router)(h).logger
}

// applyLocation writes a committed transition's URL into the location
// when the transition asked for it. Location failures never unwind a
// commit; they are logged.
func (r *Router) applyLocation(tr *transition.Transition) {
	if r.location == nil || r.matcher == nil {
		return
	}
	mode := tr.Options().Location
	if mode == transition.LocationNone {
		return
	}
	url, err := r.matcher.Build(tr.Target().State, tr.Params())
	if err != nil {
		r.logger.Warn("failed to build url for committed transition", "state", tr.Target().State, "err", err)
		return
	}
	switch mode {
	case transition.LocationPush:
		err = r.location.Push(url)
	case transition.LocationReplace:
		err = r.location.Replace(url)
	}
	if err != nil {
		r.logger.Warn("failed to update location", "url", url, "err", err)
	}
}
