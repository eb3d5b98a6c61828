package transition_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/switchback/pkg/path"
	"github.com/aretw0/switchback/pkg/resolve"
	"github.com/aretw0/switchback/pkg/state"
	"github.com/aretw0/switchback/pkg/transition"
)

// testHost is a minimal pipeline host over a state tree: an id counter,
// a current path and redirect construction. It mirrors what the router
// does without pulling the facade into these tests.
type testHost struct {
	tree *state.Tree

	mu      sync.Mutex
	latest  uint64
	current path.List
	commits int
}

func newTestHost(t *testing.T, states ...state.State) *testHost {
	t.Helper()
	tree := state.NewTree()
	require.NoError(t, tree.Register(states...))
	return &testHost{tree: tree}
}

func (h *testHost) buildPath(t *testing.T, target transition.Target) path.List {
	t.Helper()
	chain, err := h.tree.PathTo(target.State)
	require.NoError(t, err)
	out := make(path.List, len(chain))
	for i, s := range chain {
		out[i] = path.NewNode(s, target.Params)
	}
	return out
}

func (h *testHost) create(t *testing.T, name string, params map[string]any, opts ...transition.TargetOption) *transition.Transition {
	t.Helper()
	target := transition.NewTarget(name, params, opts...)
	h.mu.Lock()
	h.latest++
	id := h.latest
	from := h.current
	h.mu.Unlock()
	return transition.New(id, from, target, h.buildPath(t, target))
}

func (h *testHost) LatestID() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest
}

func (h *testHost) Commit(tr *transition.Transition) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.latest != tr.ID() {
		return &transition.Error{Kind: transition.KindSuperseded}
	}
	h.current = tr.Changes().To
	h.commits++
	return nil
}

func (h *testHost) Redirect(tr *transition.Transition, target transition.Target) (*transition.Transition, error) {
	chain, err := h.tree.PathTo(target.State)
	if err != nil {
		return nil, &transition.Error{Kind: transition.KindInvalidTransition, State: target.State, Err: err}
	}
	to := make(path.List, len(chain))
	for i, s := range chain {
		to[i] = path.NewNode(s, target.Params)
	}
	h.mu.Lock()
	h.latest++
	id := h.latest
	h.mu.Unlock()
	return transition.NewRedirect(tr, id, target, to)
}

func (h *testHost) Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func appTree() []state.State {
	return []state.State{
		{Name: "app"},
		{Name: "app.a"},
		{Name: "app.a.b"},
		{Name: "app.c"},
	}
}

func record(log *[]string, label string) transition.HookFunc {
	return func(_ context.Context, _ *transition.Transition, node *path.Node) (transition.Result, error) {
		name := ""
		if node != nil {
			name = node.Name()
		}
		*log = append(*log, label+":"+name)
		return nil, nil
	}
}

func TestPipeline_EventAndNodeOrder(t *testing.T) {
	host := newTestHost(t, appTree()...)
	reg := transition.NewRegistry()
	p := transition.NewPipeline(reg, host)

	var log []string
	for _, ev := range []string{
		transition.EventBefore, transition.EventStart, transition.EventExit,
		transition.EventRetain, transition.EventEnter, transition.EventFinish,
		transition.EventSuccess,
	} {
		_, err := reg.Register(ev, transition.Criteria{}, record(&log, ev))
		require.NoError(t, err)
	}

	ctx := context.Background()

	// Seed the current path at app.a.b.
	seed := host.create(t, "app.a.b", nil)
	require.NoError(t, p.Run(ctx, seed))
	assert.Equal(t, transition.StatusSuccess, seed.Status())

	log = nil
	tr := host.create(t, "app.c", nil)
	require.NoError(t, p.Run(ctx, tr))

	assert.Equal(t, []string{
		"onBefore:app.c",
		"onStart:app.c",
		"onExit:app.a.b", // leaf to root
		"onExit:app.a",
		"onRetain:app",
		"onEnter:app.c", // root to leaf
		"onFinish:app.c",
		"onSuccess:app.c",
	}, log)
}

func TestPipeline_EnterRootToLeafWithPriorities(t *testing.T) {
	host := newTestHost(t, appTree()...)
	reg := transition.NewRegistry()
	p := transition.NewPipeline(reg, host)

	var log []string
	// Registered child-first and with a lower priority: node order must
	// still dominate.
	_, err := reg.Register(transition.EventEnter,
		transition.Criteria{Entering: transition.MatchName("app.a.b")},
		record(&log, "b"), transition.WithPriority(0))
	require.NoError(t, err)
	_, err = reg.Register(transition.EventEnter,
		transition.Criteria{Entering: transition.MatchName("app.a")},
		record(&log, "a"), transition.WithPriority(1))
	require.NoError(t, err)

	tr := host.create(t, "app.a.b", nil)
	require.NoError(t, p.Run(context.Background(), tr))

	assert.Equal(t, []string{"a:app.a", "b:app.a.b"}, log)
}

func TestPipeline_PriorityWithinNode(t *testing.T) {
	host := newTestHost(t, appTree()...)
	reg := transition.NewRegistry()
	p := transition.NewPipeline(reg, host)

	var log []string
	_, err := reg.Register(transition.EventBefore, transition.Criteria{}, record(&log, "low"))
	require.NoError(t, err)
	_, err = reg.Register(transition.EventBefore, transition.Criteria{}, record(&log, "high"), transition.WithPriority(10))
	require.NoError(t, err)
	_, err = reg.Register(transition.EventBefore, transition.Criteria{}, record(&log, "low2"))
	require.NoError(t, err)

	tr := host.create(t, "app", nil)
	require.NoError(t, p.Run(context.Background(), tr))

	assert.Equal(t, []string{"high:app", "low:app", "low2:app"}, log,
		"priority desc, then registration order")
}

func TestPipeline_AbortStopsEverythingLater(t *testing.T) {
	host := newTestHost(t, appTree()...)
	reg := transition.NewRegistry()
	p := transition.NewPipeline(reg, host)

	var log []string
	_, err := reg.Register(transition.EventStart, transition.Criteria{},
		func(context.Context, *transition.Transition, *path.Node) (transition.Result, error) {
			return transition.Abort(), nil
		}, transition.WithHookName("guard"))
	require.NoError(t, err)
	_, err = reg.Register(transition.EventEnter, transition.Criteria{}, record(&log, "enter"))
	require.NoError(t, err)
	_, err = reg.Register(transition.EventFinish, transition.Criteria{}, record(&log, "finish"))
	require.NoError(t, err)
	_, err = reg.Register(transition.EventError, transition.Criteria{}, record(&log, "onError"))
	require.NoError(t, err)

	tr := host.create(t, "app.a", nil)
	err = p.Run(context.Background(), tr)

	require.Error(t, err)
	assert.ErrorIs(t, err, transition.ErrAborted)
	assert.Equal(t, transition.KindAborted, transition.KindOf(err))
	assert.Equal(t, transition.StatusError, tr.Status())

	var te *transition.Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "guard", te.Hook)
	assert.Equal(t, transition.EventStart, te.Event)

	assert.Equal(t, []string{"onError:app.a"}, log,
		"no later pipeline hook runs, only error observers")
	assert.Equal(t, 0, host.commits)
}

func TestPipeline_RedirectProducesReplacement(t *testing.T) {
	host := newTestHost(t, appTree()...)
	reg := transition.NewRegistry()
	p := transition.NewPipeline(reg, host)

	_, err := reg.Register(transition.EventBefore,
		transition.Criteria{To: transition.MatchName("app.a")},
		func(context.Context, *transition.Transition, *path.Node) (transition.Result, error) {
			return transition.RedirectTo("app.c", nil), nil
		})
	require.NoError(t, err)

	tr := host.create(t, "app.a", nil)
	require.NoError(t, p.Run(context.Background(), tr))

	assert.Equal(t, transition.StatusIgnored, tr.Status())
	next := tr.RedirectedTo()
	require.NotNil(t, next)
	assert.Equal(t, "app.c", next.Target().State)
	assert.Equal(t, tr.From().Names(), next.From().Names(),
		"replacement starts from the original source path")
	assert.Same(t, tr, next.RedirectedFrom())
	assert.Equal(t, []string{"app.a", "app.c"}, next.RedirectChain())

	// The replacement runs to success; waiting on the original follows
	// the chain.
	require.NoError(t, p.Run(context.Background(), next))
	assert.NoError(t, tr.Wait(context.Background()))
	assert.Equal(t, transition.StatusSuccess, next.Status())
}

func TestPipeline_RedirectCycleFails(t *testing.T) {
	host := newTestHost(t, appTree()...)
	reg := transition.NewRegistry()
	p := transition.NewPipeline(reg, host)

	// app.a and app.c bounce to each other forever.
	_, err := reg.Register(transition.EventBefore,
		transition.Criteria{To: transition.MatchName("app.a")},
		func(context.Context, *transition.Transition, *path.Node) (transition.Result, error) {
			return transition.RedirectTo("app.c", nil), nil
		})
	require.NoError(t, err)
	_, err = reg.Register(transition.EventBefore,
		transition.Criteria{To: transition.MatchName("app.c")},
		func(context.Context, *transition.Transition, *path.Node) (transition.Result, error) {
			return transition.RedirectTo("app.a", nil), nil
		})
	require.NoError(t, err)

	tr := host.create(t, "app.a", nil)
	require.NoError(t, p.Run(context.Background(), tr))
	next := tr.RedirectedTo()
	require.NotNil(t, next)

	err = p.Run(context.Background(), next)
	require.Error(t, err)
	assert.ErrorIs(t, err, transition.ErrRedirectCycle)
	assert.Equal(t, transition.StatusError, next.Status())
}

func TestPipeline_SupersededAtHookBoundary(t *testing.T) {
	host := newTestHost(t, appTree()...)
	reg := transition.NewRegistry()
	p := transition.NewPipeline(reg, host)

	var b *transition.Transition
	_, err := reg.Register(transition.EventBefore, transition.Criteria{},
		func(context.Context, *transition.Transition, *path.Node) (transition.Result, error) {
			// While A's hook runs, B is created. A must notice at its
			// next boundary.
			if b == nil {
				b = host.create(t, "app.c", nil)
			}
			return nil, nil
		})
	require.NoError(t, err)
	_, err = reg.Register(transition.EventFinish, transition.Criteria{},
		func(context.Context, *transition.Transition, *path.Node) (transition.Result, error) {
			t.Fatal("superseded transition must not reach onFinish")
			return nil, nil
		})
	require.NoError(t, err)

	a := host.create(t, "app.a", nil)
	err = p.Run(context.Background(), a)

	require.Error(t, err)
	assert.ErrorIs(t, err, transition.ErrSuperseded)
	assert.Equal(t, transition.StatusIgnored, a.Status())
	assert.Equal(t, 0, host.commits)
}

func TestPipeline_SupersededAtCommit(t *testing.T) {
	host := newTestHost(t, appTree()...)
	reg := transition.NewRegistry()
	p := transition.NewPipeline(reg, host)

	// No hooks at all: the commit re-check is the backstop.
	a := host.create(t, "app.a", nil)
	_ = host.create(t, "app.c", nil)

	err := p.Run(context.Background(), a)
	require.Error(t, err)
	assert.ErrorIs(t, err, transition.ErrSuperseded)
	assert.Equal(t, transition.StatusIgnored, a.Status())
}

func TestPipeline_SameStateIsIgnored(t *testing.T) {
	host := newTestHost(t, appTree()...)
	reg := transition.NewRegistry()
	p := transition.NewPipeline(reg, host)

	require.NoError(t, p.Run(context.Background(), host.create(t, "app.a", nil)))

	same := host.create(t, "app.a", nil)
	err := p.Run(context.Background(), same)
	require.Error(t, err)
	assert.ErrorIs(t, err, transition.ErrSameState)
	assert.Equal(t, transition.StatusIgnored, same.Status())

	// A forced reload re-enters the whole path instead.
	var log []string
	_, rerr := reg.Register(transition.EventEnter, transition.Criteria{}, record(&log, "enter"))
	require.NoError(t, rerr)
	reload := host.create(t, "app.a", nil, transition.WithReload())
	require.NoError(t, p.Run(context.Background(), reload))
	assert.Equal(t, []string{"enter:app", "enter:app.a"}, log)
}

func TestPipeline_HookErrorRejects(t *testing.T) {
	host := newTestHost(t, appTree()...)
	reg := transition.NewRegistry()
	p := transition.NewPipeline(reg, host)

	boom := errors.New("backend down")
	_, err := reg.Register(transition.EventEnter, transition.Criteria{},
		func(context.Context, *transition.Transition, *path.Node) (transition.Result, error) {
			return nil, boom
		}, transition.WithHookName("loader"))
	require.NoError(t, err)

	tr := host.create(t, "app.a", nil)
	err = p.Run(context.Background(), tr)

	require.ErrorIs(t, err, boom)
	assert.Equal(t, transition.KindHookFailed, transition.KindOf(err))
	assert.Equal(t, transition.StatusError, tr.Status())
	assert.ErrorIs(t, tr.Wait(context.Background()), boom)
}

func TestPipeline_ResolveKindSurvivesWrapping(t *testing.T) {
	host := newTestHost(t, appTree()...)
	reg := transition.NewRegistry()
	p := transition.NewPipeline(reg, host)

	_, err := reg.Register(transition.EventStart, transition.Criteria{},
		func(context.Context, *transition.Transition, *path.Node) (transition.Result, error) {
			return nil, &transition.Error{Kind: transition.KindResolveFailed, Err: resolve.ErrUnknownToken}
		})
	require.NoError(t, err)

	tr := host.create(t, "app.a", nil)
	err = p.Run(context.Background(), tr)
	assert.Equal(t, transition.KindResolveFailed, transition.KindOf(err))
	assert.ErrorIs(t, err, resolve.ErrUnknownToken)
}

func TestPipeline_ObserverErrorsAreLoggedNotEscalated(t *testing.T) {
	host := newTestHost(t, appTree()...)
	reg := transition.NewRegistry()
	p := transition.NewPipeline(reg, host)

	var observed []string
	_, err := reg.Register(transition.EventSuccess, transition.Criteria{},
		func(context.Context, *transition.Transition, *path.Node) (transition.Result, error) {
			return nil, errors.New("observer exploded")
		})
	require.NoError(t, err)
	_, err = reg.Register(transition.EventSuccess, transition.Criteria{}, record(&observed, "second"))
	require.NoError(t, err)

	tr := host.create(t, "app.a", nil)
	require.NoError(t, p.Run(context.Background(), tr), "observer failures never break a success")
	assert.Equal(t, transition.StatusSuccess, tr.Status())
	assert.Equal(t, []string{"second:app.a"}, observed, "later observers still run")
}

func TestPipeline_ContextCancellationAtBoundary(t *testing.T) {
	host := newTestHost(t, appTree()...)
	reg := transition.NewRegistry()
	p := transition.NewPipeline(reg, host)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := reg.Register(transition.EventBefore, transition.Criteria{},
		func(context.Context, *transition.Transition, *path.Node) (transition.Result, error) {
			cancel() // observed at the next hook boundary
			return nil, nil
		})
	require.NoError(t, err)
	_, err = reg.Register(transition.EventStart, transition.Criteria{},
		func(context.Context, *transition.Transition, *path.Node) (transition.Result, error) {
			t.Fatal("must not run after cancellation")
			return nil, nil
		})
	require.NoError(t, err)

	tr := host.create(t, "app.a", nil)
	err = p.Run(ctx, tr)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, transition.StatusError, tr.Status())
}

func TestPipeline_DeregisterDuringExecution(t *testing.T) {
	host := newTestHost(t, appTree()...)
	reg := transition.NewRegistry()
	p := transition.NewPipeline(reg, host)

	var log []string
	var deregLater transition.Deregister
	_, err := reg.Register(transition.EventBefore, transition.Criteria{},
		func(context.Context, *transition.Transition, *path.Node) (transition.Result, error) {
			log = append(log, "first")
			deregLater()
			deregLater() // idempotent
			return nil, nil
		})
	require.NoError(t, err)
	deregLater, err = reg.Register(transition.EventBefore, transition.Criteria{}, record(&log, "second"))
	require.NoError(t, err)

	tr := host.create(t, "app.a", nil)
	require.NoError(t, p.Run(context.Background(), tr))
	assert.Equal(t, []string{"first"}, log,
		"a hook removed mid-event is not invoked from the snapshot")
}

func TestPipeline_OnceHookRunsOnce(t *testing.T) {
	host := newTestHost(t, appTree()...)
	reg := transition.NewRegistry()
	p := transition.NewPipeline(reg, host)

	var log []string
	_, err := reg.Register(transition.EventBefore, transition.Criteria{},
		record(&log, "once"), transition.WithOnce())
	require.NoError(t, err)

	require.NoError(t, p.Run(context.Background(), host.create(t, "app.a", nil)))
	require.NoError(t, p.Run(context.Background(), host.create(t, "app.c", nil)))

	assert.Equal(t, []string{"once:app.a"}, log)
}

func TestPipeline_CriteriaFiltering(t *testing.T) {
	host := newTestHost(t, appTree()...)
	reg := transition.NewRegistry()
	p := transition.NewPipeline(reg, host)

	var toHits, enterHits, globHits []string
	_, err := reg.Register(transition.EventEnter,
		transition.Criteria{To: transition.MatchName("app.a")}, record(&toHits, "to"))
	require.NoError(t, err)
	_, err = reg.Register(transition.EventEnter,
		transition.Criteria{Entering: transition.MatchName("app.a")}, record(&enterHits, "entering"))
	require.NoError(t, err)
	_, err = reg.Register(transition.EventEnter,
		transition.Criteria{Entering: transition.MatchGlob("app.**")}, record(&globHits, "glob"))
	require.NoError(t, err)

	// Navigate to app.a.b: terminal is app.a.b, entering [app, app.a, app.a.b].
	tr := host.create(t, "app.a.b", nil)
	require.NoError(t, p.Run(context.Background(), tr))

	assert.Empty(t, toHits, "to criterion matches the terminal node only")
	assert.Equal(t, []string{"entering:app.a"}, enterHits,
		"path-scoped hooks run once per matching node")
	assert.Equal(t, []string{"glob:app", "glob:app.a", "glob:app.a.b"}, globHits,
		"glob matches the whole filtered sub-path")
}

func TestPipeline_CreatePhase(t *testing.T) {
	host := newTestHost(t, appTree()...)
	reg := transition.NewRegistry()
	p := transition.NewPipeline(reg, host)

	t.Run("create hooks are synchronous and can inject resolves", func(t *testing.T) {
		_, err := reg.Register(transition.EventCreate, transition.Criteria{},
			func(_ context.Context, tr *transition.Transition, _ *path.Node) (transition.Result, error) {
				tr.Changes().To.Terminal().AddResolve(resolve.Static("injected", "yes"))
				return nil, nil
			})
		require.NoError(t, err)

		tr := host.create(t, "app.a", nil)
		require.NoError(t, p.RunCreate(context.Background(), tr))

		v, err := tr.Resolve(context.Background(), "injected")
		require.NoError(t, err)
		assert.Equal(t, "yes", v)
	})

	t.Run("create hook errors fail creation synchronously", func(t *testing.T) {
		boom := errors.New("bad options")
		_, err := reg.Register(transition.EventCreate, transition.Criteria{},
			func(context.Context, *transition.Transition, *path.Node) (transition.Result, error) {
				return nil, boom
			})
		require.NoError(t, err)

		tr := host.create(t, "app.c", nil)
		err = p.RunCreate(context.Background(), tr)
		require.ErrorIs(t, err, boom)
		assert.Equal(t, transition.StatusError, tr.Status())
	})

	t.Run("registry freezes after the first transition", func(t *testing.T) {
		err := reg.DefineEvent(transition.EventType{
			Name: "onCustom", Phase: transition.PhaseRun, Order: 250, Slot: transition.SlotTo,
		})
		assert.ErrorIs(t, err, transition.ErrRegistryFrozen)
	})
}
