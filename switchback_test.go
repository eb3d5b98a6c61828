package switchback_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/switchback"
	"github.com/aretw0/switchback/pkg/adapters/memory"
	"github.com/aretw0/switchback/pkg/adapters/urlpat"
	"github.com/aretw0/switchback/pkg/path"
	"github.com/aretw0/switchback/pkg/resolve"
	"github.com/aretw0/switchback/pkg/state"
	"github.com/aretw0/switchback/pkg/transition"
)

// appStates is the tree most tests navigate:
//
//	app
//	├── app.login
//	└── app.users
//	    └── app.users.detail (:id)
func appStates() []state.State {
	return []state.State{
		{Name: "app", URL: "/"},
		{Name: "app.login", URL: "/login"},
		{Name: "app.users", URL: "/users"},
		{Name: "app.users.detail", URL: "/:id", Params: []state.Param{{Name: "id"}}},
	}
}

func TestFacade_Integration(t *testing.T) {
	// 1. Initialization
	router, err := switchback.New(switchback.WithStates(appStates()...))
	if err != nil {
		t.Fatalf("Failed to initialize router: %v", err)
	}
	if got := len(router.States()); got != 4 {
		t.Fatalf("Expected 4 registered states, got %d", got)
	}

	ctx := context.Background()

	// 2. Record lifecycle hooks along the way
	var mu sync.Mutex
	var log []string
	record := func(label string) transition.HookFunc {
		return func(ctx context.Context, tr *transition.Transition, node *path.Node) (transition.Result, error) {
			mu.Lock()
			log = append(log, label+":"+node.Name())
			mu.Unlock()
			return nil, nil
		}
	}
	if _, err := router.OnEnter(transition.Criteria{}, record("enter")); err != nil {
		t.Fatalf("OnEnter failed: %v", err)
	}
	if _, err := router.OnSuccess(transition.Criteria{}, record("success")); err != nil {
		t.Fatalf("OnSuccess failed: %v", err)
	}

	// 3. Navigate to a nested state with a parameter
	tr, err := router.Go(ctx, "app.users.detail", map[string]any{"id": "42"})
	if err != nil {
		t.Fatalf("Go failed: %v", err)
	}
	if tr.Status() != transition.StatusSuccess {
		t.Errorf("Expected StatusSuccess, got %s", tr.Status())
	}

	cur := router.Current()
	wantPath := []string{"app", "app.users", "app.users.detail"}
	if fmt.Sprint(cur.Names()) != fmt.Sprint(wantPath) {
		t.Errorf("Expected current path %v, got %v", wantPath, cur.Names())
	}
	if got := cur.Terminal().Param("id"); got != "42" {
		t.Errorf("Expected id param %q on terminal node, got %v", "42", got)
	}

	// 4. Hooks fired root to leaf, then the observer
	mu.Lock()
	gotLog := append([]string(nil), log...)
	mu.Unlock()
	wantLog := []string{
		"enter:app", "enter:app.users", "enter:app.users.detail",
		"success:app.users.detail",
	}
	if fmt.Sprint(gotLog) != fmt.Sprint(wantLog) {
		t.Errorf("Expected hook log %v, got %v", wantLog, gotLog)
	}

	// 5. Sibling navigation exits only the divergent suffix
	mu.Lock()
	log = nil
	mu.Unlock()
	if _, err := router.Go(ctx, "app.login", nil); err != nil {
		t.Fatalf("Go to sibling failed: %v", err)
	}
	mu.Lock()
	gotLog = append([]string(nil), log...)
	mu.Unlock()
	wantLog = []string{"enter:app.login", "success:app.login"}
	if fmt.Sprint(gotLog) != fmt.Sprint(wantLog) {
		t.Errorf("Expected sibling hook log %v, got %v", wantLog, gotLog)
	}
}

func TestNew_Validation(t *testing.T) {
	t.Run("no states", func(t *testing.T) {
		if _, err := switchback.New(); err == nil {
			t.Fatal("Expected error when no states are provided")
		}
	})

	t.Run("duplicate states", func(t *testing.T) {
		_, err := switchback.New(switchback.WithStates(
			state.State{Name: "a"},
			state.State{Name: "a"},
		))
		if !errors.Is(err, state.ErrDuplicate) {
			t.Fatalf("Expected ErrDuplicate, got %v", err)
		}
	})

	t.Run("loader and states combine", func(t *testing.T) {
		loader, err := memory.NewLoader(state.State{Name: "a"})
		if err != nil {
			t.Fatal(err)
		}
		router, err := switchback.New(
			switchback.WithLoader(loader),
			switchback.WithStates(state.State{Name: "a.b"}),
		)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		if got := len(router.States()); got != 2 {
			t.Errorf("Expected 2 states, got %d", got)
		}
		if router.Loader() != loader {
			t.Error("Expected Loader() to return the injected loader")
		}
	})

	t.Run("tree freezes", func(t *testing.T) {
		router, err := switchback.New(switchback.WithStates(state.State{Name: "a"}))
		if err != nil {
			t.Fatal(err)
		}
		if !router.Tree().Frozen() {
			t.Error("Expected tree to be frozen after New")
		}
		if err := router.Tree().Register(state.State{Name: "b"}); !errors.Is(err, state.ErrFrozen) {
			t.Errorf("Expected ErrFrozen, got %v", err)
		}
	})
}

func TestRouter_InvalidTargets(t *testing.T) {
	router, err := switchback.New(switchback.WithStates(
		state.State{Name: "app"},
		state.State{Name: "app.order", Params: []state.Param{{Name: "sku"}}},
		state.State{Name: "app.list", Params: []state.Param{{Name: "page", Optional: true, Default: 1}}},
	))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	t.Run("unknown state", func(t *testing.T) {
		_, err := router.Go(ctx, "app.ghost", nil)
		if !errors.Is(err, transition.ErrInvalidTransition) {
			t.Fatalf("Expected ErrInvalidTransition, got %v", err)
		}
		if !errors.Is(err, state.ErrNotFound) {
			t.Errorf("Expected the cause to be state.ErrNotFound, got %v", err)
		}
	})

	t.Run("missing required parameter", func(t *testing.T) {
		_, err := router.Go(ctx, "app.order", nil)
		if transition.KindOf(err) != transition.KindInvalidTransition {
			t.Fatalf("Expected KindInvalidTransition, got %v", err)
		}
	})

	t.Run("optional parameter defaults", func(t *testing.T) {
		tr, err := router.Go(ctx, "app.list", nil)
		if err != nil {
			t.Fatalf("Go failed: %v", err)
		}
		if got := tr.Changes().To.Terminal().Param("page"); got != 1 {
			t.Errorf("Expected default page 1, got %v", got)
		}
	})

	// Failed creates must not disturb the committed position.
	if terminal := router.Current().Terminal(); terminal == nil || terminal.Name() != "app.list" {
		t.Errorf("Expected current terminal app.list, got %v", router.Current().Names())
	}
}

func TestRouter_SameState(t *testing.T) {
	router, err := switchback.New(switchback.WithStates(appStates()...))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if _, err := router.Go(ctx, "app.users", nil); err != nil {
		t.Fatalf("first Go failed: %v", err)
	}

	// Same target again is a no-op and reports it.
	tr, err := router.Go(ctx, "app.users", nil)
	if !errors.Is(err, transition.ErrSameState) {
		t.Fatalf("Expected ErrSameState, got %v", err)
	}
	if tr.Status() != transition.StatusIgnored {
		t.Errorf("Expected StatusIgnored, got %s", tr.Status())
	}

	// WithReload forces the full exit/enter cycle.
	var entered []string
	if _, err := router.OnEnter(transition.Criteria{}, func(ctx context.Context, tr *transition.Transition, node *path.Node) (transition.Result, error) {
		entered = append(entered, node.Name())
		return nil, nil
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := router.Go(ctx, "app.users", nil, transition.WithReload()); err != nil {
		t.Fatalf("reload Go failed: %v", err)
	}
	want := []string{"app", "app.users"}
	if fmt.Sprint(entered) != fmt.Sprint(want) {
		t.Errorf("Expected reload to re-enter %v, got %v", want, entered)
	}
}

func TestRouter_GuardRedirect(t *testing.T) {
	router, err := switchback.New(switchback.WithStates(appStates()...))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	authenticated := false
	_, err = router.OnBefore(transition.Criteria{To: transition.MatchGlob("app.users.**")}, func(ctx context.Context, tr *transition.Transition, node *path.Node) (transition.Result, error) {
		if !authenticated {
			return transition.RedirectTo("app.login", nil), nil
		}
		return nil, nil
	}, transition.WithHookName("auth-guard"))
	if err != nil {
		t.Fatal(err)
	}

	// 1. Unauthenticated: the users transition lands on login instead.
	tr, err := router.Go(ctx, "app.users", nil)
	if err != nil {
		t.Fatalf("Go failed: %v", err)
	}
	if got := tr.Target().State; got != "app.login" {
		t.Errorf("Expected final attempt to target app.login, got %s", got)
	}
	if got := router.Current().Terminal().Name(); got != "app.login" {
		t.Errorf("Expected current terminal app.login, got %s", got)
	}

	// The original attempt is ignored in favor of the replacement and
	// the chain records both targets.
	orig := tr.RedirectedFrom()
	if orig == nil {
		t.Fatal("Expected the final attempt to know its origin")
	}
	if orig.Status() != transition.StatusIgnored {
		t.Errorf("Expected original status Ignored, got %s", orig.Status())
	}
	wantChain := []string{"app.users", "app.login"}
	if fmt.Sprint(tr.RedirectChain()) != fmt.Sprint(wantChain) {
		t.Errorf("Expected redirect chain %v, got %v", wantChain, tr.RedirectChain())
	}
	// Waiting on the original reports the replacement's outcome.
	if err := orig.Wait(ctx); err != nil {
		t.Errorf("Expected Wait on the original to succeed via the replacement, got %v", err)
	}

	// 2. Authenticated: the guard lets the transition through.
	authenticated = true
	if _, err := router.Go(ctx, "app.users", nil); err != nil {
		t.Fatalf("authenticated Go failed: %v", err)
	}
	if got := router.Current().Terminal().Name(); got != "app.users" {
		t.Errorf("Expected current terminal app.users, got %s", got)
	}
}

func TestRouter_EagerResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("values available on entered nodes", func(t *testing.T) {
		router, err := switchback.New(switchback.WithStates(
			state.State{Name: "org", Resolves: []resolve.Declaration{
				{Token: "orgName", Func: func(ctx context.Context, deps resolve.Deps) (any, error) {
					return "acme", nil
				}},
			}},
			state.State{Name: "org.team", Resolves: []resolve.Declaration{
				{Token: "roster", Deps: []string{"orgName"}, Func: func(ctx context.Context, deps resolve.Deps) (any, error) {
					return deps.String("orgName") + "/core", nil
				}},
			}},
		))
		if err != nil {
			t.Fatal(err)
		}

		var seen any
		if _, err := router.OnEnter(transition.Criteria{Entering: transition.MatchName("org.team")}, func(ctx context.Context, tr *transition.Transition, node *path.Node) (transition.Result, error) {
			v, ok := node.Resolved("roster")
			if !ok {
				return nil, errors.New("roster not resolved before enter")
			}
			seen = v
			return nil, nil
		}); err != nil {
			t.Fatal(err)
		}

		if _, err := router.Go(ctx, "org.team", nil); err != nil {
			t.Fatalf("Go failed: %v", err)
		}
		if seen != "acme/core" {
			t.Errorf("Expected resolved roster acme/core, got %v", seen)
		}
	})

	t.Run("retained parent does not re-run its provider", func(t *testing.T) {
		var runs int32
		router, err := switchback.New(switchback.WithStates(
			state.State{Name: "org", Resolves: []resolve.Declaration{
				{Token: "orgName", Func: func(ctx context.Context, deps resolve.Deps) (any, error) {
					atomic.AddInt32(&runs, 1)
					return "acme", nil
				}},
			}},
			state.State{Name: "org.team"},
			state.State{Name: "org.billing"},
		))
		if err != nil {
			t.Fatal(err)
		}

		if _, err := router.Go(ctx, "org.team", nil); err != nil {
			t.Fatalf("Go failed: %v", err)
		}
		if _, err := router.Go(ctx, "org.billing", nil); err != nil {
			t.Fatalf("Sibling Go failed: %v", err)
		}
		if got := atomic.LoadInt32(&runs); got != 1 {
			t.Errorf("Expected orgName provider to run once across sibling navigations, ran %d times", got)
		}
		org := router.Current().Node("org")
		if org == nil {
			t.Fatal("Expected org on the current path")
		}
		if v, ok := org.Resolved("orgName"); !ok || v != "acme" {
			t.Errorf("Expected retained org node to keep orgName=acme, got %v (ok=%v)", v, ok)
		}
	})

	t.Run("provider failure rejects the transition", func(t *testing.T) {
		router, err := switchback.New(switchback.WithStates(
			state.State{Name: "org"},
			state.State{Name: "org.billing", Resolves: []resolve.Declaration{
				{Token: "invoices", Func: func(ctx context.Context, deps resolve.Deps) (any, error) {
					return nil, errors.New("upstream down")
				}},
			}},
		))
		if err != nil {
			t.Fatal(err)
		}

		tr, err := router.Go(ctx, "org.billing", nil)
		if transition.KindOf(err) != transition.KindResolveFailed {
			t.Fatalf("Expected KindResolveFailed, got %v", err)
		}
		if tr.Status() != transition.StatusError {
			t.Errorf("Expected StatusError, got %s", tr.Status())
		}
		// Nothing was committed.
		if router.Current().Terminal() != nil {
			t.Errorf("Expected no committed path, got %v", router.Current().Names())
		}
	})
}

func TestRouter_Supersession(t *testing.T) {
	router, err := switchback.New(switchback.WithStates(appStates()...))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	older, err := router.CreateTransition(ctx, "app.users", nil)
	if err != nil {
		t.Fatalf("CreateTransition failed: %v", err)
	}
	newer, err := router.CreateTransition(ctx, "app.login", nil)
	if err != nil {
		t.Fatalf("CreateTransition failed: %v", err)
	}

	// The older transition lost the race before it started running.
	if err := router.Run(ctx, older); !errors.Is(err, transition.ErrSuperseded) {
		t.Fatalf("Expected ErrSuperseded for the older transition, got %v", err)
	}
	if older.Status() != transition.StatusIgnored {
		t.Errorf("Expected older status Ignored, got %s", older.Status())
	}

	if err := router.Run(ctx, newer); err != nil {
		t.Fatalf("Run of the newest transition failed: %v", err)
	}
	if got := router.Current().Terminal().Name(); got != "app.login" {
		t.Errorf("Expected current terminal app.login, got %s", got)
	}
}

func TestRouter_URLNavigation(t *testing.T) {
	loc := memory.NewLocation("/users/7")

	// No WithURLMatcher: the matcher is composed from the states' URLs.
	router, err := switchback.New(
		switchback.WithStates(appStates()...),
		switchback.WithLocation(loc),
	)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	// 1. Href renders URLs from the matcher built off the tree.
	href, err := router.Href("app.users.detail", map[string]any{"id": "7"})
	if err != nil {
		t.Fatalf("Href failed: %v", err)
	}
	if href != "/users/7" {
		t.Errorf("Expected /users/7, got %s", href)
	}
	if _, err := router.Href("app.ghost", nil); !errors.Is(err, state.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown state, got %v", err)
	}

	// 2. GoURL matches and navigates.
	tr, err := router.GoURL(ctx, "/users/7")
	if err != nil {
		t.Fatalf("GoURL failed: %v", err)
	}
	if got := tr.Target().State; got != "app.users.detail" {
		t.Errorf("Expected matched state app.users.detail, got %s", got)
	}
	if got := router.Current().Terminal().Param("id"); got != "7" {
		t.Errorf("Expected id 7, got %v", got)
	}
	if _, err := router.GoURL(ctx, "/nope/nope/nope"); transition.KindOf(err) != transition.KindInvalidTransition {
		t.Errorf("Expected KindInvalidTransition for unmatched URL, got %v", err)
	}

	// 3. Committed transitions write back only when asked.
	if _, err := router.Go(ctx, "app.login", nil); err != nil {
		t.Fatal(err)
	}
	if cur, _ := loc.Current(); cur != "/users/7" {
		t.Errorf("Expected location untouched without WithLocation, got %s", cur)
	}
	if _, err := router.Go(ctx, "app.users", nil, transition.WithLocation(transition.LocationPush)); err != nil {
		t.Fatal(err)
	}
	if cur, _ := loc.Current(); cur != "/users" {
		t.Errorf("Expected location /users after push, got %s", cur)
	}

	// 4. An explicit matcher replaces the tree-derived default.
	t.Run("explicit matcher wins", func(t *testing.T) {
		custom := urlpat.New()
		if err := custom.Register("app.login", "/signin"); err != nil {
			t.Fatal(err)
		}
		router, err := switchback.New(
			switchback.WithStates(appStates()...),
			switchback.WithURLMatcher(custom),
		)
		if err != nil {
			t.Fatal(err)
		}
		href, err := router.Href("app.login", nil)
		if err != nil {
			t.Fatalf("Href failed: %v", err)
		}
		if href != "/signin" {
			t.Errorf("Expected /signin from the custom matcher, got %s", href)
		}
	})
}

func TestRouter_BindLocation(t *testing.T) {
	loc := memory.NewLocation("/login")
	router, err := switchback.New(
		switchback.WithStates(appStates()...),
		switchback.WithLocation(loc),
	)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Binding navigates to the location's current URL synchronously.
	if err := router.BindLocation(ctx); err != nil {
		t.Fatalf("BindLocation failed: %v", err)
	}
	if got := router.Current().Terminal().Name(); got != "app.login" {
		t.Fatalf("Expected initial navigation to app.login, got %s", got)
	}

	// External pushes drive the router.
	if err := loc.Push("/users/9"); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		terminal := router.Current().Terminal()
		if terminal != nil && terminal.Name() == "app.users.detail" {
			if got := terminal.Param("id"); got != "9" {
				t.Errorf("Expected id 9 from location, got %v", got)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Router never followed the location change, current: %v", router.Current().Names())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// recordingViews captures activation order for assertions.
type recordingViews struct {
	mu  sync.Mutex
	log []string
}

func (v *recordingViews) Activate(ctx context.Context, node *path.Node) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.log = append(v.log, "activate:"+node.Name())
	return nil
}

func (v *recordingViews) Deactivate(ctx context.Context, node *path.Node) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.log = append(v.log, "deactivate:"+node.Name())
	return nil
}

func (v *recordingViews) snapshot() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.log...)
}

func TestRouter_ViewActivation(t *testing.T) {
	views := &recordingViews{}
	router, err := switchback.New(
		switchback.WithStates(appStates()...),
		switchback.WithViews(views),
	)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if _, err := router.Go(ctx, "app.users.detail", map[string]any{"id": "1"}); err != nil {
		t.Fatal(err)
	}
	if _, err := router.Go(ctx, "app.login", nil); err != nil {
		t.Fatal(err)
	}

	want := []string{
		"activate:app", "activate:app.users", "activate:app.users.detail",
		"deactivate:app.users.detail", "deactivate:app.users",
		"activate:app.login",
	}
	if got := views.snapshot(); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Expected view log %v, got %v", want, got)
	}
}

func TestRouter_SnapshotRestore(t *testing.T) {
	store := memory.NewStore()
	newRouter := func() *switchback.Router {
		router, err := switchback.New(
			switchback.WithStates(appStates()...),
			switchback.WithSnapshots(store),
		)
		if err != nil {
			t.Fatal(err)
		}
		return router
	}

	ctx := context.Background()
	first := newRouter()

	// Nothing to snapshot before the first navigation.
	if err := first.Snapshot(ctx, "sess-1"); err == nil {
		t.Error("Expected Snapshot to fail before any navigation")
	}

	if _, err := first.Go(ctx, "app.users.detail", map[string]any{"id": "31"}); err != nil {
		t.Fatal(err)
	}
	if err := first.Snapshot(ctx, "sess-1"); err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	// A fresh router restores the position from the store.
	second := newRouter()
	tr, err := second.Restore(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if got := tr.Target().State; got != "app.users.detail" {
		t.Errorf("Expected restored state app.users.detail, got %s", got)
	}
	if got := second.Current().Terminal().Param("id"); got != "31" {
		t.Errorf("Expected restored id 31, got %v", got)
	}

	if _, err := second.Restore(ctx, "missing"); err == nil {
		t.Error("Expected Restore of an unknown session to fail")
	}
}

func TestRouter_CustomEvent(t *testing.T) {
	router, err := switchback.New(
		switchback.WithStates(appStates()...),
		switchback.WithEvent(transition.EventType{
			Name:  "onPreload",
			Phase: transition.PhaseRun,
			Order: 50, // between onStart and onExit
			Slot:  transition.SlotEntering,
		}),
	)
	if err != nil {
		t.Fatal(err)
	}

	var preloaded []string
	if _, err := router.On("onPreload", transition.Criteria{}, func(ctx context.Context, tr *transition.Transition, node *path.Node) (transition.Result, error) {
		preloaded = append(preloaded, node.Name())
		return nil, nil
	}); err != nil {
		t.Fatalf("On(onPreload) failed: %v", err)
	}

	if _, err := router.Go(context.Background(), "app.users", nil); err != nil {
		t.Fatal(err)
	}
	want := []string{"app", "app.users"}
	if fmt.Sprint(preloaded) != fmt.Sprint(want) {
		t.Errorf("Expected preload for %v, got %v", want, preloaded)
	}

	// The registry froze with the first transition.
	if err := router.DefineEvent(transition.EventType{Name: "late", Phase: transition.PhaseRun, Order: 60, Slot: transition.SlotTo}); !errors.Is(err, transition.ErrRegistryFrozen) {
		t.Errorf("Expected ErrRegistryFrozen, got %v", err)
	}
}

func TestRouter_WatchRequiresWatchableLoader(t *testing.T) {
	router, err := switchback.New(switchback.WithStates(state.State{Name: "a"}))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := router.Watch(context.Background()); err == nil {
		t.Error("Expected Watch to fail without a watchable loader")
	}
}
