/*
Package switchback is a hierarchical state-based navigation engine: a
router that treats an application's places as a tree of named states and
every navigation as a first-class Transition with a deterministic hook
pipeline around it.

It separates the state tree (where you can be) from path nodes (where you
are, with which parameters) and from transitions (how you got there), so
hooks, resolved data and redirects stay inspectable instead of being
side effects.

# Concept

Switchback computes, for every navigation, which states are entered,
exited and retained, then drives a fixed waterfall of lifecycle events
over those paths: onBefore, onStart, onExit (leaf to root), onRetain,
onEnter, onFinish, with onSuccess/onError observers after the outcome.
Hooks can abort, redirect, or feed on data the resolve graph fetched for
the entering states. Only the most recently created transition may win;
earlier in-flight ones settle as Ignored. This Hexagonal Architecture
allows Switchback to be embedded in any interface: CLI, HTTP server, or
MCP agent infrastructure.

# Key Features

  - Deterministic Execution: hook order is fully defined by (phase, order, node, priority, registration).
  - Hexagonal Architecture: core logic is decoupled from adapters (Tree sources, URLs, Storage, Views).
  - Resolve Graph: per-node memoized data dependencies with eager and lazy policies and cycle detection.
  - Session Persistence: snapshot and restore the router's position ("Stop & Resume").

# Usage

Initialize the router with a set of states, register hooks, then
navigate.

	package main

	import (
		"context"
		"log"

		"github.com/aretw0/switchback"
		"github.com/aretw0/switchback/pkg/path"
		"github.com/aretw0/switchback/pkg/state"
		"github.com/aretw0/switchback/pkg/transition"
	)

	func main() {
		router, err := switchback.New(
			switchback.WithStates(
				state.State{Name: "app"},
				state.State{Name: "app.users"},
				state.State{Name: "app.users.detail", Params: []state.Param{{Name: "id"}}},
			),
		)
		if err != nil {
			log.Fatal(err)
		}

		// Guard: nobody reaches a detail page without an id.
		_, _ = router.OnBefore(transition.Criteria{To: transition.MatchGlob("app.users.**")},
			func(ctx context.Context, tr *transition.Transition, _ *path.Node) (transition.Result, error) {
				if tr.Params()["id"] == "" {
					return transition.RedirectTo("app.users", nil), nil
				}
				return nil, nil
			})

		ctx := context.Background()
		tr, err := router.Go(ctx, "app.users.detail", map[string]any{"id": "42"})
		if err != nil {
			log.Fatal(err)
		}
		log.Println("now at:", tr.To().Terminal().Name())
	}
*/
package switchback
