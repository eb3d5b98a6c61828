package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/aretw0/switchback"
	"github.com/aretw0/switchback/internal/logging"
	"github.com/aretw0/switchback/pkg/path"
	"github.com/aretw0/switchback/pkg/ports"
	"github.com/aretw0/switchback/pkg/transition"
)

// SignalContext is a context canceled by SIGINT or SIGTERM that remembers
// which signal fired, so shutdown messages can tell Ctrl+C from a kill.
type SignalContext struct {
	context.Context
	Cancel context.CancelFunc

	mu     sync.Mutex
	sigVal os.Signal
}

// NewSignalContext creates a context that is canceled on SIGINT or
// SIGTERM. Callers must call Cancel to release the signal handler.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{Context: ctx, Cancel: cancel}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			sc.mu.Lock()
			sc.sigVal = sig
			sc.mu.Unlock()
			sc.Cancel()
		case <-ctx.Done():
		}
	}()
	return sc
}

// Signal returns the signal that canceled the context, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// createLogger configures the run loop logger. Debug logs go to stderr
// so they never interleave with the flow on stdout.
func createLogger(debug bool) *slog.Logger {
	if debug {
		return logging.New(slog.LevelDebug)
	}
	return logging.NewNop()
}

// printSystemMessage prints a standardized system message to stdout.
func printSystemMessage(format string, args ...any) {
	fmt.Printf(">>> %s\n", fmt.Sprintf(format, args...))
}

func isInterrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, io.EOF)
}

// handleExecutionError maps interruptions to a clean exit.
func handleExecutionError(err error) error {
	if err == nil || isInterrupted(err) {
		return nil
	}
	return err
}

// logCompletion prints where the session ended and why.
func logCompletion(router *switchback.Router, err error, quiet bool, sig os.Signal) {
	if quiet {
		return
	}
	here := "(nowhere)"
	if t := router.Current().Terminal(); t != nil {
		here = t.Name()
	}
	if err == nil {
		printSystemMessage("Finished at '%s'.", here)
		return
	}
	if isInterrupted(err) {
		if sig == os.Interrupt {
			// The ^C landed mid-prompt; move off that line first.
			fmt.Printf("\n")
		}
		printSystemMessage("Interrupted at '%s'.", here)
	}
}

// restoreSession navigates to the persisted snapshot if one exists,
// returning the resumed state name or "" when starting fresh. A
// snapshot pointing at a state the tree no longer has is reported and
// skipped rather than aborting the run.
func restoreSession(ctx context.Context, router *switchback.Router, sessionID string, logger *slog.Logger) string {
	tr, err := router.Restore(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, ports.ErrSnapshotNotFound) {
			logger.Warn("session restore failed", "session_id", sessionID, "err", err)
		}
		return ""
	}
	return tr.To().Terminal().Name()
}

// keepSnapshot persists the position after every committed transition so
// an interrupt or reload resumes where the user left off.
func keepSnapshot(router *switchback.Router, sessionID string, logger *slog.Logger) error {
	_, err := router.OnSuccess(transition.Criteria{}, func(ctx context.Context, _ *transition.Transition, _ *path.Node) (transition.Result, error) {
		if err := router.Snapshot(ctx, sessionID); err != nil {
			logger.Warn("snapshot failed", "session_id", sessionID, "err", err)
		}
		return nil, nil
	}, transition.WithHookName("cli.snapshot"))
	return err
}

// attachDebugHooks logs every lifecycle boundary of every transition.
func attachDebugHooks(router *switchback.Router, logger *slog.Logger) {
	observe := func(event string) transition.HookFunc {
		return func(_ context.Context, tr *transition.Transition, node *path.Node) (transition.Result, error) {
			attrs := []any{"transition_id", tr.ID(), "target", tr.Target().State}
			if node != nil {
				attrs = append(attrs, "state", node.Name())
			}
			if err := tr.Err(); err != nil {
				attrs = append(attrs, "err", err)
			}
			logger.Debug(event, attrs...)
			return nil, nil
		}
	}
	// The built-in events always exist, so registration cannot fail.
	_, _ = router.OnStart(transition.Criteria{}, observe("transition start"), transition.WithHookName("cli.debug"))
	_, _ = router.OnExit(transition.Criteria{}, observe("state exit"), transition.WithHookName("cli.debug"))
	_, _ = router.OnEnter(transition.Criteria{}, observe("state enter"), transition.WithHookName("cli.debug"))
	_, _ = router.OnSuccess(transition.Criteria{}, observe("transition success"), transition.WithHookName("cli.debug"))
	_, _ = router.OnError(transition.Criteria{}, observe("transition error"), transition.WithHookName("cli.debug"))

	for event, n := range router.HookCounts() {
		logger.Debug("hooks registered", "event", event, "count", n)
	}
}
