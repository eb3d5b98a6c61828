package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aretw0/switchback"
	"github.com/aretw0/switchback/internal/presentation/tui"
)

// RunWatch reloads the tree whenever the source changes, carrying the
// session position across reloads (stateful hot reload).
func RunWatch(opts RunOptions) error {
	logger := createLogger(opts.Debug)
	tui.PrintBanner(os.Stdout, switchback.Version)

	// Scope the default session by source path so two watched projects
	// do not share a position.
	if opts.SessionID == "" {
		opts.SessionID = defaultWatchSession(opts.Source)
	}
	if opts.Fresh {
		ResetSession(opts.Source, opts.SessionID)
	}

	logger.Info("starting watcher", "source", opts.Source, "session_id", opts.SessionID)
	printSystemMessage("Watching '%s' (session '%s').", opts.Source, opts.SessionID)

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	// One stdin pump for all iterations; reloads only swap its reader.
	pump := newLinePump(os.Stdin)

	for {
		again, err := watchIteration(sigCtx, opts, pump, logger)
		if err != nil {
			return err
		}
		if !again {
			return nil
		}
		logger.Info("watcher restarting")
	}
}

// watchIteration runs the tree until it changes, the user exits, or a
// signal arrives. It reports whether the watch loop should go again.
func watchIteration(parentCtx *SignalContext, opts RunOptions, pump *linePump, logger *slog.Logger) (bool, error) {
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	router, err := BuildRouter(opts, logger)
	if err != nil {
		// A broken tree mid-edit is normal in watch mode: report, give
		// the author a moment, retry.
		printSystemMessage("Load failed: %v", err)
		select {
		case <-parentCtx.Done():
			return false, nil
		case <-time.After(2 * time.Second):
			return true, nil
		}
	}

	watchCh, err := router.Watch(ctx)
	if err != nil {
		return false, fmt.Errorf("source does not support watching: %w", err)
	}

	if resumed := restoreSession(ctx, router, opts.SessionID, logger); resumed != "" {
		printSystemMessage("Resuming at '%s'.", resumed)
	}
	if err := keepSnapshot(router, opts.SessionID, logger); err != nil {
		return false, err
	}

	runner := &switchback.Runner{
		Input:    pump.Reader(ctx),
		Output:   os.Stdout,
		Renderer: tui.NewRenderer(),
	}

	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx, router) }()

	select {
	case <-parentCtx.Done():
		cancel()
		<-done
		logCompletion(router, context.Canceled, false, parentCtx.Signal())
		logger.Info("stopping watcher", "signal", parentCtx.Signal())
		return false, nil

	case _, ok := <-watchCh:
		if !ok {
			// The watcher shut down underneath us.
			cancel()
			<-done
			return false, nil
		}
		printSystemMessage("Change detected, reloading...")
		// Give the file system a beat to settle before re-reading.
		time.Sleep(100 * time.Millisecond)
		cancel()
		<-done
		return true, nil

	case runErr := <-done:
		// The user exited or stdin closed.
		logCompletion(router, runErr, false, nil)
		return false, handleExecutionError(runErr)
	}
}
