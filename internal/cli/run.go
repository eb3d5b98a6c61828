package cli

import (
	"context"
	"os"

	"github.com/aretw0/switchback"
	"github.com/aretw0/switchback/internal/presentation/tui"
)

// RunSession runs one interactive navigation session over the source.
func RunSession(opts RunOptions) error {
	logger := createLogger(opts.Debug)

	if !opts.Headless {
		tui.PrintBanner(os.Stdout, switchback.Version)
	}

	router, err := BuildRouter(opts, logger)
	if err != nil {
		return err
	}

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	if opts.SessionID != "" {
		if resumed := restoreSession(sigCtx, router, opts.SessionID, logger); resumed != "" {
			logger.Info("session resumed", "session_id", opts.SessionID, "state", resumed)
			if !opts.Headless {
				printSystemMessage("Resuming at '%s'.", resumed)
			}
		} else if !opts.Headless {
			printSystemMessage("Session '%s' active.", opts.SessionID)
		}
		if err := keepSnapshot(router, opts.SessionID, logger); err != nil {
			return err
		}
	}

	runner := &switchback.Runner{
		Input:    newLinePump(os.Stdin).Reader(sigCtx),
		Output:   os.Stdout,
		Headless: opts.Headless,
	}
	if !opts.Headless {
		runner.Renderer = tui.NewRenderer()
	}

	runErr := runner.Run(sigCtx, router)
	if runErr == nil && sigCtx.Err() != nil {
		runErr = sigCtx.Err()
	}

	logCompletion(router, runErr, opts.Headless, sigCtx.Signal())
	return handleExecutionError(runErr)
}
