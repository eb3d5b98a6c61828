// Package cli holds the command logic shared by cmd/switchback: tree
// source selection, router assembly with CLI conventions, and the
// interactive run and watch loops.
package cli

import (
	"context"
	"crypto/md5"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/switchback"
	"github.com/aretw0/switchback/pkg/adapters/file"
	"github.com/aretw0/switchback/pkg/adapters/loam"
	"github.com/aretw0/switchback/pkg/adapters/process"
	"github.com/aretw0/switchback/pkg/adapters/yamlfile"
	"github.com/aretw0/switchback/pkg/ports"
)

// RunOptions carries the configuration of the run command.
type RunOptions struct {
	Source       string // tree file or directory
	Headless     bool
	Watch        bool
	Debug        bool
	SessionID    string
	Fresh        bool
	ViewsPath    string
	UnsafeInline bool
}

// Execute dispatches the run command into session or watch mode.
func Execute(opts RunOptions) error {
	if opts.Watch {
		if opts.Headless {
			return fmt.Errorf("--watch and --headless cannot be used together")
		}
		return RunWatch(opts)
	}
	if opts.Fresh {
		ResetSession(opts.Source, opts.SessionID)
	}
	return RunSession(opts)
}

// OpenLoader picks the tree loader for a source path: a directory opens
// as a loam repository (one state per document), a file parses as a
// single YAML/JSON tree document.
func OpenLoader(source string) (ports.TreeLoader, error) {
	info, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("cannot open tree source %q: %w", source, err)
	}
	if info.IsDir() {
		return loam.Open(source)
	}
	return yamlfile.New(source), nil
}

// BaseDir is the directory relative paths resolve against: the source
// itself when it is a directory, its parent when it is a file.
func BaseDir(source string) string {
	if info, err := os.Stat(source); err == nil && info.IsDir() {
		return source
	}
	return filepath.Dir(source)
}

// BuildRouter assembles a router with CLI conventions: the loader for
// the source, view commands when a views file is configured or present,
// and a file-backed snapshot store when a session is requested.
func BuildRouter(opts RunOptions, logger *slog.Logger) (*switchback.Router, error) {
	loader, err := OpenLoader(opts.Source)
	if err != nil {
		return nil, err
	}

	routerOpts := []switchback.Option{
		switchback.WithLoader(loader),
		switchback.WithLogger(logger),
	}

	activator, err := buildViews(opts, logger)
	if err != nil {
		return nil, err
	}
	if activator != nil {
		routerOpts = append(routerOpts, switchback.WithViews(activator))
	}

	if opts.SessionID != "" {
		routerOpts = append(routerOpts, switchback.WithSnapshots(SessionStore(opts.Source)))
	}

	router, err := switchback.New(routerOpts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing router: %w", err)
	}
	if opts.Debug {
		attachDebugHooks(router, logger)
	}
	return router, nil
}

// buildViews loads view commands for the source. Smart convention: with
// no explicit path, a views.yaml next to the source is picked up when it
// exists, and silence means no view activator at all. Inline commands
// still need an activator even without a config file.
func buildViews(opts RunOptions, logger *slog.Logger) (*process.Activator, error) {
	path := opts.ViewsPath
	if path == "" {
		path = filepath.Join(BaseDir(opts.Source), "views.yaml")
	}
	views, err := process.LoadViews(path)
	if err != nil {
		return nil, err
	}
	if len(views) == 0 && !opts.UnsafeInline {
		return nil, nil
	}
	return process.New(
		process.WithViews(views),
		process.WithInlineCommands(opts.UnsafeInline),
		process.WithBaseDir(BaseDir(opts.Source)),
		process.WithLogger(logger),
	), nil
}

// SessionStore returns the file-backed snapshot store for a source,
// rooted at <base>/.switchback/sessions.
func SessionStore(source string) *file.Store {
	return file.NewStore(filepath.Join(BaseDir(source), ".switchback", "sessions"))
}

// ResetSession discards the persisted snapshot for the session ID.
func ResetSession(source, sessionID string) {
	if sessionID == "" {
		sessionID = defaultWatchSession(source)
	}
	_ = SessionStore(source).Delete(context.Background(), sessionID)
}

// defaultWatchSession derives a stable session ID from the source path
// so concurrent watchers on different trees do not share state.
func defaultWatchSession(source string) string {
	abs, err := filepath.Abs(source)
	if err != nil {
		abs = source
	}
	sum := md5.Sum([]byte(abs))
	return fmt.Sprintf("watch-%x", sum[:4])
}
