// Package process implements ports.ViewActivator over local processes:
// entering and exiting states run registered commands. It follows a
// strict allow-list: only states registered up front execute anything,
// unless inline commands from the tree's data sections are explicitly
// enabled.
package process

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/aretw0/switchback/pkg/path"
)

const defaultTimeout = 30 * time.Second

// Activator runs view commands for entering and exiting states.
type Activator struct {
	registry    map[string]ViewConfig
	allowInline bool
	baseDir     string
	timeout     time.Duration
	logger      *slog.Logger
}

// Option configures the activator.
type Option func(*Activator)

// WithViews populates the allow-list from a loaded config.
func WithViews(views map[string]ViewConfig) Option {
	return func(a *Activator) {
		for name, cfg := range views {
			a.registry[name] = cfg
		}
	}
}

// WithInlineCommands allows states to declare their own commands in the
// data section under "exec-enter" and "exec-exit". Dangerous: whoever
// writes the tree decides what runs.
func WithInlineCommands(allow bool) Option {
	return func(a *Activator) { a.allowInline = allow }
}

// WithBaseDir sets the working directory for executed commands.
func WithBaseDir(dir string) Option {
	return func(a *Activator) { a.baseDir = dir }
}

// WithTimeout bounds each command. Zero disables the bound; the default
// is 30 seconds so a hung script cannot stall transitions forever.
func WithTimeout(d time.Duration) Option {
	return func(a *Activator) { a.timeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Activator) { a.logger = logger }
}

// New creates a process-backed view activator.
func New(opts ...Option) *Activator {
	a := &Activator{
		registry: make(map[string]ViewConfig),
		timeout:  defaultTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return a
}

// Register adds a trusted view config for a state.
func (a *Activator) Register(state string, cfg ViewConfig) {
	cfg.State = state
	a.registry[state] = cfg
}

// Activate runs the state's enter command, if any.
func (a *Activator) Activate(ctx context.Context, node *path.Node) error {
	return a.run(ctx, node, "enter")
}

// Deactivate runs the state's exit command, if any.
func (a *Activator) Deactivate(ctx context.Context, node *path.Node) error {
	return a.run(ctx, node, "exit")
}

func (a *Activator) run(ctx context.Context, node *path.Node, event string) error {
	spec := a.lookup(node, event)
	if spec == nil {
		// Most states have no view command; that is not an error.
		return nil
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, spec.Command, spec.Args...)
	cmd.Dir = a.baseDir
	cmd.Env = append(cmd.Environ(), a.environ(node, event)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("view command for state %q (%s) failed: %w: %s", node.Name(), event, err, msg)
		}
		return fmt.Errorf("view command for state %q (%s) failed: %w", node.Name(), event, err)
	}

	a.logger.Debug("view command finished",
		"state", node.Name(), "event", event, "took", time.Since(start))
	if out := strings.TrimSpace(stdout.String()); out != "" {
		a.logger.Debug("view command output", "state", node.Name(), "output", out)
	}
	return nil
}

// lookup picks the command for a node and event: the registry first,
// then the state's own data section when inline commands are enabled.
func (a *Activator) lookup(node *path.Node, event string) *CommandSpec {
	if cfg, ok := a.registry[node.Name()]; ok {
		spec := cfg.Exit
		if event == "enter" {
			spec = cfg.Enter
		}
		if spec != nil && spec.Command != "" {
			return spec
		}
		return nil
	}

	if !a.allowInline {
		return nil
	}
	raw, ok := node.State().Data["exec-"+event]
	if !ok {
		return nil
	}
	line, _ := raw.(string)
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	return &CommandSpec{Command: fields[0], Args: fields[1:]}
}

// environ exposes the node's identity and parameter values to the
// command. Values are passed as environment variables rather than argv
// so a parameter cannot inject flags.
func (a *Activator) environ(node *path.Node, event string) []string {
	env := []string{
		"SWITCHBACK_STATE=" + node.Name(),
		"SWITCHBACK_EVENT=" + event,
	}
	for k, v := range node.Params() {
		var val string
		switch v.(type) {
		case string, int, int64, float64, bool:
			val = fmt.Sprintf("%v", v)
		case nil:
			val = ""
		default:
			if data, err := json.Marshal(v); err == nil {
				val = string(data)
			} else {
				val = fmt.Sprintf("%v", v)
			}
		}
		env = append(env, fmt.Sprintf("SWITCHBACK_PARAM_%s=%s", strings.ToUpper(k), val))
	}
	return env
}
