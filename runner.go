package switchback

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aretw0/switchback/pkg/path"
	"github.com/aretw0/switchback/pkg/transition"
)

// Runner handles an interactive navigation loop over a Router using provided IO.
// This allows for easy testing and integration with different frontends (CLI, TUI, etc).
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Headless bool
	Renderer ContentRenderer
}

// ContentRenderer is a function that transforms a state's doc before outputting it.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)

// NewRunner creates a new Runner. Input and Output must be set by the
// caller (use os.Stdin / os.Stdout).
func NewRunner() *Runner {
	return &Runner{}
}

// Run executes the navigation loop until EOF or an explicit exit.
// Each input line is a state name optionally followed by key=value
// parameters, e.g. "users.detail id=42".
func (r *Runner) Run(ctx context.Context, router *Router) error {
	if r.Input == nil {
		return fmt.Errorf("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return fmt.Errorf("output writer must be set (use os.Stdout)")
	}
	lineReader := bufio.NewReader(r.Input)

	if !r.Headless {
		fmt.Fprintln(r.Output, "--- Switchback (Runner) ---")
	}

	lastShown := ""
	for {
		// 1. Render Phase: show where we are and what the state documents.
		current := router.Current()
		here := "(nowhere)"
		if t := current.Terminal(); t != nil {
			here = t.Name()
			if doc := t.State().Doc; doc != "" && here != lastShown {
				output := doc
				if r.Renderer != nil {
					if rendered, err := r.Renderer(doc); err == nil {
						output = rendered
					}
				}
				fmt.Fprintln(r.Output, strings.TrimSpace(output))
			}
			lastShown = here
		}

		if !r.Headless {
			fmt.Fprintf(r.Output, "at %s\n", here)
			if kids := r.children(router, current.Terminal()); len(kids) > 0 {
				fmt.Fprintf(r.Output, "  -> %s\n", strings.Join(kids, ", "))
			}
			fmt.Fprint(r.Output, "> ")
		}

		// 2. Wait Phase: read the next destination.
		text, err := lineReader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("input error: %w", err)
		}
		input := strings.TrimSpace(text)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Fprintln(r.Output, "Bye!")
			break
		}

		// 3. Navigate Phase.
		target, params := parseCommand(input)
		tr, err := router.Go(ctx, target, params)
		if err != nil {
			if transition.KindOf(err) == transition.KindSameState {
				fmt.Fprintln(r.Output, "already there")
				continue
			}
			fmt.Fprintf(r.Output, "navigation failed: %v\n", err)
			continue
		}
		if !r.Headless {
			fmt.Fprintf(r.Output, "ok: %s\n", tr.To().Terminal().Name())
		}
	}
	return nil
}

// children lists the names of the current state's direct children, or
// the root states when the router has not navigated yet.
func (r *Runner) children(router *Router, terminal *path.Node) []string {
	parent := ""
	if terminal != nil {
		parent = terminal.Name()
	}
	var kids []string
	for _, s := range router.States() {
		if s.ParentName() == parent {
			kids = append(kids, s.Name)
		}
	}
	sort.Strings(kids)
	return kids
}

// parseCommand splits "state key=value key=value" into a target and its
// parameter values.
func parseCommand(input string) (string, map[string]any) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return "", nil
	}
	target := fields[0]
	var params map[string]any
	for _, f := range fields[1:] {
		k, v, ok := strings.Cut(f, "=")
		if !ok {
			continue
		}
		if params == nil {
			params = make(map[string]any)
		}
		params[k] = v
	}
	return target, params
}
