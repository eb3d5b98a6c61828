package transition

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/aretw0/switchback/pkg/path"
	"github.com/aretw0/switchback/pkg/resolve"
)

// Status is the lifecycle position of a transition. Success, Error and
// Ignored are terminal; a terminal transition never changes again.
type Status int32

const (
	StatusCreated Status = iota
	StatusRunning
	StatusSuccess
	StatusError
	StatusIgnored
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusRunning:
		return "running"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	case StatusIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusError || s == StatusIgnored
}

// Transition is one navigation attempt: the computed tree changes, the
// live resolve graph, and the state machine the pipeline drives to
// Success, Error or Ignored.
type Transition struct {
	id        uint64
	createdAt time.Time
	target    Target
	from      path.List
	to        path.List
	changes   *path.Changes
	chain     []string
	prev      *Transition

	graphOnce sync.Once
	graph     *resolve.Graph

	status *atomic.Int32
	event  *atomic.String

	mu         sync.Mutex
	redirected *Transition
	err        error
	done       chan struct{}
}

// New builds a transition with the given monotonic id from a source path
// to a target path (root to leaf, already instantiated). Tree changes
// are computed eagerly; the resolve graph lazily.
func New(id uint64, from path.List, target Target, to path.List) *Transition {
	var opts []path.DiffOption
	if target.Options.Reload {
		opts = append(opts, path.WithReload())
	}
	return &Transition{
		id:        id,
		createdAt: time.Now(),
		target:    target,
		from:      from,
		to:        to,
		changes:   path.Diff(from, to, opts...),
		chain:     []string{target.State},
		status:    atomic.NewInt32(int32(StatusCreated)),
		event:     atomic.NewString(""),
		done:      make(chan struct{}),
	}
}

// NewRedirect builds the replacement transition a redirect produces. The
// source path is the original's source path, and the redirect chain is
// carried over for cycle detection: revisiting a target already in the
// chain fails with kind RedirectCycle.
func NewRedirect(prev *Transition, id uint64, target Target, to path.List) (*Transition, error) {
	for _, seen := range prev.chain {
		if seen == target.State {
			return nil, &Error{Kind: KindRedirectCycle, State: target.State}
		}
	}
	tr := New(id, prev.from, target, to)
	tr.chain = append(append([]string(nil), prev.chain...), target.State)
	tr.prev = prev
	return tr, nil
}

// ID returns the monotonically increasing creation id.
func (t *Transition) ID() uint64 { return t.id }

// CreatedAt returns when the transition was built.
func (t *Transition) CreatedAt() time.Time { return t.createdAt }

// Target returns the requested destination.
func (t *Transition) Target() Target { return t.target }

// Options returns the transition options.
func (t *Transition) Options() Options { return t.target.Options }

// From returns the source path, root to leaf.
func (t *Transition) From() path.List { return t.from }

// To returns the destination path, root to leaf.
func (t *Transition) To() path.List { return t.to }

// Changes returns the computed tree changes.
func (t *Transition) Changes() *path.Changes { return t.changes }

// Params merges the raw target values with the values bound along the
// destination path (declared values and defaults win).
func (t *Transition) Params() map[string]any {
	out := make(map[string]any, len(t.target.Params))
	for k, v := range t.target.Params {
		out[k] = v
	}
	for k, v := range t.changes.To.Params() {
		out[k] = v
	}
	return out
}

// Graph returns the per-transition resolve graph, built on first use
// so onCreate hooks may still inject resolvables.
func (t *Transition) Graph() *resolve.Graph {
	t.graphOnce.Do(func() {
		t.graph = resolve.NewGraph(t.changes.To.ResolveNodes())
	})
	return t.graph
}

// Resolve fetches a resolvable visible from the destination's terminal
// node, resolving it on demand if needed.
func (t *Transition) Resolve(ctx context.Context, token string) (any, error) {
	terminal := t.changes.To.Terminal()
	if terminal == nil {
		return nil, resolve.ErrUnknownToken
	}
	return t.Graph().Get(ctx, terminal.ResolveNode(), token)
}

// ResolveAt fetches a resolvable visible from a specific node of the
// destination path.
func (t *Transition) ResolveAt(ctx context.Context, node *path.Node, token string) (any, error) {
	return t.Graph().Get(ctx, node.ResolveNode(), token)
}

// Status returns the current lifecycle position.
func (t *Transition) Status() Status {
	return Status(t.status.Load())
}

// CurrentEvent names the event the pipeline is executing, or "" outside
// the pipeline. Diagnostic only.
func (t *Transition) CurrentEvent() string {
	return t.event.Load()
}

// Err returns the terminal error, nil until the transition settles and
// for successful or redirected outcomes.
func (t *Transition) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// RedirectedTo returns the replacement transition when this one was
// redirected, else nil.
func (t *Transition) RedirectedTo() *Transition {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.redirected
}

// RedirectedFrom returns the transition this one replaced, else nil.
func (t *Transition) RedirectedFrom() *Transition { return t.prev }

// RedirectChain lists every target state of the chain this transition
// belongs to, oldest first, including its own.
func (t *Transition) RedirectChain() []string {
	return append([]string(nil), t.chain...)
}

// Done is closed when the transition settles.
func (t *Transition) Done() <-chan struct{} { return t.done }

// Wait blocks until the transition settles and returns its outcome.
// Redirected transitions report the eventual outcome of their
// replacement, so callers following a chain see the final result.
func (t *Transition) Wait(ctx context.Context) error {
	select {
	case <-t.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if next := t.RedirectedTo(); next != nil {
		return next.Wait(ctx)
	}
	return t.Err()
}

// begin moves Created to Running. Reports false when the transition
// already left Created.
func (t *Transition) begin() bool {
	return t.status.CompareAndSwap(int32(StatusCreated), int32(StatusRunning))
}

func (t *Transition) setEvent(name string) { t.event.Store(name) }

// settle moves the transition into a terminal status exactly once.
func (t *Transition) settle(st Status, err error) bool {
	if !t.status.CompareAndSwap(int32(StatusRunning), int32(st)) &&
		!t.status.CompareAndSwap(int32(StatusCreated), int32(st)) {
		return false
	}
	t.mu.Lock()
	t.err = err
	t.mu.Unlock()
	t.event.Store("")
	close(t.done)
	return true
}

// settleRedirected marks the transition Ignored in favor of next.
func (t *Transition) settleRedirected(next *Transition) bool {
	t.mu.Lock()
	t.redirected = next
	t.mu.Unlock()
	return t.settle(StatusIgnored, nil)
}
