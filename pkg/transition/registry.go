package transition

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/atomic"

	"github.com/aretw0/switchback/pkg/path"
)

// HookFunc is the callback signature for every lifecycle hook. For
// path-scoped events (onExit, onRetain, onEnter) the hook runs once per
// matched node; for transition-scoped events node is the terminal node
// of the event's path. Returning a non-nil Result steers the pipeline
// when the event handles results.
type HookFunc func(ctx context.Context, tr *Transition, node *path.Node) (Result, error)

// Deregister removes a hook registration. It is idempotent and safe to
// call while hooks for the same event are executing: the pipeline
// re-checks liveness immediately before each invocation.
type Deregister func()

// HookOption adjusts a hook registration.
type HookOption func(*registration)

// WithPriority sets the hook's priority. Higher priorities run first
// within the same node; the default is 0.
func WithPriority(p int) HookOption {
	return func(r *registration) { r.priority = p }
}

// WithOnce deregisters the hook after its first invocation.
func WithOnce() HookOption {
	return func(r *registration) { r.once = true }
}

// WithHookName names the registration for logs and error reports.
func WithHookName(name string) HookOption {
	return func(r *registration) { r.name = name }
}

type registration struct {
	id       uint64
	event    string
	name     string
	criteria Criteria
	fn       HookFunc
	priority int
	once     bool
	alive    *atomic.Bool
}

func (r *registration) displayName() string {
	if r.name != "" {
		return r.name
	}
	return fmt.Sprintf("%s#%d", r.event, r.id)
}

// Registry holds the event type catalog and the live hook registrations.
// Event definitions freeze once the first transition runs; hook
// registrations stay open for the registry's lifetime.
type Registry struct {
	mu     sync.Mutex
	events map[string]EventType
	order  []string
	hooks  map[string][]*registration
	seq    uint64
	frozen bool
}

// NewRegistry builds a registry pre-loaded with the built-in lifecycle
// events.
func NewRegistry() *Registry {
	r := &Registry{
		events: make(map[string]EventType),
		hooks:  make(map[string][]*registration),
	}
	for _, ev := range builtinEvents() {
		r.events[ev.Name] = ev
		r.order = append(r.order, ev.Name)
	}
	return r
}

// DefineEvent registers a custom lifecycle event, e.g. a phase slotted
// between the built-in run events. Definitions are rejected once the
// first transition has run.
func (r *Registry) DefineEvent(ev EventType) error {
	if ev.Name == "" {
		return fmt.Errorf("event name must not be empty")
	}
	switch ev.Slot {
	case SlotTo, SlotFrom, SlotEntering, SlotExiting, SlotRetained:
	default:
		return fmt.Errorf("event %q: unknown slot %q", ev.Name, ev.Slot)
	}
	if ev.Phase == PhaseCreate && ev.Result == HandleResult {
		return fmt.Errorf("event %q: create-phase events cannot handle results", ev.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return fmt.Errorf("event %q: %w", ev.Name, ErrRegistryFrozen)
	}
	if _, ok := r.events[ev.Name]; ok {
		return fmt.Errorf("event %q already defined", ev.Name)
	}
	r.events[ev.Name] = ev
	r.order = append(r.order, ev.Name)
	return nil
}

// Event looks up an event type by name.
func (r *Registry) Event(name string) (EventType, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, ok := r.events[name]
	return ev, ok
}

// Events returns all defined events sorted ascending by (phase, order),
// definition order breaking ties. This is the pipeline execution order.
func (r *Registry) Events() []EventType {
	r.mu.Lock()
	out := make([]EventType, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.events[name])
	}
	r.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Phase != out[j].Phase {
			return out[i].Phase < out[j].Phase
		}
		return out[i].Order < out[j].Order
	})
	return out
}

// Register attaches a hook to an event. The returned Deregister is
// idempotent.
func (r *Registry) Register(event string, c Criteria, fn HookFunc, opts ...HookOption) (Deregister, error) {
	if fn == nil {
		return nil, fmt.Errorf("event %q: nil hook", event)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("event %q: %w", event, err)
	}

	r.mu.Lock()
	if _, ok := r.events[event]; !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}
	r.seq++
	reg := &registration{
		id:       r.seq,
		event:    event,
		criteria: c,
		fn:       fn,
		alive:    atomic.NewBool(true),
	}
	for _, opt := range opts {
		opt(reg)
	}
	r.hooks[event] = append(r.hooks[event], reg)
	r.mu.Unlock()

	return func() { r.deregister(reg) }, nil
}

func (r *Registry) deregister(reg *registration) {
	if !reg.alive.CompareAndSwap(true, false) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	live := r.hooks[reg.event][:0]
	for _, cand := range r.hooks[reg.event] {
		if cand != reg {
			live = append(live, cand)
		}
	}
	r.hooks[reg.event] = live
}

// hooksFor snapshots the live registrations for an event. The pipeline
// iterates the snapshot and re-checks each registration's liveness
// before invoking it, so concurrent (de)registration is safe.
func (r *Registry) hooksFor(event string) []*registration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*registration(nil), r.hooks[event]...)
}

// HookCounts reports the number of live hooks per event, for
// introspection surfaces.
func (r *Registry) HookCounts() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int, len(r.hooks))
	for ev, regs := range r.hooks {
		if len(regs) > 0 {
			out[ev] = len(regs)
		}
	}
	return out
}

// freeze closes the event catalog. Idempotent; called when the first
// transition runs.
func (r *Registry) freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Frozen reports whether the event catalog is closed.
func (r *Registry) Frozen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frozen
}
