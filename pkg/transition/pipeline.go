package transition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/aretw0/switchback/pkg/path"
)

// Host is the pipeline's view of the router owning the live current
// path. It supplies the supersession oracle, the commit step and the
// construction of redirect replacements.
type Host interface {
	// LatestID returns the id of the most recently created transition.
	LatestID() uint64

	// Commit applies a successful transition's changes to the live
	// current path. Implementations re-check supersession under their
	// own lock and return an ErrSuperseded-kinded error when a newer
	// transition exists.
	Commit(tr *Transition) error

	// Redirect builds the replacement transition for a redirect result,
	// carrying the original's source path and redirect chain.
	Redirect(tr *Transition, target Target) (*Transition, error)

	// Logger is used for pipeline and observer diagnostics.
	Logger() *slog.Logger
}

// Pipeline executes transitions against an event catalog and its hook
// registrations.
type Pipeline struct {
	reg  *Registry
	host Host
}

// NewPipeline binds a registry to a host.
func NewPipeline(reg *Registry, host Host) *Pipeline {
	return &Pipeline{reg: reg, host: host}
}

// instance is one scheduled hook invocation: a live registration bound
// to the node it fires for. group is the node's position along the
// event's slot path.
type instance struct {
	reg   *registration
	node  *path.Node
	group int
}

// RunCreate executes the synchronous create-phase events. It freezes the
// event catalog, runs every matching hook in order, and fails creation
// on the first hook error. Results are ignored in this phase; its
// purpose is mutation of the tree changes before any asynchronous work
// starts.
func (p *Pipeline) RunCreate(ctx context.Context, tr *Transition) error {
	p.reg.freeze()

	for _, ev := range p.reg.Events() {
		if ev.Phase != PhaseCreate {
			continue
		}
		for _, in := range p.instances(tr, ev) {
			if !in.reg.alive.Load() {
				continue
			}
			_, err := in.reg.fn(ctx, tr, in.node)
			if in.reg.once {
				p.reg.deregister(in.reg)
			}
			if err != nil {
				if ev.ErrPolicy == LogError {
					p.host.Logger().Error("create hook failed", "event", ev.Name, "hook", in.reg.displayName(), "err", err)
					continue
				}
				werr := hookError(ev, in.reg, tr, err)
				tr.settle(StatusError, werr)
				return werr
			}
		}
	}
	return nil
}

// Run drives the transition through the before and run phases as a
// strict waterfall, then commits and fires the success observers. On a
// hook error or abort it settles the transition and fires the error
// observers. On a redirect it settles the transition Ignored and returns
// nil; the replacement is available via RedirectedTo.
func (p *Pipeline) Run(ctx context.Context, tr *Transition) error {
	if !tr.begin() {
		return fmt.Errorf("transition %d already started", tr.ID())
	}

	// A transition to the exact current position does nothing unless a
	// reload was requested.
	if tr.changes.NoOp() {
		werr := &Error{Kind: KindSameState, State: tr.target.State}
		tr.settle(StatusIgnored, werr)
		return werr
	}

	log := p.host.Logger().With("transition", tr.ID(), "target", tr.target.State)
	log.Debug("transition running",
		"entering", len(tr.changes.Entering),
		"exiting", len(tr.changes.Exiting),
		"retained", len(tr.changes.Retained))

	for _, ev := range p.reg.Events() {
		if ev.Phase != PhaseBefore && ev.Phase != PhaseRun {
			continue
		}
		halt, err := p.runEvent(ctx, tr, ev)
		if !halt {
			continue
		}
		if err == nil {
			// Redirected; the caller follows tr.RedirectedTo().
			return nil
		}
		if tr.Status() == StatusError {
			log.Debug("transition failed", "event", ev.Name, "err", err)
			p.observe(ctx, tr, PhaseError)
		} else {
			log.Debug("transition ignored", "event", ev.Name)
		}
		return err
	}

	if err := p.host.Commit(tr); err != nil {
		tr.settle(StatusIgnored, err)
		log.Debug("transition ignored at commit")
		return err
	}
	tr.settle(StatusSuccess, nil)
	log.Info("transition succeeded", "state", tr.target.State)
	p.observe(ctx, tr, PhaseSuccess)
	return nil
}

// runEvent executes one event's waterfall. halt reports that the
// transition settled: with a nil error for redirects, with the terminal
// error otherwise.
func (p *Pipeline) runEvent(ctx context.Context, tr *Transition, ev EventType) (halt bool, err error) {
	insts := p.instances(tr, ev)
	if len(insts) == 0 {
		return false, nil
	}
	tr.setEvent(ev.Name)

	for _, in := range insts {
		// Supersession and cancellation are checked at hook boundaries
		// only; a running hook is never torn down.
		if p.host.LatestID() > tr.id {
			werr := &Error{Kind: KindSuperseded, Event: ev.Name, State: tr.target.State}
			tr.settle(StatusIgnored, werr)
			return true, werr
		}
		if cerr := ctx.Err(); cerr != nil {
			werr := &Error{Kind: KindHookFailed, Event: ev.Name, State: tr.target.State, Err: cerr}
			tr.settle(StatusError, werr)
			return true, werr
		}
		if !in.reg.alive.Load() {
			continue
		}

		res, herr := in.reg.fn(ctx, tr, in.node)
		if in.reg.once {
			p.reg.deregister(in.reg)
		}
		if herr != nil {
			if ev.ErrPolicy == LogError {
				p.host.Logger().Error("hook failed", "event", ev.Name, "hook", in.reg.displayName(), "err", herr)
				continue
			}
			werr := hookError(ev, in.reg, tr, herr)
			tr.settle(StatusError, werr)
			return true, werr
		}
		if ev.Result != HandleResult || res == nil {
			continue
		}

		switch r := res.(type) {
		case abortResult:
			werr := &Error{Kind: KindAborted, Event: ev.Name, Hook: in.reg.displayName(), State: tr.target.State}
			tr.settle(StatusError, werr)
			return true, werr
		case redirectResult:
			next, rerr := p.host.Redirect(tr, r.target)
			if rerr != nil {
				werr := hookError(ev, in.reg, tr, rerr)
				tr.settle(StatusError, werr)
				return true, werr
			}
			tr.settleRedirected(next)
			p.host.Logger().Info("transition redirected",
				"transition", tr.ID(), "from", tr.target.State, "to", r.target.State, "next", next.ID())
			return true, nil
		}
	}
	return false, nil
}

// observe fires the observer events of a terminal phase. Observer
// results are always discarded and observer errors only logged: they
// cannot change the outcome they watch.
func (p *Pipeline) observe(ctx context.Context, tr *Transition, phase Phase) {
	for _, ev := range p.reg.Events() {
		if ev.Phase != phase {
			continue
		}
		for _, in := range p.instances(tr, ev) {
			if !in.reg.alive.Load() {
				continue
			}
			_, err := in.reg.fn(ctx, tr, in.node)
			if in.reg.once {
				p.reg.deregister(in.reg)
			}
			if err != nil {
				p.host.Logger().Error("observer hook failed",
					"event", ev.Name, "hook", in.reg.displayName(), "transition", tr.ID(), "err", err)
			}
		}
	}
}

// instances gathers and orders the hook invocations for one event:
// registrations matching the transition, instantiated per node of the
// event's slot path, grouped by node position, priority descending then
// registration order within a node. Reverse-sorted events flip the node
// group order, which is how exits run leaf to root while keeping
// priority meaningful within each node.
func (p *Pipeline) instances(tr *Transition, ev EventType) []instance {
	regs := p.reg.hooksFor(ev.Name)
	if len(regs) == 0 {
		return nil
	}

	var eligible []*registration
	for _, reg := range regs {
		if reg.criteria.matches(tr.changes) {
			eligible = append(eligible, reg)
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	var insts []instance
	for gi, node := range slotNodes(tr.changes, ev.Slot) {
		for _, reg := range eligible {
			m := reg.criteria.forSlot(ev.Slot)
			if m.isZero() || m.matches(node) {
				insts = append(insts, instance{reg: reg, node: node, group: gi})
			}
		}
	}

	sort.SliceStable(insts, func(i, j int) bool {
		if insts[i].group != insts[j].group {
			if ev.ReverseSort {
				return insts[i].group > insts[j].group
			}
			return insts[i].group < insts[j].group
		}
		if insts[i].reg.priority != insts[j].reg.priority {
			return insts[i].reg.priority > insts[j].reg.priority
		}
		return insts[i].reg.id < insts[j].reg.id
	})
	return insts
}

// slotNodes returns the nodes an event iterates, in canonical
// root-to-leaf order. Terminal-scoped slots yield a single node.
func slotNodes(ch *path.Changes, slot Slot) path.List {
	switch slot {
	case SlotTo:
		if t := ch.To.Terminal(); t != nil {
			return path.List{t}
		}
	case SlotFrom:
		if t := ch.From.Terminal(); t != nil {
			return path.List{t}
		}
	case SlotEntering:
		return ch.Entering
	case SlotExiting:
		// Stored leaf to root; canonicalize so the reverse-sort flag
		// owns the execution direction.
		return ch.Exiting.Reverse()
	case SlotRetained:
		return ch.Retained
	}
	return nil
}

// hookError shapes a hook failure into the transition error taxonomy,
// preserving a more specific kind when the hook already returned one.
func hookError(ev EventType, reg *registration, tr *Transition, err error) *Error {
	var te *Error
	if errors.As(err, &te) {
		out := *te
		if out.Event == "" {
			out.Event = ev.Name
		}
		if out.Hook == "" {
			out.Hook = reg.displayName()
		}
		if out.State == "" {
			out.State = tr.target.State
		}
		return &out
	}
	return &Error{
		Kind:  KindHookFailed,
		Event: ev.Name,
		Hook:  reg.displayName(),
		State: tr.target.State,
		Err:   err,
	}
}
