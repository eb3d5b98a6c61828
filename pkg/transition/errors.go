package transition

import (
	"errors"
	"fmt"
)

// Kind classifies how a transition failed or why it ended without
// succeeding.
type Kind int

const (
	// KindAborted: a hook cancelled the transition explicitly.
	KindAborted Kind = iota + 1
	// KindSuperseded: a newer transition won the race.
	KindSuperseded
	// KindSameState: the target equals the current path, nothing to do.
	KindSameState
	// KindResolveFailed: a resolvable's provider failed or its graph is
	// invalid.
	KindResolveFailed
	// KindHookFailed: a hook returned an error or the context was
	// cancelled at a hook boundary.
	KindHookFailed
	// KindInvalidTransition: unknown target state or missing required
	// parameter.
	KindInvalidTransition
	// KindRedirectCycle: a redirect revisited a target already seen in
	// the same chain.
	KindRedirectCycle
)

func (k Kind) String() string {
	switch k {
	case KindAborted:
		return "aborted"
	case KindSuperseded:
		return "superseded"
	case KindSameState:
		return "same-state"
	case KindResolveFailed:
		return "resolve-failed"
	case KindHookFailed:
		return "hook-failed"
	case KindInvalidTransition:
		return "invalid-transition"
	case KindRedirectCycle:
		return "redirect-cycle"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is checks. An *Error matches the sentinel of its
// kind.
var (
	ErrAborted           = errors.New("transition aborted by hook")
	ErrSuperseded        = errors.New("transition superseded by a newer one")
	ErrSameState         = errors.New("transition is a no-op")
	ErrRedirectCycle     = errors.New("redirect cycle detected")
	ErrInvalidTransition = errors.New("invalid transition")
)

// ErrUnknownEvent is returned when registering a hook for an event name
// nobody defined.
var ErrUnknownEvent = errors.New("unknown event")

// ErrRegistryFrozen is returned when defining an event after the first
// transition ran.
var ErrRegistryFrozen = errors.New("event registry is frozen")

// Error is the typed failure of a transition: its kind plus the identity
// of the event, hook or state it originated from.
type Error struct {
	Kind  Kind
	Event string
	Hook  string
	State string
	Err   error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("transition %s", e.Kind)
	if e.Event != "" {
		msg += fmt.Sprintf(" at %s", e.Event)
	}
	if e.Hook != "" {
		msg += fmt.Sprintf(" (hook %s)", e.Hook)
	}
	if e.State != "" {
		msg += fmt.Sprintf(" [state %s]", e.State)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is maps kinds onto their sentinels so callers can use errors.Is
// without knowing about *Error.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrAborted:
		return e.Kind == KindAborted
	case ErrSuperseded:
		return e.Kind == KindSuperseded
	case ErrSameState:
		return e.Kind == KindSameState
	case ErrRedirectCycle:
		return e.Kind == KindRedirectCycle
	case ErrInvalidTransition:
		return e.Kind == KindInvalidTransition
	}
	return false
}

// KindOf extracts the transition error kind, or 0 when err is not a
// transition error.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return 0
}
