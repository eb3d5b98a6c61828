package transition

// Phase orders the lifecycle coarsely. Within a phase, events order by
// their integer Order.
type Phase int

const (
	PhaseCreate Phase = iota
	PhaseBefore
	PhaseRun
	PhaseSuccess
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseCreate:
		return "create"
	case PhaseBefore:
		return "before"
	case PhaseRun:
		return "run"
	case PhaseSuccess:
		return "success"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// Slot names the Changes path an event's hooks iterate over.
type Slot string

const (
	SlotTo       Slot = "to"
	SlotFrom     Slot = "from"
	SlotEntering Slot = "entering"
	SlotExiting  Slot = "exiting"
	SlotRetained Slot = "retained"
)

// ResultPolicy decides what the pipeline does with a hook's return value.
type ResultPolicy int

const (
	// IgnoreResult discards whatever the hook returned.
	IgnoreResult ResultPolicy = iota
	// HandleResult interprets Abort and RedirectTo results.
	HandleResult
)

// ErrorPolicy decides what the pipeline does with a hook's error.
type ErrorPolicy int

const (
	// RejectError settles the transition as Error.
	RejectError ErrorPolicy = iota
	// ThrowError returns the error synchronously from the creation API.
	// Only meaningful for synchronous create-phase events.
	ThrowError
	// LogError records the error and continues; observers must not be
	// able to break the outcome they observe.
	LogError
)

// EventType is an immutable lifecycle event descriptor. The ascending
// (Phase, Order) sort over all defined events is the execution order of
// the pipeline.
type EventType struct {
	Name        string
	Phase       Phase
	Order       int
	Slot        Slot
	ReverseSort bool
	Result      ResultPolicy
	ErrPolicy   ErrorPolicy
	Synchronous bool
}

// Built-in lifecycle event names.
const (
	EventCreate  = "onCreate"
	EventBefore  = "onBefore"
	EventStart   = "onStart"
	EventExit    = "onExit"
	EventRetain  = "onRetain"
	EventEnter   = "onEnter"
	EventFinish  = "onFinish"
	EventSuccess = "onSuccess"
	EventError   = "onError"
)

// builtinEvents returns the fixed catalog every registry starts with.
// The run phase is subdivided so plugins can slot custom events between
// the built-in ones.
func builtinEvents() []EventType {
	return []EventType{
		{Name: EventCreate, Phase: PhaseCreate, Order: 0, Slot: SlotTo, Result: IgnoreResult, ErrPolicy: ThrowError, Synchronous: true},
		{Name: EventBefore, Phase: PhaseBefore, Order: 0, Slot: SlotTo, Result: HandleResult, ErrPolicy: RejectError},
		{Name: EventStart, Phase: PhaseRun, Order: 0, Slot: SlotTo, Result: HandleResult, ErrPolicy: RejectError},
		{Name: EventExit, Phase: PhaseRun, Order: 100, Slot: SlotExiting, ReverseSort: true, Result: HandleResult, ErrPolicy: RejectError},
		{Name: EventRetain, Phase: PhaseRun, Order: 200, Slot: SlotRetained, Result: HandleResult, ErrPolicy: RejectError},
		{Name: EventEnter, Phase: PhaseRun, Order: 300, Slot: SlotEntering, Result: HandleResult, ErrPolicy: RejectError},
		{Name: EventFinish, Phase: PhaseRun, Order: 400, Slot: SlotTo, Result: HandleResult, ErrPolicy: RejectError},
		{Name: EventSuccess, Phase: PhaseSuccess, Order: 0, Slot: SlotTo, Result: IgnoreResult, ErrPolicy: LogError},
		{Name: EventError, Phase: PhaseError, Order: 0, Slot: SlotTo, Result: IgnoreResult, ErrPolicy: LogError},
	}
}
