package transition

// LocationMode controls URL synchronization after a successful
// transition.
type LocationMode int

const (
	// LocationNone leaves the location adapter untouched.
	LocationNone LocationMode = iota
	// LocationPush sets the new URL as a new history entry.
	LocationPush
	// LocationReplace sets the new URL replacing the current entry.
	LocationReplace
)

// Options carries per-transition behavior flags.
type Options struct {
	// Location requests URL synchronization on success.
	Location LocationMode

	// Reload forces every node to exit and re-enter even when the target
	// equals the current path.
	Reload bool

	// Custom holds caller-defined values hooks can inspect.
	Custom map[string]any
}

// Target names where a transition should go: a state, its parameter
// values, and options.
type Target struct {
	State   string
	Params  map[string]any
	Options Options
}

// TargetOption mutates a Target at construction.
type TargetOption func(*Target)

// WithLocation requests URL synchronization with the given mode.
func WithLocation(mode LocationMode) TargetOption {
	return func(t *Target) { t.Options.Location = mode }
}

// WithReload forces a full exit/re-entry.
func WithReload() TargetOption {
	return func(t *Target) { t.Options.Reload = true }
}

// WithCustom attaches a caller-defined option value.
func WithCustom(key string, value any) TargetOption {
	return func(t *Target) {
		if t.Options.Custom == nil {
			t.Options.Custom = make(map[string]any)
		}
		t.Options.Custom[key] = value
	}
}

// NewTarget builds a target for state with params and options applied.
func NewTarget(state string, params map[string]any, opts ...TargetOption) Target {
	t := Target{State: state, Params: params}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

// Result is what a hook may return to steer the pipeline. Returning nil
// continues the waterfall. Events with the IgnoreResult policy discard
// results entirely.
type Result interface {
	isResult()
}

type abortResult struct{}

func (abortResult) isResult() {}

// Abort cancels the transition; it settles as Error with kind Aborted.
func Abort() Result { return abortResult{} }

type redirectResult struct {
	target Target
}

func (redirectResult) isResult() {}

// RedirectTo abandons the rest of the pipeline and navigates to a new
// target instead. The original transition settles Ignored with its
// RedirectedTo pointing at the replacement.
func RedirectTo(state string, params map[string]any, opts ...TargetOption) Result {
	return redirectResult{target: NewTarget(state, params, opts...)}
}
