package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/switchback/pkg/path"
	"github.com/aretw0/switchback/pkg/transition"
)

// Registrar is the slice of the router's hook API the collectors need.
// *switchback.Router satisfies it.
type Registrar interface {
	OnSuccess(transition.Criteria, transition.HookFunc, ...transition.HookOption) (transition.Deregister, error)
	OnError(transition.Criteria, transition.HookFunc, ...transition.HookOption) (transition.Deregister, error)
	OnEnter(transition.Criteria, transition.HookFunc, ...transition.HookOption) (transition.Deregister, error)
}

// Metrics holds the Prometheus collectors describing router activity.
type Metrics struct {
	transitions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	entries     *prometheus.CounterVec
}

// NewMetrics builds the collectors and registers them with reg. Pass
// prometheus.DefaultRegisterer to expose them through the default
// /metrics handler.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "switchback_transitions_total",
				Help: "Settled transitions by target state and outcome.",
			},
			[]string{"state", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "switchback_transition_duration_seconds",
				Help:    "Time from transition creation to settlement.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		entries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "switchback_state_entries_total",
				Help: "Times each state was entered.",
			},
			[]string{"state"},
		),
	}

	for _, c := range []prometheus.Collector{m.transitions, m.duration, m.entries} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Instrument attaches the observer hooks feeding the collectors. The
// outcome label is "success" for committed transitions and the error
// kind (e.g. "aborted", "hook-failed") for failed ones. Transitions
// that settle ignored fire no observers, so they are not counted.
func (m *Metrics) Instrument(r Registrar) error {
	if _, err := r.OnSuccess(transition.Criteria{}, m.observeSuccess, transition.WithHookName("metrics.success")); err != nil {
		return err
	}
	if _, err := r.OnError(transition.Criteria{}, m.observeError, transition.WithHookName("metrics.error")); err != nil {
		return err
	}
	_, err := r.OnEnter(transition.Criteria{}, m.observeEnter, transition.WithHookName("metrics.enter"))
	return err
}

func (m *Metrics) observeSuccess(_ context.Context, tr *transition.Transition, _ *path.Node) (transition.Result, error) {
	m.record(tr, "success")
	return nil, nil
}

func (m *Metrics) observeError(_ context.Context, tr *transition.Transition, _ *path.Node) (transition.Result, error) {
	outcome := "error"
	if kind := transition.KindOf(tr.Err()); kind != 0 {
		outcome = kind.String()
	}
	m.record(tr, outcome)
	return nil, nil
}

func (m *Metrics) observeEnter(_ context.Context, _ *transition.Transition, node *path.Node) (transition.Result, error) {
	m.entries.WithLabelValues(node.Name()).Inc()
	return nil, nil
}

func (m *Metrics) record(tr *transition.Transition, outcome string) {
	m.transitions.WithLabelValues(tr.Target().State, outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(time.Since(tr.CreatedAt()).Seconds())
}
