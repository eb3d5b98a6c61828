package observability

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/switchback"
	"github.com/aretw0/switchback/pkg/path"
	"github.com/aretw0/switchback/pkg/state"
	"github.com/aretw0/switchback/pkg/transition"
)

func newRouter(t *testing.T) *switchback.Router {
	t.Helper()
	r, err := switchback.New(switchback.WithStates(
		state.State{Name: "app"},
		state.State{Name: "app.users"},
		state.State{Name: "app.settings"},
	))
	require.NoError(t, err)
	return r
}

func TestMetrics_Instrument(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	router := newRouter(t)
	require.NoError(t, m.Instrument(router))

	// Abort every attempt at app.settings so the error path has data.
	_, err = router.OnBefore(transition.Criteria{To: transition.MatchName("app.settings")},
		func(ctx context.Context, tr *transition.Transition, node *path.Node) (transition.Result, error) {
			return transition.Abort(), nil
		})
	require.NoError(t, err)

	ctx := context.Background()

	_, err = router.Go(ctx, "app.users", nil)
	require.NoError(t, err)

	_, err = router.Go(ctx, "app.settings", nil)
	require.ErrorIs(t, err, transition.ErrAborted)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("app.users", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("app.settings", "aborted")))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.entries.WithLabelValues("app")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.entries.WithLabelValues("app.users")))

	// One duration series per outcome seen so far.
	assert.Equal(t, 2, testutil.CollectAndCount(m.duration))
}

func TestMetrics_IgnoredOutcomesAreNotCounted(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	router := newRouter(t)
	require.NoError(t, m.Instrument(router))

	ctx := context.Background()

	_, err = router.Go(ctx, "app.users", nil)
	require.NoError(t, err)

	// A same-state attempt settles ignored and fires no observers.
	_, err = router.Go(ctx, "app.users", nil)
	require.ErrorIs(t, err, transition.ErrSameState)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("app.users", "success")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.transitions))
}

func TestNewMetrics_RejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()

	_, err := NewMetrics(reg)
	require.NoError(t, err)

	_, err = NewMetrics(reg)
	require.Error(t, err)

	are := prometheus.AlreadyRegisteredError{}
	assert.ErrorAs(t, err, &are)
}
