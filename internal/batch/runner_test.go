package batch

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleponte/signaltiming/internal/metrics"
	"github.com/kyleponte/signaltiming/internal/signal"
)

var start = time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC)

func intersection(t *testing.T, id string, volumes map[string]int) *signal.IntersectionData {
	t.Helper()
	d := signal.NewIntersectionData(id, signal.Metadata{})
	for approach, count := range volumes {
		require.NoError(t, d.Append(signal.ApproachVolume{
			IntersectionID: id,
			Approach:       approach,
			IntervalStart:  start,
			Count:          count,
		}))
	}
	return d
}

func newRunner(t *testing.T) *Runner {
	t.Helper()
	gen, err := signal.NewGenerator(signal.GeneratorConfig{CycleLength: 60, LostTime: 10, MinGreen: 7})
	require.NoError(t, err)
	model, err := signal.NewDelayModel(signal.DefaultDelayConfig())
	require.NoError(t, err)
	return &Runner{
		Generator: gen,
		Model:     model,
		Baselines: PlanSet{ByIntersection: map[string]signal.TimingPlan{
			"X1": signal.MustTimingPlan(60, 10, map[string]float64{"N": 25, "S": 25}),
			"X3": signal.MustTimingPlan(60, 10, map[string]float64{"N": 25, "S": 25}),
		}},
		Workers: 2,
		Metrics: metrics.New(),
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	r := newRunner(t)
	data := []*signal.IntersectionData{
		intersection(t, "X1", map[string]int{"N": 100, "S": 50}),
		intersection(t, "X2", map[string]int{"N": 0, "S": 0}),
		intersection(t, "X3", map[string]int{"N": 100, "S": 50, "E": 20}),
		intersection(t, "X4", map[string]int{"E": 30, "W": 90}),
	}

	outcomes := r.Run(context.Background(), data)
	require.Len(t, outcomes, 4)

	for i, d := range data {
		assert.Equal(t, d.ID(), outcomes[i].IntersectionID, "outcomes keep input order")
	}

	assert.True(t, outcomes[0].OK())
	assert.Less(t, outcomes[0].Comparison.Summary.AlternativeMeanDelay, outcomes[0].Comparison.Summary.BaselineMeanDelay)

	assert.ErrorIs(t, outcomes[1].Err, signal.ErrNoVolume)
	assert.Nil(t, outcomes[1].Comparison)

	assert.ErrorIs(t, outcomes[2].Err, signal.ErrApproachMismatch, "configured baseline lacks approach E")

	require.True(t, outcomes[3].OK(), "unconfigured intersections fall back to an even split")
	assert.Equal(t, map[string]float64{"E": 25, "W": 25}, outcomes[3].Baseline.Greens())

	assert.Len(t, Succeeded(outcomes), 2)
	assert.Equal(t, 2.0, testutil.ToFloat64(r.Metrics.AnalysesTotal.WithLabelValues(metrics.OutcomeSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.Metrics.AnalysesTotal.WithLabelValues(metrics.OutcomeDataSufficiency)))
}

func TestRunHonoursCancellation(t *testing.T) {
	r := newRunner(t)
	var data []*signal.IntersectionData
	for i := range 5 {
		data = append(data, intersection(t, fmt.Sprintf("C%d", i), map[string]int{"N": 10, "S": 10}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes := r.Run(ctx, data)
	require.Len(t, outcomes, 5)
	for _, o := range outcomes {
		assert.ErrorIs(t, o.Err, context.Canceled)
		assert.False(t, o.OK())
	}
	assert.Equal(t, 5.0, testutil.ToFloat64(r.Metrics.AnalysesTotal.WithLabelValues(metrics.OutcomeCanceled)))
}

func TestRunManyIntersectionsConcurrently(t *testing.T) {
	r := newRunner(t)
	r.Workers = 4
	r.Baselines = PlanSet{}

	var data []*signal.IntersectionData
	for i := range 40 {
		data = append(data, intersection(t, fmt.Sprintf("P%02d", i), map[string]int{"N": 10 + i, "S": 50, "E": 5 * i}))
	}
	outcomes := r.Run(context.Background(), data)
	assert.Len(t, Succeeded(outcomes), 40)
}

func TestBlendedAlternative(t *testing.T) {
	r := newRunner(t)
	data := intersection(t, "X1", map[string]int{"N": 100, "S": 50})

	zero := 0.0
	r.Blend = &zero
	o := r.Analyze(data)
	require.True(t, o.OK())
	assert.True(t, o.Alternative.Equal(o.Baseline), "weight 0 keeps the baseline")
	assert.InDelta(t, 0, o.Comparison.Summary.AbsoluteChange, 1e-12)

	half := 0.5
	r.Blend = &half
	o = r.Analyze(data)
	require.True(t, o.OK())
	n, _ := o.Alternative.Green("N")
	generated, _ := o.Generated.Plan.Green("N")
	assert.InDelta(t, (25+generated)/2, n, 1e-9)
}

func TestAlternativeWithBlendOverridesConfiguredWeight(t *testing.T) {
	r := newRunner(t)
	data := intersection(t, "X1", map[string]int{"N": 100, "S": 50})
	baseline, err := r.Baseline(data)
	require.NoError(t, err)

	half := 0.5
	r.Blend = &half

	zero := 0.0
	gp, alternative, err := r.AlternativeWithBlend(data, baseline, &zero)
	require.NoError(t, err)
	assert.True(t, alternative.Equal(baseline))
	assert.False(t, gp.Plan.Equal(baseline))

	gp, alternative, err = r.AlternativeWithBlend(data, baseline, nil)
	require.NoError(t, err)
	assert.True(t, alternative.Equal(gp.Plan), "nil blend uses the generated plan")

	_, configured, err := r.Alternative(data, baseline)
	require.NoError(t, err)
	n, _ := configured.Green("N")
	generated, _ := gp.Plan.Green("N")
	assert.InDelta(t, (25+generated)/2, n, 1e-9)

	bad := 1.5
	_, _, err = r.AlternativeWithBlend(data, baseline, &bad)
	assert.ErrorIs(t, err, signal.ErrInvalidBlendWeight)
}

func TestPlanSetBaseline(t *testing.T) {
	def := signal.MustTimingPlan(90, 10, map[string]float64{"N": 40, "S": 40})
	own := signal.MustTimingPlan(60, 10, map[string]float64{"N": 25, "S": 25})
	set := PlanSet{Default: &def, ByIntersection: map[string]signal.TimingPlan{"X1": own}}

	p, ok := set.Baseline("X1")
	assert.True(t, ok)
	assert.True(t, p.Equal(own))

	p, ok = set.Baseline("X9")
	assert.True(t, ok)
	assert.True(t, p.Equal(def))

	_, ok = PlanSet{}.Baseline("X1")
	assert.False(t, ok)
}

func TestClassify(t *testing.T) {
	model, err := signal.NewDelayModel(signal.DelayConfig{})
	assert.Nil(t, model)
	assert.Equal(t, metrics.OutcomeConfiguration, Classify(err))
	assert.Equal(t, metrics.OutcomeSuccess, Classify(nil))
	assert.Equal(t, metrics.OutcomeCanceled, Classify(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)))
	assert.Equal(t, metrics.OutcomeOther, Classify(fmt.Errorf("disk full")))
}
