// Package batch runs the baseline/alternative comparison across many
// intersections in parallel. Intersections share nothing, so each one is an
// independent unit of work and a failure in one never stops the others.
package batch

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kyleponte/signaltiming/internal/logging"
	"github.com/kyleponte/signaltiming/internal/metrics"
	"github.com/kyleponte/signaltiming/internal/signal"
)

// PlanSet resolves the baseline plan for an intersection.
type PlanSet struct {
	// Default applies to intersections missing from ByIntersection. When it
	// is nil too, the generator's even split is used.
	Default        *signal.TimingPlan
	ByIntersection map[string]signal.TimingPlan
}

// Baseline returns the configured plan for id and whether one exists.
func (s PlanSet) Baseline(id string) (signal.TimingPlan, bool) {
	if p, ok := s.ByIntersection[id]; ok {
		return p, true
	}
	if s.Default != nil {
		return *s.Default, true
	}
	return signal.TimingPlan{}, false
}

// Outcome is the result for one intersection. Exactly one of Comparison and
// Err is set.
type Outcome struct {
	IntersectionID string                `json:"intersectionId"`
	Baseline       signal.TimingPlan     `json:"baseline"`
	Generated      *signal.GeneratedPlan `json:"generated,omitempty"`
	Alternative    signal.TimingPlan     `json:"alternative"`
	Comparison     *signal.Comparison    `json:"comparison,omitempty"`
	Err            error                 `json:"-"`
}

func (o Outcome) OK() bool { return o.Err == nil && o.Comparison != nil }

// Runner holds the shared, read-only analysis setup.
type Runner struct {
	Generator *signal.Generator
	Model     *signal.DelayModel
	Baselines PlanSet
	// Blend, when set, mixes the generated plan into the baseline with this
	// weight instead of using it outright.
	Blend   *float64
	Workers int
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger.With(slog.String("component", "batch"))
	}
	return slog.Default().With(slog.String("component", "batch"))
}

// Baseline resolves the baseline for data, falling back to an even split.
func (r *Runner) Baseline(data *signal.IntersectionData) (signal.TimingPlan, error) {
	if p, ok := r.Baselines.Baseline(data.ID()); ok {
		return p, nil
	}
	return r.Generator.EvenSplit(data)
}

// Alternative generates the alternative plan for data against baseline,
// applying Blend when configured.
func (r *Runner) Alternative(data *signal.IntersectionData, baseline signal.TimingPlan) (signal.GeneratedPlan, signal.TimingPlan, error) {
	return r.AlternativeWithBlend(data, baseline, r.Blend)
}

// AlternativeWithBlend is Alternative with blend in place of the configured
// weight. A nil blend uses the generated plan outright.
func (r *Runner) AlternativeWithBlend(data *signal.IntersectionData, baseline signal.TimingPlan, blend *float64) (signal.GeneratedPlan, signal.TimingPlan, error) {
	gp, err := r.Generator.Generate(data)
	if err != nil {
		return signal.GeneratedPlan{}, signal.TimingPlan{}, err
	}
	if blend == nil {
		return gp, gp.Plan, nil
	}
	blended, err := signal.Blend(baseline, gp.Plan, *blend)
	if err != nil {
		return gp, signal.TimingPlan{}, err
	}
	return gp, blended, nil
}

// Analyze runs the full pipeline for a single intersection.
func (r *Runner) Analyze(data *signal.IntersectionData) Outcome {
	out := Outcome{IntersectionID: data.ID()}

	baseline, err := r.Baseline(data)
	if err != nil {
		out.Err = err
		return r.record(out)
	}
	out.Baseline = baseline

	gp, alternative, err := r.Alternative(data, baseline)
	if err != nil {
		out.Err = err
		return r.record(out)
	}
	out.Generated = &gp
	out.Alternative = alternative

	cmp, err := signal.NewAnalyzer(data, r.Model).Compare(baseline, alternative)
	if err != nil {
		out.Err = err
		return r.record(out)
	}
	out.Comparison = cmp
	return r.record(out)
}

func (r *Runner) record(o Outcome) Outcome {
	if o.OK() {
		r.Metrics.ObserveAnalysis(metrics.OutcomeSuccess,
			o.Comparison.Summary.BaselineMeanDelay, o.Comparison.Summary.AlternativeMeanDelay)
		return o
	}
	r.Metrics.ObserveAnalysis(Classify(o.Err), 0, 0)
	return o
}

// Classify maps an analysis error to its metrics outcome label.
func Classify(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeCanceled
	case signal.IsConfiguration(err):
		return metrics.OutcomeConfiguration
	case signal.IsDataSufficiency(err):
		return metrics.OutcomeDataSufficiency
	default:
		return metrics.OutcomeOther
	}
}

// Run analyzes every intersection with at most Workers running at once and
// returns one Outcome per input, in input order. Once ctx is done no new
// intersection starts; the unstarted ones carry ctx.Err().
func (r *Runner) Run(ctx context.Context, data []*signal.IntersectionData) []Outcome {
	logger := r.logger()
	workers := r.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	start := time.Now()
	outcomes := make([]Outcome, len(data))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, d := range data {
		if ctx.Err() != nil {
			outcomes[i] = r.record(Outcome{IntersectionID: d.ID(), Err: ctx.Err()})
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i] = r.record(Outcome{IntersectionID: d.ID(), Err: err})
				return nil
			}
			outcomes[i] = r.Analyze(d)
			if err := outcomes[i].Err; err != nil {
				logging.LogError(logger, "intersection analysis failed", err,
					slog.String("intersection_id", d.ID()))
			}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, o := range outcomes {
		if !o.OK() {
			failed++
		}
	}
	logging.LogOperation(logger, "batch_analysis_completed",
		slog.Int("intersections", len(data)),
		slog.Int("failed", failed),
		slog.Int("workers", workers),
		slog.Duration("duration", time.Since(start)))
	return outcomes
}

// Succeeded returns the outcomes that produced a comparison.
func Succeeded(outcomes []Outcome) []Outcome {
	var out []Outcome
	for _, o := range outcomes {
		if o.OK() {
			out = append(out, o)
		}
	}
	return out
}
