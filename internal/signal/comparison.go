package signal

import (
	"errors"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// ApproachSummary breaks a comparison down by approach.
type ApproachSummary struct {
	Approach             string  `json:"approach"`
	Volume               int     `json:"volume"`
	BaselineGreen        float64 `json:"baselineGreen"`
	AlternativeGreen     float64 `json:"alternativeGreen"`
	BaselineMeanDelay    float64 `json:"baselineMeanDelay"`
	AlternativeMeanDelay float64 `json:"alternativeMeanDelay"`
}

// ComparisonSummary aggregates baseline and alternative delay for one
// intersection. Mean delays are weighted by interval volume.
type ComparisonSummary struct {
	IntersectionID        string            `json:"intersectionId"`
	BaselineMeanDelay     float64           `json:"baselineMeanDelay"`
	AlternativeMeanDelay  float64           `json:"alternativeMeanDelay"`
	AbsoluteChange        float64           `json:"absoluteChange"`
	RelativeChange        float64           `json:"relativeChange"`
	ImprovementPercent    float64           `json:"improvementPercent"`
	BaselineThroughput    int               `json:"baselineThroughput"`
	AlternativeThroughput int               `json:"alternativeThroughput"`
	Intervals             int               `json:"intervals"`
	BaselineSaturated     int               `json:"baselineSaturated"`
	AlternativeSaturated  int               `json:"alternativeSaturated"`
	Approaches            []ApproachSummary `json:"approaches"`
}

// Comparison is a summary plus the per-interval results behind it.
type Comparison struct {
	Summary     ComparisonSummary `json:"summary"`
	Baseline    []DelayResult     `json:"baseline"`
	Alternative []DelayResult     `json:"alternative"`
}

// Analyzer evaluates timing plans against one intersection's observations.
// It holds references to the data and the model; it never mutates either.
type Analyzer struct {
	data  *IntersectionData
	model *DelayModel
}

// NewAnalyzer binds data to model. Neither is copied.
func NewAnalyzer(data *IntersectionData, model *DelayModel) *Analyzer {
	return &Analyzer{data: data, model: model}
}

// Data returns the intersection under analysis.
func (a *Analyzer) Data() *IntersectionData { return a.data }

// Delays evaluates plan for every record, ordered by interval then approach.
// The plan must cover exactly the recorded approaches.
func (a *Analyzer) Delays(plan TimingPlan, role PlanRole) ([]DelayResult, error) {
	const op = "estimate delays"
	if plan.IsZero() {
		return nil, configError(op, a.data.ID(), ErrInvalidCycleLength, "%s plan is not set", role)
	}
	recorded := a.data.Approaches()
	if !plan.Covers(recorded) {
		return nil, dataError(op, a.data.ID(), ErrApproachMismatch,
			"%s plan covers %v, recorded approaches are %v [%s]", role, plan.Approaches(), recorded, plan.Describe())
	}

	records := a.data.Records()
	results := make([]DelayResult, 0, len(records))
	for _, v := range records {
		green, _ := plan.Green(v.Approach)
		est, err := a.model.Delay(v.Count, green, plan.CycleLength())
		if err != nil {
			var e *Error
			if errors.As(err, &e) {
				e.IntersectionID = a.data.ID()
				e.Detail += " approach " + v.Approach + " in " + string(role) + " plan"
			}
			return nil, err
		}
		results = append(results, DelayResult{
			IntersectionID: a.data.ID(),
			Approach:       v.Approach,
			IntervalStart:  v.IntervalStart,
			Plan:           role,
			Volume:         v.Count,
			Delay:          est.Seconds,
			Saturated:      est.Saturated,
			NoGreen:        est.NoGreen,
		})
	}
	return results, nil
}

// Compare evaluates both plans over every interval and aggregates the result.
// It fails without a partial result when the intersection has no volume or
// when either plan does not cover the recorded approaches.
func (a *Analyzer) Compare(baseline, alternative TimingPlan) (*Comparison, error) {
	const op = "compare timing plans"
	total := a.data.TotalVolume()
	if total == 0 {
		return nil, dataError(op, a.data.ID(), ErrNoVolume, "%d records, total volume 0", a.data.Len())
	}

	base, err := a.Delays(baseline, Baseline)
	if err != nil {
		return nil, err
	}
	alt, err := a.Delays(alternative, Alternative)
	if err != nil {
		return nil, err
	}

	baseMean := WeightedMeanDelay(base)
	altMean := WeightedMeanDelay(alt)

	summary := ComparisonSummary{
		IntersectionID:        a.data.ID(),
		BaselineMeanDelay:     baseMean,
		AlternativeMeanDelay:  altMean,
		AbsoluteChange:        altMean - baseMean,
		BaselineThroughput:    total,
		AlternativeThroughput: total,
		Intervals:             len(a.data.Intervals()),
		BaselineSaturated:     countSaturated(base),
		AlternativeSaturated:  countSaturated(alt),
		Approaches:            approachSummaries(base, alt, baseline, alternative),
	}
	if baseMean > 0 {
		summary.RelativeChange = summary.AbsoluteChange / baseMean
		summary.ImprovementPercent = -summary.RelativeChange * 100
	}

	return &Comparison{Summary: summary, Baseline: base, Alternative: alt}, nil
}

// WeightedMeanDelay is the volume-weighted mean of results. It returns 0 when
// the results carry no volume.
func WeightedMeanDelay(results []DelayResult) float64 {
	delays := make([]float64, len(results))
	weights := make([]float64, len(results))
	sum := 0.0
	for i, r := range results {
		delays[i] = r.Delay
		weights[i] = float64(r.Volume)
		sum += weights[i]
	}
	if sum == 0 {
		return 0
	}
	return stat.Mean(delays, weights)
}

func countSaturated(results []DelayResult) int {
	n := 0
	for _, r := range results {
		if r.Saturated || r.NoGreen {
			n++
		}
	}
	return n
}

func approachSummaries(base, alt []DelayResult, baseline, alternative TimingPlan) []ApproachSummary {
	byApproach := func(results []DelayResult) map[string][]DelayResult {
		out := make(map[string][]DelayResult)
		for _, r := range results {
			out[r.Approach] = append(out[r.Approach], r)
		}
		return out
	}
	baseBy, altBy := byApproach(base), byApproach(alt)

	approaches := baseline.Approaches()
	out := make([]ApproachSummary, 0, len(approaches))
	for _, approach := range approaches {
		volume := 0
		for _, r := range baseBy[approach] {
			volume += r.Volume
		}
		bg, _ := baseline.Green(approach)
		ag, _ := alternative.Green(approach)
		out = append(out, ApproachSummary{
			Approach:             approach,
			Volume:               volume,
			BaselineGreen:        bg,
			AlternativeGreen:     ag,
			BaselineMeanDelay:    WeightedMeanDelay(baseBy[approach]),
			AlternativeMeanDelay: WeightedMeanDelay(altBy[approach]),
		})
	}
	slices.SortStableFunc(out, func(a, b ApproachSummary) int { return b.Volume - a.Volume })
	return out
}
