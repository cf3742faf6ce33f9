package models

import (
	"time"

	"github.com/kyleponte/signaltiming/internal/signal"
)

// TimingPlan is the JSON view of a plan, with each approach's g/C ratio.
type TimingPlan struct {
	CycleLength float64            `json:"cycleLength"`
	LostTime    float64            `json:"lostTime"`
	Greens      map[string]float64 `json:"greens"`
	GreenRatios map[string]float64 `json:"greenRatios"`
	TotalGreen  float64            `json:"totalGreen"`
}

func NewTimingPlan(p signal.TimingPlan) TimingPlan {
	ratios := make(map[string]float64, p.ApproachCount())
	for _, approach := range p.Approaches() {
		ratios[approach] = p.GreenRatio(approach)
	}
	return TimingPlan{
		CycleLength: p.CycleLength(),
		LostTime:    p.LostTime(),
		Greens:      p.Greens(),
		GreenRatios: ratios,
		TotalGreen:  p.TotalGreen(),
	}
}

// Generated describes how the alternative plan was derived from demand.
// AllAtMinimum flags demand too light to shape the plan: every approach
// sits at the minimum green.
type Generated struct {
	Shares       map[string]float64 `json:"shares"`
	Floored      []string           `json:"floored"`
	AllAtMinimum bool               `json:"allAtMinimum"`
	Unallocated  float64            `json:"unallocated"`
	Passes       int                `json:"passes"`
	Window       string             `json:"window"`
	WindowStart  *time.Time         `json:"windowStart,omitempty"`
}

func NewGenerated(gp signal.GeneratedPlan) Generated {
	out := Generated{
		Shares:       gp.Shares,
		Floored:      gp.Floored,
		AllAtMinimum: gp.AllAtMinimum(),
		Unallocated:  gp.Unallocated,
		Passes:       gp.Passes,
		Window:       string(gp.Window),
	}
	if out.Floored == nil {
		out.Floored = []string{}
	}
	if !gp.WindowStart.IsZero() {
		start := gp.WindowStart
		out.WindowStart = &start
	}
	return out
}

// PlanEntry pairs an intersection's baseline with its generated alternative.
type PlanEntry struct {
	IntersectionId string     `json:"intersectionId"`
	Day            string     `json:"day,omitempty"`
	Baseline       TimingPlan `json:"baseline"`
	Alternative    TimingPlan `json:"alternative"`
	Generated      Generated  `json:"generated"`
}

// ComparisonEntry is the result of comparing two plans at one intersection.
type ComparisonEntry struct {
	IntersectionId string                   `json:"intersectionId"`
	Day            string                   `json:"day,omitempty"`
	Blend          *float64                 `json:"blend,omitempty"`
	Baseline       TimingPlan               `json:"baseline"`
	Alternative    TimingPlan               `json:"alternative"`
	Summary        signal.ComparisonSummary `json:"summary"`
}

// DelayEntry lists per-interval estimates under one plan.
type DelayEntry struct {
	IntersectionId string               `json:"intersectionId"`
	Day            string               `json:"day,omitempty"`
	Plan           string               `json:"plan"`
	TimingPlan     TimingPlan           `json:"timingPlan"`
	MeanDelay      float64              `json:"meanDelay"`
	Results        []signal.DelayResult `json:"results"`
}

// AnalysisOutcome is one intersection's line in a batch analysis.
type AnalysisOutcome struct {
	IntersectionId string                    `json:"intersectionId"`
	Status         string                    `json:"status"`
	Error          string                    `json:"error,omitempty"`
	Summary        *signal.ComparisonSummary `json:"summary,omitempty"`
}

// AnalysisRun is the response to a batch analysis request.
type AnalysisRun struct {
	RunId         string            `json:"runId"`
	GeneratedAt   int64             `json:"generatedAt"`
	Intersections int               `json:"intersections"`
	Failed        int               `json:"failed"`
	Stored        bool              `json:"stored"`
	Results       []AnalysisOutcome `json:"results"`
}
