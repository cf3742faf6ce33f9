// Package report writes the results of a batch run as CSV and JSON files.
package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/kyleponte/signaltiming/internal/batch"
	"github.com/kyleponte/signaltiming/internal/clock"
	"github.com/kyleponte/signaltiming/internal/signal"
)

// ErrEmptyRun is returned when there is nothing to write.
var ErrEmptyRun = errors.New("results are empty")

// Run is one batch execution.
type Run struct {
	ID          uuid.UUID
	GeneratedAt time.Time
	Outcomes    []batch.Outcome
}

// NewRun stamps outcomes with a fresh id and the clock's time.
func NewRun(c clock.Clock, outcomes []batch.Outcome) *Run {
	return &Run{
		ID:          uuid.New(),
		GeneratedAt: c.Now().UTC(),
		Outcomes:    outcomes,
	}
}

// Failed counts outcomes without a comparison.
func (r *Run) Failed() int {
	return len(r.Outcomes) - len(batch.Succeeded(r.Outcomes))
}

var summaryHeader = []string{
	"intersection_id", "status", "error",
	"baseline_mean_delay", "alternative_mean_delay",
	"absolute_change", "relative_change", "improvement_percent",
	"throughput", "intervals", "baseline_saturated", "alternative_saturated",
}

// WriteSummaries writes one CSV row per intersection, failures included.
func WriteSummaries(w io.Writer, run *Run) error {
	if run == nil || len(run.Outcomes) == 0 {
		return ErrEmptyRun
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(summaryHeader); err != nil {
		return err
	}
	for _, o := range run.Outcomes {
		row := make([]string, len(summaryHeader))
		row[0] = o.IntersectionID
		if !o.OK() {
			row[1] = "failed"
			if o.Err != nil {
				row[2] = o.Err.Error()
			}
		} else {
			s := o.Comparison.Summary
			row[1] = "ok"
			row[3] = formatFloat(s.BaselineMeanDelay)
			row[4] = formatFloat(s.AlternativeMeanDelay)
			row[5] = formatFloat(s.AbsoluteChange)
			row[6] = formatFloat(s.RelativeChange)
			row[7] = formatFloat(s.ImprovementPercent)
			row[8] = strconv.Itoa(s.BaselineThroughput)
			row[9] = strconv.Itoa(s.Intervals)
			row[10] = strconv.Itoa(s.BaselineSaturated)
			row[11] = strconv.Itoa(s.AlternativeSaturated)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

var delayHeader = []string{
	"intersection_id", "approach", "interval_start", "time_of_day", "plan",
	"volume", "delay_seconds", "saturated", "no_green",
}

// WriteDelays writes every per-interval estimate of the successful outcomes,
// baseline rows first, so delay can be plotted against time of day.
func WriteDelays(w io.Writer, run *Run) error {
	if run == nil {
		return ErrEmptyRun
	}
	ok := batch.Succeeded(run.Outcomes)
	if len(ok) == 0 {
		return ErrEmptyRun
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(delayHeader); err != nil {
		return err
	}
	for _, o := range ok {
		for _, results := range [][]signal.DelayResult{o.Comparison.Baseline, o.Comparison.Alternative} {
			for _, r := range results {
				if err := cw.Write([]string{
					r.IntersectionID,
					r.Approach,
					r.IntervalStart.Format(time.RFC3339),
					r.IntervalStart.Format("15:04"),
					string(r.Plan),
					strconv.Itoa(r.Volume),
					formatFloat(r.Delay),
					strconv.FormatBool(r.Saturated),
					strconv.FormatBool(r.NoGreen),
				}); err != nil {
					return err
				}
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// PlanEntry is one intersection in the plans document.
type PlanEntry struct {
	IntersectionID string                    `json:"intersectionId"`
	Baseline       *signal.TimingPlan        `json:"baseline,omitempty"`
	Alternative    *signal.TimingPlan        `json:"alternative,omitempty"`
	Generated      *signal.GeneratedPlan     `json:"generated,omitempty"`
	Summary        *signal.ComparisonSummary `json:"summary,omitempty"`
	Error          string                    `json:"error,omitempty"`
}

// PlansDocument is the JSON written by WritePlans.
type PlansDocument struct {
	RunID         string      `json:"runId"`
	GeneratedAt   time.Time   `json:"generatedAt"`
	Intersections []PlanEntry `json:"intersections"`
}

// Entries converts outcomes to plan entries.
func Entries(outcomes []batch.Outcome) []PlanEntry {
	out := make([]PlanEntry, 0, len(outcomes))
	for _, o := range outcomes {
		e := PlanEntry{IntersectionID: o.IntersectionID, Generated: o.Generated}
		if !o.Baseline.IsZero() {
			p := o.Baseline
			e.Baseline = &p
		}
		if !o.Alternative.IsZero() {
			p := o.Alternative
			e.Alternative = &p
		}
		if o.Comparison != nil {
			s := o.Comparison.Summary
			e.Summary = &s
		}
		if o.Err != nil {
			e.Error = o.Err.Error()
		}
		out = append(out, e)
	}
	return out
}

// WritePlans writes the baseline, alternative and summary of every
// intersection as indented JSON.
func WritePlans(w io.Writer, run *Run) error {
	if run == nil || len(run.Outcomes) == 0 {
		return ErrEmptyRun
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(PlansDocument{
		RunID:         run.ID.String(),
		GeneratedAt:   run.GeneratedAt,
		Intersections: Entries(run.Outcomes),
	}); err != nil {
		return fmt.Errorf("failed to encode plans: %w", err)
	}
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}
