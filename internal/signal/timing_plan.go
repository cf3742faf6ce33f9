package signal

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/samber/lo"
)

// planTolerance absorbs floating point noise when checking Σg + L ≤ C and
// when comparing plans.
const planTolerance = 1e-9

// TimingPlan is an immutable signal-timing configuration: a cycle length, a
// fixed lost time per cycle and a green allocation per approach, all in
// seconds. The zero value is not a valid plan; use NewTimingPlan.
type TimingPlan struct {
	cycle  float64
	lost   float64
	greens map[string]float64
}

// NewTimingPlan validates and builds a plan. greens is copied.
func NewTimingPlan(cycle, lostTime float64, greens map[string]float64) (TimingPlan, error) {
	const op = "new timing plan"
	if !isFinite(cycle) || cycle <= 0 {
		return TimingPlan{}, configError(op, "", ErrInvalidCycleLength, "cycle=%v", cycle)
	}
	if !isFinite(lostTime) || lostTime < 0 || lostTime >= cycle {
		return TimingPlan{}, configError(op, "", ErrInvalidLostTime, "lost=%v cycle=%v", lostTime, cycle)
	}
	total := lostTime
	for approach, g := range greens {
		if approach == "" {
			return TimingPlan{}, configError(op, "", ErrInvalidRecord, "empty approach name")
		}
		if !isFinite(g) || g < 0 {
			return TimingPlan{}, configError(op, "", ErrNegativeGreen, "approach %s green=%v", approach, g)
		}
		total += g
	}
	if total > cycle+planTolerance {
		return TimingPlan{}, configError(op, "", ErrPlanOverCommitted, "greens+lost=%.3f cycle=%.3f", total, cycle)
	}
	return TimingPlan{cycle: cycle, lost: lostTime, greens: maps.Clone(greens)}, nil
}

// MustTimingPlan is NewTimingPlan for literals known to be valid.
func MustTimingPlan(cycle, lostTime float64, greens map[string]float64) TimingPlan {
	p, err := NewTimingPlan(cycle, lostTime, greens)
	if err != nil {
		panic(err)
	}
	return p
}

// CycleLength is C in seconds.
func (p TimingPlan) CycleLength() float64 { return p.cycle }

// LostTime is L in seconds, the part of the cycle no approach can use.
func (p TimingPlan) LostTime() float64 { return p.lost }

// Green returns the allocation for approach and whether the plan covers it.
func (p TimingPlan) Green(approach string) (float64, bool) {
	g, ok := p.greens[approach]
	return g, ok
}

// Greens returns a copy of the per-approach allocations.
func (p TimingPlan) Greens() map[string]float64 { return maps.Clone(p.greens) }

// Approaches returns the covered approaches in sorted order.
func (p TimingPlan) Approaches() []string {
	return slices.Sorted(maps.Keys(p.greens))
}

// ApproachCount is the number of approaches with an allocation.
func (p TimingPlan) ApproachCount() int { return len(p.greens) }

// TotalGreen sums the green allocations.
func (p TimingPlan) TotalGreen() float64 {
	return lo.Sum(lo.Values(p.greens))
}

// GreenRatio is g/C for approach, 0 when the approach is not covered.
func (p TimingPlan) GreenRatio(approach string) float64 {
	if p.cycle <= 0 {
		return 0
	}
	return p.greens[approach] / p.cycle
}

// IsZero reports whether p is the zero value.
func (p TimingPlan) IsZero() bool { return p.cycle == 0 }

// SameApproaches reports whether both plans cover exactly the same approaches.
func (p TimingPlan) SameApproaches(other TimingPlan) bool {
	return sameSet(p.Approaches(), other.Approaches())
}

// Covers reports whether the plan covers exactly the given approaches.
func (p TimingPlan) Covers(approaches []string) bool {
	sorted := slices.Clone(approaches)
	slices.Sort(sorted)
	return sameSet(p.Approaches(), slices.Compact(sorted))
}

// Equal compares two plans within a small tolerance.
func (p TimingPlan) Equal(other TimingPlan) bool {
	if !p.SameApproaches(other) {
		return false
	}
	if !nearlyEqual(p.cycle, other.cycle) || !nearlyEqual(p.lost, other.lost) {
		return false
	}
	for approach, g := range p.greens {
		if !nearlyEqual(g, other.greens[approach]) {
			return false
		}
	}
	return true
}

func (p TimingPlan) String() string {
	return fmt.Sprintf("TimingPlan(cycle=%.1fs, approaches=%d)", p.cycle, len(p.greens))
}

// Describe renders every allocation, for error details and logs.
func (p TimingPlan) Describe() string {
	s := fmt.Sprintf("cycle=%.1fs lost=%.1fs", p.cycle, p.lost)
	for _, approach := range p.Approaches() {
		s += fmt.Sprintf(" %s=%.1fs", approach, p.greens[approach])
	}
	return s
}

// Combine averages two plans element-wise: cycle length, lost time and every
// approach's green. It is commutative and Combine(p, p) equals p. The plans
// must cover the same approaches.
func Combine(a, b TimingPlan) (TimingPlan, error) {
	const op = "combine timing plans"
	if !a.SameApproaches(b) {
		return TimingPlan{}, configError(op, "", ErrApproachMismatch, "%v vs %v", a.Approaches(), b.Approaches())
	}
	greens := make(map[string]float64, len(a.greens))
	for approach, g := range a.greens {
		greens[approach] = (g + b.greens[approach]) / 2
	}
	return NewTimingPlan((a.cycle+b.cycle)/2, (a.lost+b.lost)/2, greens)
}

// Blend returns (1-weight)·a + weight·b element-wise. weight 0 yields a,
// weight 1 yields b. A convex blend of two valid plans is itself valid.
func Blend(a, b TimingPlan, weight float64) (TimingPlan, error) {
	const op = "blend timing plans"
	if !isFinite(weight) || weight < 0 || weight > 1 {
		return TimingPlan{}, configError(op, "", ErrInvalidBlendWeight, "weight=%v", weight)
	}
	if !a.SameApproaches(b) {
		return TimingPlan{}, configError(op, "", ErrApproachMismatch, "%v vs %v", a.Approaches(), b.Approaches())
	}
	mix := func(x, y float64) float64 { return (1-weight)*x + weight*y }
	greens := make(map[string]float64, len(a.greens))
	for approach, g := range a.greens {
		greens[approach] = mix(g, b.greens[approach])
	}
	return NewTimingPlan(mix(a.cycle, b.cycle), mix(a.lost, b.lost), greens)
}

type timingPlanJSON struct {
	CycleLength float64            `json:"cycleLength"`
	LostTime    float64            `json:"lostTime"`
	Greens      map[string]float64 `json:"greens"`
}

func (p TimingPlan) MarshalJSON() ([]byte, error) {
	return json.Marshal(timingPlanJSON{CycleLength: p.cycle, LostTime: p.lost, Greens: p.greens})
}

// UnmarshalJSON decodes and re-validates a plan.
func (p *TimingPlan) UnmarshalJSON(b []byte) error {
	var raw timingPlanJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	plan, err := NewTimingPlan(raw.CycleLength, raw.LostTime, raw.Greens)
	if err != nil {
		return err
	}
	*p = plan
	return nil
}

func sameSet(a, b []string) bool {
	return slices.Equal(a, b)
}

func nearlyEqual(a, b float64) bool {
	return math.Abs(a-b) <= planTolerance*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
