package signal

import (
	"math"
	"time"
)

// Delay model defaults.
const (
	// DefaultSaturationFlow is 1800 veh/h of green expressed per second.
	DefaultSaturationFlow = 0.5
	// DefaultInterval is the width of one count interval.
	DefaultInterval = 15 * time.Minute
	// DefaultNoGreenDelay is the per-vehicle delay assigned to an approach
	// that receives no green: vehicles are not served within the day.
	DefaultNoGreenDelay = 86400.0
	// DefaultEpsilon is the floor for the uniform-delay denominator.
	DefaultEpsilon = 0.01
)

// DelayConfig holds the tunable constants of the delay model.
type DelayConfig struct {
	SaturationFlow float64 // vehicles per second of green
	Interval       time.Duration
	NoGreenDelay   float64 // seconds
	Epsilon        float64
}

// DefaultDelayConfig returns the documented defaults.
func DefaultDelayConfig() DelayConfig {
	return DelayConfig{
		SaturationFlow: DefaultSaturationFlow,
		Interval:       DefaultInterval,
		NoGreenDelay:   DefaultNoGreenDelay,
		Epsilon:        DefaultEpsilon,
	}
}

// WithDefaults fills zero fields with the defaults.
func (c DelayConfig) WithDefaults() DelayConfig {
	d := DefaultDelayConfig()
	if c.SaturationFlow == 0 {
		c.SaturationFlow = d.SaturationFlow
	}
	if c.Interval == 0 {
		c.Interval = d.Interval
	}
	if c.NoGreenDelay == 0 {
		c.NoGreenDelay = d.NoGreenDelay
	}
	if c.Epsilon == 0 {
		c.Epsilon = d.Epsilon
	}
	return c
}

// DelayModel estimates average per-vehicle delay with the uniform-delay term
//
//	d = 0.5·C·(1 − g/C)² / (1 − min(v/s, 1)·g/C)
//
// where v is the interval's arrival rate and s the saturation flow.
type DelayModel struct {
	cfg DelayConfig
}

// NewDelayModel validates cfg. Every parameter must be positive and finite.
func NewDelayModel(cfg DelayConfig) (*DelayModel, error) {
	const op = "new delay model"
	switch {
	case !isFinite(cfg.SaturationFlow) || cfg.SaturationFlow <= 0:
		return nil, configError(op, "", ErrInvalidModelParameter, "saturation flow=%v", cfg.SaturationFlow)
	case cfg.Interval <= 0:
		return nil, configError(op, "", ErrInvalidModelParameter, "interval=%v", cfg.Interval)
	case !isFinite(cfg.NoGreenDelay) || cfg.NoGreenDelay <= 0:
		return nil, configError(op, "", ErrInvalidModelParameter, "no-green delay=%v", cfg.NoGreenDelay)
	case !isFinite(cfg.Epsilon) || cfg.Epsilon <= 0 || cfg.Epsilon >= 1:
		return nil, configError(op, "", ErrInvalidModelParameter, "epsilon=%v", cfg.Epsilon)
	}
	return &DelayModel{cfg: cfg}, nil
}

// Config returns the validated parameters the model was built with.
func (m *DelayModel) Config() DelayConfig { return m.cfg }

// Estimate is the model output for one approach and interval.
type Estimate struct {
	Seconds   float64
	Saturated bool // denominator was clamped to epsilon
	NoGreen   bool // sentinel returned because g == 0
}

// Delay estimates the average delay per vehicle for one approach over one
// interval. Invalid cycle or green values are configuration errors; zero
// green and oversaturation are handled with the sentinel and the clamp.
func (m *DelayModel) Delay(volume int, green, cycle float64) (Estimate, error) {
	const op = "estimate delay"
	if !isFinite(cycle) || cycle <= 0 {
		return Estimate{}, configError(op, "", ErrInvalidCycleLength, "cycle=%v", cycle)
	}
	if !isFinite(green) || green < 0 {
		return Estimate{}, configError(op, "", ErrNegativeGreen, "green=%v", green)
	}
	if green > cycle+planTolerance {
		return Estimate{}, configError(op, "", ErrGreenExceedsCycle, "green=%v cycle=%v", green, cycle)
	}
	if volume < 0 {
		return Estimate{}, configError(op, "", ErrNegativeVolume, "volume=%d", volume)
	}
	if green == 0 {
		return Estimate{Seconds: m.cfg.NoGreenDelay, NoGreen: true}, nil
	}

	gc := math.Min(green/cycle, 1)
	uniform := 0.5 * cycle * (1 - gc) * (1 - gc)
	if volume == 0 {
		return Estimate{Seconds: uniform}, nil
	}

	arrival := float64(volume) / m.cfg.Interval.Seconds()
	x := math.Min(arrival/m.cfg.SaturationFlow, 1)
	denom := 1 - x*gc
	est := Estimate{}
	if denom < m.cfg.Epsilon {
		denom = m.cfg.Epsilon
		est.Saturated = true
	}
	est.Seconds = uniform / denom
	return est, nil
}

// PlanRole tags a delay result with the plan it was computed under.
type PlanRole string

const (
	Baseline    PlanRole = "baseline"
	Alternative PlanRole = "alternative"
)

// ParsePlanRole accepts "baseline" or "alternative".
func ParsePlanRole(s string) (PlanRole, bool) {
	switch PlanRole(s) {
	case Baseline, Alternative:
		return PlanRole(s), true
	}
	return "", false
}

// DelayResult is the estimated delay for one (intersection, approach,
// interval, plan). It carries no reference to the data it came from.
type DelayResult struct {
	IntersectionID string    `json:"intersectionId"`
	Approach       string    `json:"approach"`
	IntervalStart  time.Time `json:"intervalStart"`
	Plan           PlanRole  `json:"plan"`
	Volume         int       `json:"volume"`
	Delay          float64   `json:"delay"`
	Saturated      bool      `json:"saturated"`
	NoGreen        bool      `json:"noGreen"`
}
