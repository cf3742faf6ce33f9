package signal

import (
	"fmt"
	"slices"
	"time"
)

// Window selects which observations represent demand when splitting green.
type Window string

const (
	// WindowAggregate uses totals over every recorded interval.
	WindowAggregate Window = "aggregate"
	// WindowPeakInterval uses the single busiest interval.
	WindowPeakInterval Window = "peak-interval"
	// WindowPeakHour uses the busiest 60-minute window.
	WindowPeakHour Window = "peak-hour"
)

// Generator defaults.
const (
	DefaultCycleLength = 90.0
	DefaultLostTime    = 10.0
	DefaultMinGreen    = 7.0
)

type GeneratorConfig struct {
	CycleLength float64
	LostTime    float64
	MinGreen    float64
	Window      Window
	// MaxPasses bounds the floor-and-redistribute loop. Zero means one more
	// pass than there are approaches, which always reaches the fixed point.
	MaxPasses int
}

// DefaultGeneratorConfig returns the documented defaults.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		CycleLength: DefaultCycleLength,
		LostTime:    DefaultLostTime,
		MinGreen:    DefaultMinGreen,
		Window:      WindowAggregate,
	}
}

// Generator derives an alternative plan whose greens follow each approach's
// share of observed volume.
type Generator struct {
	cfg GeneratorConfig
}

func NewGenerator(cfg GeneratorConfig) (*Generator, error) {
	const op = "new generator"
	if cfg.Window == "" {
		cfg.Window = WindowAggregate
	}
	switch {
	case !isFinite(cfg.CycleLength) || cfg.CycleLength <= 0:
		return nil, configError(op, "", ErrInvalidCycleLength, "cycle=%v", cfg.CycleLength)
	case !isFinite(cfg.LostTime) || cfg.LostTime < 0 || cfg.LostTime >= cfg.CycleLength:
		return nil, configError(op, "", ErrInvalidLostTime, "lost=%v cycle=%v", cfg.LostTime, cfg.CycleLength)
	case !isFinite(cfg.MinGreen) || cfg.MinGreen < 0:
		return nil, configError(op, "", ErrInvalidGeneratorConfig, "min green=%v", cfg.MinGreen)
	case cfg.MaxPasses < 0:
		return nil, configError(op, "", ErrInvalidGeneratorConfig, "max passes=%d", cfg.MaxPasses)
	}
	switch cfg.Window {
	case WindowAggregate, WindowPeakInterval, WindowPeakHour:
	default:
		return nil, configError(op, "", ErrInvalidGeneratorConfig, "unknown window %q", cfg.Window)
	}
	return &Generator{cfg: cfg}, nil
}

// Config returns the settings with defaults filled in.
func (g *Generator) Config() GeneratorConfig { return g.cfg }

// GeneratedPlan is the generator output together with how it was reached.
type GeneratedPlan struct {
	Plan TimingPlan `json:"plan"`
	// Shares is each approach's fraction of volume in the window.
	Shares map[string]float64 `json:"shares"`
	// Floored lists approaches held at the minimum green.
	Floored []string `json:"floored"`
	// Unallocated is effective green (C - L) left unassigned because every
	// approach ended at the minimum. The greens then sum to less than C - L.
	Unallocated float64   `json:"unallocated"`
	Passes      int       `json:"passes"`
	Window      Window    `json:"window"`
	WindowStart time.Time `json:"windowStart,omitzero"`
}

// AllAtMinimum reports whether every approach ended at the minimum green.
func (gp GeneratedPlan) AllAtMinimum() bool {
	return len(gp.Floored) > 0 && len(gp.Floored) == gp.Plan.ApproachCount()
}

// Generate splits C - L among the recorded approaches in proportion to their
// volume share, raises any allocation below the minimum green to the minimum
// and re-splits the remainder among the others until nothing changes.
func (g *Generator) Generate(data *IntersectionData) (GeneratedPlan, error) {
	const op = "generate timing plan"
	approaches := data.Approaches()
	if len(approaches) == 0 {
		return GeneratedPlan{}, dataError(op, data.ID(), ErrNoVolume, "no records")
	}

	available := g.cfg.CycleLength - g.cfg.LostTime
	if float64(len(approaches))*g.cfg.MinGreen > available+planTolerance {
		return GeneratedPlan{}, configError(op, data.ID(), ErrInfeasibleMinimumGreen,
			"%d approaches x %.1fs min green > %.1fs available (cycle %.1fs, lost %.1fs)",
			len(approaches), g.cfg.MinGreen, available, g.cfg.CycleLength, g.cfg.LostTime)
	}

	windowed, windowStart := g.representative(data)
	volumes := windowed.TotalByApproach()
	total := 0
	for _, v := range volumes {
		total += v
	}
	if total == 0 {
		return GeneratedPlan{}, dataError(op, data.ID(), ErrNoVolume, "window %s has zero volume", g.cfg.Window)
	}

	shares := make(map[string]float64, len(approaches))
	for _, a := range approaches {
		shares[a] = float64(volumes[a]) / float64(total)
	}

	maxPasses := g.cfg.MaxPasses
	if maxPasses == 0 {
		maxPasses = len(approaches) + 1
	}

	floored := make(map[string]bool, len(approaches))
	greens := make(map[string]float64, len(approaches))
	passes := 0
	for passes < maxPasses {
		passes++
		remaining := available - float64(len(floored))*g.cfg.MinGreen
		freeShare := 0.0
		for _, a := range approaches {
			if !floored[a] {
				freeShare += shares[a]
			}
		}
		for _, a := range approaches {
			switch {
			case floored[a]:
				greens[a] = g.cfg.MinGreen
			case freeShare > 0:
				greens[a] = remaining * shares[a] / freeShare
			default:
				greens[a] = 0
			}
		}

		changed := false
		for _, a := range approaches {
			if !floored[a] && greens[a] < g.cfg.MinGreen {
				floored[a] = true
				greens[a] = g.cfg.MinGreen
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	assigned := 0.0
	for _, v := range greens {
		assigned += v
	}
	// Greens can only fall short of the available time when every approach
	// is floored; anything else would mean the loop ran out of passes.
	unallocated := 0.0
	if len(floored) == len(approaches) {
		unallocated = max(available-assigned, 0)
	} else if over := assigned - available; over > planTolerance {
		return GeneratedPlan{}, configError(op, data.ID(), ErrInvalidGeneratorConfig,
			"allocation did not converge within %d passes (over by %.3fs)", maxPasses, over)
	}

	plan, err := NewTimingPlan(g.cfg.CycleLength, g.cfg.LostTime, greens)
	if err != nil {
		return GeneratedPlan{}, fmt.Errorf("generate timing plan for %s: %w", data.ID(), err)
	}

	flooredList := make([]string, 0, len(floored))
	for a := range floored {
		flooredList = append(flooredList, a)
	}
	slices.Sort(flooredList)

	return GeneratedPlan{
		Plan:        plan,
		Shares:      shares,
		Floored:     flooredList,
		Unallocated: unallocated,
		Passes:      passes,
		Window:      g.cfg.Window,
		WindowStart: windowStart,
	}, nil
}

// representative narrows data to the configured window. Approaches missing
// from the window keep a zero share but still receive the minimum green.
func (g *Generator) representative(data *IntersectionData) (*IntersectionData, time.Time) {
	switch g.cfg.Window {
	case WindowPeakInterval:
		peak, ok := data.PeakInterval()
		if !ok {
			return data, time.Time{}
		}
		return data.window(peak.Start, peak.Start.Add(time.Nanosecond)), peak.Start
	case WindowPeakHour:
		start, _, ok := data.PeakHour()
		if !ok {
			return data, time.Time{}
		}
		return data.window(start, start.Add(time.Hour)), start
	default:
		return data, time.Time{}
	}
}

// EvenSplit builds a fixed-time plan that gives every recorded approach the
// same share of C - L. It stands in for a baseline when none is configured.
func (g *Generator) EvenSplit(data *IntersectionData) (TimingPlan, error) {
	approaches := data.Approaches()
	if len(approaches) == 0 {
		return TimingPlan{}, dataError("even split", data.ID(), ErrNoVolume, "no records")
	}
	share := (g.cfg.CycleLength - g.cfg.LostTime) / float64(len(approaches))
	greens := make(map[string]float64, len(approaches))
	for _, a := range approaches {
		greens[a] = share
	}
	return NewTimingPlan(g.cfg.CycleLength, g.cfg.LostTime, greens)
}
