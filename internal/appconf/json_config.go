package appconf

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
	_ "time/tzdata" // timezone names must resolve on hosts without zoneinfo

	"github.com/kyleponte/signaltiming/internal/signal"
)

// PlanConfig is a timing plan as written in the config file.
type PlanConfig struct {
	CycleLength float64            `json:"cycle-length"`
	LostTime    float64            `json:"lost-time"`
	Greens      map[string]float64 `json:"greens"`
}

func (p PlanConfig) build() (signal.TimingPlan, error) {
	return signal.NewTimingPlan(p.CycleLength, p.LostTime, p.Greens)
}

// IntersectionConfig carries metadata and an optional baseline plan for one
// intersection.
type IntersectionConfig struct {
	ID       string      `json:"id"`
	Location string      `json:"location"`
	Lat      float64     `json:"lat"`
	Lon      float64     `json:"lon"`
	Baseline *PlanConfig `json:"baseline,omitempty"`
}

// AnalysisJSON holds the delay model and generator settings.
type AnalysisJSON struct {
	SaturationFlow  float64  `json:"saturation-flow"`
	IntervalMinutes float64  `json:"interval-minutes"`
	NoGreenDelay    float64  `json:"no-green-delay"`
	Epsilon         float64  `json:"epsilon"`
	CycleLength     float64  `json:"cycle-length"`
	LostTime        float64  `json:"lost-time"`
	MinGreen        *float64 `json:"min-green"`
	Window          string   `json:"window"`
	MaxPasses       int      `json:"max-passes"`
	Blend           *float64 `json:"blend"`
	Workers         int      `json:"workers"`
}

// JSONConfig is the on-disk configuration file.
type JSONConfig struct {
	Port      int      `json:"port"`
	Env       string   `json:"env"`
	ApiKeys   []string `json:"api-keys"`
	RateLimit int      `json:"rate-limit"`
	Verbose   bool     `json:"verbose"`

	DataPath        string `json:"data-path"`
	VolumesPath     string `json:"volumes-path"`
	DefaultApproach string `json:"default-approach"`
	Timezone        string `json:"timezone"`
	ReportsDir      string `json:"reports-dir"`

	Analysis      AnalysisJSON         `json:"analysis"`
	Baseline      *PlanConfig          `json:"baseline,omitempty"`
	Intersections []IntersectionConfig `json:"intersections"`
}

// DefaultJSONConfig is what an empty config file means.
func DefaultJSONConfig() JSONConfig {
	return JSONConfig{
		Port:      4000,
		Env:       "development",
		RateLimit: 100,
		DataPath:  "signaltiming.db",
	}
}

// LoadFromFile reads, decodes and validates a config file. Fields absent
// from the file keep their DefaultJSONConfig values.
func LoadFromFile(path string) (*JSONConfig, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultJSONConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse JSON config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks every field that cannot be checked by the type system,
// including building each configured plan.
func (c *JSONConfig) Validate() error {
	var errs []error
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if _, err := ParseEnvironment(c.Env); err != nil {
		errs = append(errs, err)
	}
	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rate-limit must be non-negative, got %d", c.RateLimit))
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("timezone: %w", err))
		}
	}
	if b := c.Analysis.Blend; b != nil && (*b < 0 || *b > 1) {
		errs = append(errs, fmt.Errorf("analysis.blend must be within [0, 1], got %v", *b))
	}
	if c.Analysis.Workers < 0 {
		errs = append(errs, fmt.Errorf("analysis.workers must be non-negative, got %d", c.Analysis.Workers))
	}
	if _, err := c.ToAnalysisConfig(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ToAppConfig extracts the HTTP server settings. Call on a validated config.
func (c *JSONConfig) ToAppConfig() Config {
	env, _ := ParseEnvironment(c.Env)
	keys := c.ApiKeys
	if keys == nil {
		keys = []string{}
	}
	return Config{
		Port:       c.Port,
		Env:        env,
		ApiKeys:    keys,
		Verbose:    c.Verbose,
		RateLimit:  c.RateLimit,
		ReportsDir: c.ReportsDir,
	}
}

// CatalogConfigData carries what the catalog needs, without importing it.
type CatalogConfigData struct {
	VolumesPath     string
	DataPath        string
	DefaultApproach string
	Location        *time.Location
	Metadata        map[string]signal.Metadata
	Env             Environment
	Verbose         bool
}

// ToCatalogConfigData extracts the data-source settings. Call on a validated
// config.
func (c *JSONConfig) ToCatalogConfigData() CatalogConfigData {
	env, _ := ParseEnvironment(c.Env)
	loc := time.UTC
	if c.Timezone != "" {
		if l, err := time.LoadLocation(c.Timezone); err == nil {
			loc = l
		}
	}
	meta := make(map[string]signal.Metadata, len(c.Intersections))
	for _, ic := range c.Intersections {
		meta[ic.ID] = signal.Metadata{Location: ic.Location, Lat: ic.Lat, Lon: ic.Lon}
	}
	return CatalogConfigData{
		VolumesPath:     c.VolumesPath,
		DataPath:        c.DataPath,
		DefaultApproach: c.DefaultApproach,
		Location:        loc,
		Metadata:        meta,
		Env:             env,
		Verbose:         c.Verbose,
	}
}

// AnalysisConfig is the validated analysis setup shared by the API and the
// batch command.
type AnalysisConfig struct {
	Delay     signal.DelayConfig
	Generator signal.GeneratorConfig
	Blend     *float64
	Workers   int
	// DefaultBaseline applies to intersections without their own plan.
	DefaultBaseline *signal.TimingPlan
	Baselines       map[string]signal.TimingPlan
}

// DefaultAnalysisConfig uses the model and generator defaults and no plans.
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		Delay:     signal.DefaultDelayConfig(),
		Generator: signal.DefaultGeneratorConfig(),
		Baselines: map[string]signal.TimingPlan{},
	}
}

// ToAnalysisConfig converts the analysis section and the configured plans.
// Zero values fall back to the model and generator defaults.
func (c *JSONConfig) ToAnalysisConfig() (AnalysisConfig, error) {
	out := DefaultAnalysisConfig()
	a := c.Analysis

	if a.SaturationFlow != 0 {
		out.Delay.SaturationFlow = a.SaturationFlow
	}
	if a.IntervalMinutes != 0 {
		out.Delay.Interval = time.Duration(a.IntervalMinutes * float64(time.Minute))
	}
	if a.NoGreenDelay != 0 {
		out.Delay.NoGreenDelay = a.NoGreenDelay
	}
	if a.Epsilon != 0 {
		out.Delay.Epsilon = a.Epsilon
	}
	if _, err := signal.NewDelayModel(out.Delay); err != nil {
		return AnalysisConfig{}, err
	}

	if a.CycleLength != 0 {
		out.Generator.CycleLength = a.CycleLength
	}
	if a.LostTime != 0 {
		out.Generator.LostTime = a.LostTime
	}
	if a.MinGreen != nil {
		out.Generator.MinGreen = *a.MinGreen
	}
	if a.Window != "" {
		out.Generator.Window = signal.Window(a.Window)
	}
	out.Generator.MaxPasses = a.MaxPasses
	if _, err := signal.NewGenerator(out.Generator); err != nil {
		return AnalysisConfig{}, err
	}

	out.Blend = a.Blend
	out.Workers = a.Workers

	if c.Baseline != nil {
		plan, err := c.Baseline.build()
		if err != nil {
			return AnalysisConfig{}, fmt.Errorf("baseline: %w", err)
		}
		out.DefaultBaseline = &plan
	}
	for _, ic := range c.Intersections {
		if ic.ID == "" {
			return AnalysisConfig{}, errors.New("intersection with empty id")
		}
		if ic.Baseline == nil {
			continue
		}
		plan, err := ic.Baseline.build()
		if err != nil {
			return AnalysisConfig{}, fmt.Errorf("intersection %s baseline: %w", ic.ID, err)
		}
		out.Baselines[ic.ID] = plan
	}
	return out, nil
}
