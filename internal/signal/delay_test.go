package signal

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultModel(t *testing.T) *DelayModel {
	t.Helper()
	m, err := NewDelayModel(DefaultDelayConfig())
	require.NoError(t, err)
	return m
}

func TestNewDelayModel(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*DelayConfig)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*DelayConfig) {}},
		{name: "zero saturation flow", mutate: func(c *DelayConfig) { c.SaturationFlow = 0 }, wantErr: true},
		{name: "infinite saturation flow", mutate: func(c *DelayConfig) { c.SaturationFlow = math.Inf(1) }, wantErr: true},
		{name: "negative interval", mutate: func(c *DelayConfig) { c.Interval = -time.Minute }, wantErr: true},
		{name: "zero no-green delay", mutate: func(c *DelayConfig) { c.NoGreenDelay = 0 }, wantErr: true},
		{name: "epsilon of one", mutate: func(c *DelayConfig) { c.Epsilon = 1 }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultDelayConfig()
			tt.mutate(&cfg)
			m, err := NewDelayModel(cfg)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidModelParameter)
				assert.True(t, IsConfiguration(err))
				assert.Nil(t, m)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, cfg, m.Config())
		})
	}
}

func TestDelayConfigWithDefaults(t *testing.T) {
	cfg := DelayConfig{SaturationFlow: 0.6}.WithDefaults()
	assert.Equal(t, 0.6, cfg.SaturationFlow)
	assert.Equal(t, DefaultInterval, cfg.Interval)
	assert.Equal(t, DefaultNoGreenDelay, cfg.NoGreenDelay)
	assert.Equal(t, DefaultEpsilon, cfg.Epsilon)
}

func TestDelayKnownValues(t *testing.T) {
	m := defaultModel(t)

	tests := []struct {
		name   string
		volume int
		green  float64
		cycle  float64
		want   float64
	}{
		// 0.5·60·(0.5)² with no arrivals
		{name: "zero volume is the uniform term", volume: 0, green: 30, cycle: 60, want: 7.5},
		// v=225/900=0.25 veh/s, x=0.5, denominator 1-0.25
		{name: "half saturated", volume: 225, green: 30, cycle: 60, want: 10},
		// x clamps to 1, denominator 1-0.5
		{name: "demand above saturation clamps x", volume: 2000, green: 30, cycle: 60, want: 15},
		{name: "full green has no delay", volume: 100, green: 60, cycle: 60, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est, err := m.Delay(tt.volume, tt.green, tt.cycle)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, est.Seconds, 1e-9)
			assert.False(t, est.NoGreen)
		})
	}
}

func TestDelayZeroGreenReturnsSentinel(t *testing.T) {
	m := defaultModel(t)
	for _, volume := range []int{0, 1, 500} {
		est, err := m.Delay(volume, 0, 60)
		require.NoError(t, err)
		assert.True(t, est.NoGreen)
		assert.Equal(t, DefaultNoGreenDelay, est.Seconds)
	}
}

func TestDelayIsFiniteAndIncreasingInVolume(t *testing.T) {
	m := defaultModel(t)
	// with the defaults x reaches 1 at 450 vehicles per interval
	for _, tc := range []struct{ green, cycle float64 }{{25, 60}, {7, 90}, {80, 90}, {0.5, 120}} {
		prev := -1.0
		for volume := 0; volume < 450; volume++ {
			est, err := m.Delay(volume, tc.green, tc.cycle)
			require.NoError(t, err)
			require.False(t, math.IsNaN(est.Seconds) || math.IsInf(est.Seconds, 0))
			require.GreaterOrEqual(t, est.Seconds, 0.0)
			require.Greater(t, est.Seconds, prev, "g=%v C=%v volume=%d", tc.green, tc.cycle, volume)
			prev = est.Seconds
		}
	}
}

func TestDelayClampsNearSaturation(t *testing.T) {
	m := defaultModel(t)
	est, err := m.Delay(1000, 59.9, 60)
	require.NoError(t, err)
	assert.True(t, est.Saturated)
	assert.False(t, math.IsInf(est.Seconds, 0))
	gc := 59.9 / 60
	assert.InDelta(t, 0.5*60*(1-gc)*(1-gc)/DefaultEpsilon, est.Seconds, 1e-9)
}

func TestDelayRejectsInvalidInputs(t *testing.T) {
	m := defaultModel(t)
	tests := []struct {
		name   string
		volume int
		green  float64
		cycle  float64
		cause  error
	}{
		{name: "zero cycle", volume: 1, green: 0, cycle: 0, cause: ErrInvalidCycleLength},
		{name: "negative cycle", volume: 1, green: 10, cycle: -60, cause: ErrInvalidCycleLength},
		{name: "negative green", volume: 1, green: -1, cycle: 60, cause: ErrNegativeGreen},
		{name: "nan green", volume: 1, green: math.NaN(), cycle: 60, cause: ErrNegativeGreen},
		{name: "green above cycle", volume: 1, green: 61, cycle: 60, cause: ErrGreenExceedsCycle},
		{name: "negative volume", volume: -1, green: 10, cycle: 60, cause: ErrNegativeVolume},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Delay(tt.volume, tt.green, tt.cycle)
			assert.ErrorIs(t, err, tt.cause)
			assert.True(t, IsConfiguration(err))
			assert.False(t, IsDataSufficiency(err))
		})
	}
}

func TestParsePlanRole(t *testing.T) {
	role, ok := ParsePlanRole("baseline")
	assert.True(t, ok)
	assert.Equal(t, Baseline, role)

	role, ok = ParsePlanRole("alternative")
	assert.True(t, ok)
	assert.Equal(t, Alternative, role)

	_, ok = ParsePlanRole("combined")
	assert.False(t, ok)
}
