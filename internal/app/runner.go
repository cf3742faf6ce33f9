package app

import (
	"log/slog"

	"github.com/kyleponte/signaltiming/internal/appconf"
	"github.com/kyleponte/signaltiming/internal/batch"
	"github.com/kyleponte/signaltiming/internal/metrics"
	"github.com/kyleponte/signaltiming/internal/signal"
)

// NewRunner builds the analysis runner shared by the API and the batch
// command from a validated analysis config.
func NewRunner(a appconf.AnalysisConfig, logger *slog.Logger, m *metrics.Metrics) (*batch.Runner, error) {
	gen, err := signal.NewGenerator(a.Generator)
	if err != nil {
		return nil, err
	}
	model, err := signal.NewDelayModel(a.Delay)
	if err != nil {
		return nil, err
	}
	return &batch.Runner{
		Generator: gen,
		Model:     model,
		Baselines: batch.PlanSet{Default: a.DefaultBaseline, ByIntersection: a.Baselines},
		Blend:     a.Blend,
		Workers:   a.Workers,
		Logger:    logger,
		Metrics:   m,
	}, nil
}
