package app

import (
	"log/slog"

	"github.com/kyleponte/signaltiming/internal/appconf"
	"github.com/kyleponte/signaltiming/internal/batch"
	"github.com/kyleponte/signaltiming/internal/catalog"
	"github.com/kyleponte/signaltiming/internal/clock"
	"github.com/kyleponte/signaltiming/internal/metrics"
)

// Application holds the dependencies for our HTTP handlers, helpers,
// and middleware.
type Application struct {
	Config        appconf.Config
	CatalogConfig catalog.Config
	Analysis      appconf.AnalysisConfig
	Logger        *slog.Logger
	Catalog       *catalog.Manager
	Runner        *batch.Runner
	Clock         clock.Clock
	Metrics       *metrics.Metrics
}
