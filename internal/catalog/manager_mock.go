package catalog

import (
	"log/slog"

	"github.com/kyleponte/signaltiming/internal/signal"
)

// NewStaticManager returns a ready manager serving data, with no file or
// database behind it.
func NewStaticManager(data ...*signal.IntersectionData) *Manager {
	manager := &Manager{logger: slog.Default().With(slog.String("component", "catalog"))}
	manager.Replace(data, LoadSummary{Source: "static"})
	return manager
}

// MockAddIntersection adds or replaces one intersection.
func (manager *Manager) MockAddIntersection(d *signal.IntersectionData) {
	manager.Replace(append(manager.Intersections(), d), manager.LastLoad())
}
