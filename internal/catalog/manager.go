// Package catalog holds the intersections the API serves, loaded from a
// traffic count file and/or the report database.
package catalog

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/tidwall/rtree"

	"github.com/kyleponte/signaltiming/internal/appconf"
	"github.com/kyleponte/signaltiming/internal/ingest"
	"github.com/kyleponte/signaltiming/internal/logging"
	"github.com/kyleponte/signaltiming/internal/metrics"
	"github.com/kyleponte/signaltiming/internal/signal"
	"github.com/kyleponte/signaltiming/internal/utils"
	"github.com/kyleponte/signaltiming/reportdb"
)

// ErrNoSource is returned by ForceUpdate when nothing can be reloaded.
var ErrNoSource = errors.New("no traffic data source configured")

// Config describes where intersections come from.
type Config struct {
	VolumesPath     string
	DataPath        string
	DefaultApproach string
	Location        *time.Location
	Metadata        map[string]signal.Metadata
	Env             appconf.Environment
	Verbose         bool
}

// FromAppConf converts the config file section.
func FromAppConf(c appconf.CatalogConfigData) Config {
	return Config{
		VolumesPath:     c.VolumesPath,
		DataPath:        c.DataPath,
		DefaultApproach: c.DefaultApproach,
		Location:        c.Location,
		Metadata:        c.Metadata,
		Env:             c.Env,
		Verbose:         c.Verbose,
	}
}

// LoadSummary describes the most recent load.
type LoadSummary struct {
	Source        string
	Rows          int
	Accepted      int
	Rejected      []ingest.RowError
	ZeroCounts    int
	Intersections int
}

// Manager is safe for concurrent use. Readers never block each other; a
// reload builds the new state first and swaps it in under the write lock.
type Manager struct {
	config  Config
	DB      *reportdb.Client
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu          sync.RWMutex
	byID        map[string]*signal.IntersectionData
	ordered     []*signal.IntersectionData
	spatial     *rtree.RTreeG[string]
	lastLoad    LoadSummary
	lastUpdated time.Time
	isHealthy   bool

	updateMutex sync.Mutex
}

// InitManager opens the database when DataPath is set and loads the
// intersections. A volumes file takes precedence over stored data and is
// persisted once loaded.
func InitManager(ctx context.Context, config Config, logger *slog.Logger, m *metrics.Metrics) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	manager := &Manager{
		config:  config,
		logger:  logger.With(slog.String("component", "catalog")),
		metrics: m,
		byID:    map[string]*signal.IntersectionData{},
		spatial: &rtree.RTreeG[string]{},
	}

	if config.DataPath != "" {
		client, err := reportdb.NewClient(reportdb.NewConfig(config.DataPath, config.Env, config.Verbose))
		if err != nil {
			return nil, fmt.Errorf("failed to open report database: %w", err)
		}
		manager.DB = client
	}

	if config.VolumesPath == "" && manager.DB == nil {
		manager.Replace(nil, LoadSummary{Source: "empty"})
		return manager, nil
	}

	if err := manager.ForceUpdate(ctx); err != nil {
		manager.Close()
		return nil, err
	}
	return manager, nil
}

// ForceUpdate reloads from the configured source and swaps the result in.
// On failure the current intersections stay in place.
func (manager *Manager) ForceUpdate(ctx context.Context) error {
	manager.updateMutex.Lock()
	defer manager.updateMutex.Unlock()

	start := time.Now()
	data, summary, err := manager.load(ctx)
	if err != nil {
		logging.LogError(manager.logger, "Error loading traffic data", err,
			slog.String("source", manager.source()))
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	manager.Replace(data, summary)
	manager.metrics.ObserveIngest(len(summary.Rejected), len(data))

	logging.LogOperation(manager.logger, "traffic_data_loaded",
		slog.String("source", summary.Source),
		slog.Int("intersections", len(data)),
		slog.Int("rejected_rows", len(summary.Rejected)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (manager *Manager) source() string {
	if manager.config.VolumesPath != "" {
		return manager.config.VolumesPath
	}
	if manager.DB != nil {
		return manager.DB.GetDBPath()
	}
	return ""
}

func (manager *Manager) load(ctx context.Context) ([]*signal.IntersectionData, LoadSummary, error) {
	if manager.config.VolumesPath != "" {
		res, err := ingest.LoadFile(manager.config.VolumesPath, ingest.Config{
			DefaultApproach: manager.config.DefaultApproach,
			Location:        manager.config.Location,
		}, manager.config.Metadata)
		if err != nil {
			return nil, LoadSummary{}, err
		}
		if manager.DB != nil {
			for _, d := range res.Intersections {
				if err := manager.DB.SaveIntersection(ctx, d); err != nil {
					return nil, LoadSummary{}, fmt.Errorf("failed to persist intersection %s: %w", d.ID(), err)
				}
			}
		}
		return res.Intersections, LoadSummary{
			Source:        manager.config.VolumesPath,
			Rows:          res.Rows,
			Accepted:      res.Accepted,
			Rejected:      res.Rejected,
			ZeroCounts:    res.ZeroCounts,
			Intersections: len(res.Intersections),
		}, nil
	}

	if manager.DB == nil {
		return nil, LoadSummary{}, ErrNoSource
	}
	data, err := manager.DB.LoadIntersections(ctx, manager.config.Location)
	if err != nil {
		return nil, LoadSummary{}, fmt.Errorf("failed to load stored intersections: %w", err)
	}
	accepted := 0
	for _, d := range data {
		accepted += d.Len()
	}
	return data, LoadSummary{
		Source:        manager.DB.GetDBPath(),
		Rows:          accepted,
		Accepted:      accepted,
		Intersections: len(data),
	}, nil
}

// Replace swaps in a new set of intersections and rebuilds the spatial
// index. Later entries win over earlier ones with the same id.
func (manager *Manager) Replace(data []*signal.IntersectionData, summary LoadSummary) {
	byID := lo.SliceToMap(data, func(d *signal.IntersectionData) (string, *signal.IntersectionData) {
		return d.ID(), d
	})
	ordered := lo.Values(byID)
	slices.SortFunc(ordered, func(a, b *signal.IntersectionData) int { return cmp.Compare(a.ID(), b.ID()) })
	spatial := buildSpatialIndex(ordered)
	summary.Intersections = len(ordered)

	manager.mu.Lock()
	defer manager.mu.Unlock()
	manager.byID = byID
	manager.ordered = ordered
	manager.spatial = spatial
	manager.lastLoad = summary
	manager.lastUpdated = time.Now()
	manager.isHealthy = true
}

func buildSpatialIndex(data []*signal.IntersectionData) *rtree.RTreeG[string] {
	var tr rtree.RTreeG[string]
	for _, d := range data {
		meta := d.Metadata()
		if !meta.HasCoordinates() || !utils.ValidCoordinate(meta.Lat, meta.Lon) {
			continue
		}
		point := [2]float64{meta.Lon, meta.Lat}
		tr.Insert(point, point, d.ID())
	}
	return &tr
}

// Intersection looks up one intersection by id.
func (manager *Manager) Intersection(id string) (*signal.IntersectionData, bool) {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	d, ok := manager.byID[id]
	return d, ok
}

// Intersections returns every intersection ordered by id.
func (manager *Manager) Intersections() []*signal.IntersectionData {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	return slices.Clone(manager.ordered)
}

// Nearby is an intersection with its distance from a query point.
type Nearby struct {
	Data     *signal.IntersectionData
	Distance float64 // meters
}

// IntersectionsNear returns the intersections within radius meters of
// (lat, lon), nearest first. Intersections without coordinates never match.
func (manager *Manager) IntersectionsNear(lat, lon, radius float64) []Nearby {
	bounds := utils.CalculateBounds(lat, lon, radius)

	manager.mu.RLock()
	defer manager.mu.RUnlock()

	var out []Nearby
	manager.spatial.Search(
		[2]float64{bounds.MinLon, bounds.MinLat},
		[2]float64{bounds.MaxLon, bounds.MaxLat},
		func(point, _ [2]float64, id string) bool {
			dist := utils.Distance(lat, lon, point[1], point[0])
			if dist <= radius {
				out = append(out, Nearby{Data: manager.byID[id], Distance: dist})
			}
			return true
		},
	)
	slices.SortFunc(out, func(a, b Nearby) int { return cmp.Compare(a.Distance, b.Distance) })
	return out
}

// LastLoad describes the load that produced the current intersections.
func (manager *Manager) LastLoad() LoadSummary {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	return manager.lastLoad
}

func (manager *Manager) LastUpdated() time.Time {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	return manager.lastUpdated
}

// IsReady reports whether an initial load completed.
func (manager *Manager) IsReady() bool {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	return manager.isHealthy
}

// Close releases the database, if any.
func (manager *Manager) Close() {
	if manager.DB == nil {
		return
	}
	if err := manager.DB.Close(); err != nil {
		logging.LogError(manager.logger, "Failed to close report database", err)
	}
}
