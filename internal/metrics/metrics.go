// Package metrics exposes the service's Prometheus metrics: HTTP traffic,
// the report database pool and the outcome of delay analyses.
package metrics

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "signaltiming"

// Analysis outcomes recorded by ObserveAnalysis.
const (
	OutcomeSuccess         = "success"
	OutcomeConfiguration   = "configuration_error"
	OutcomeDataSufficiency = "data_error"
	OutcomeCanceled        = "canceled"
	OutcomeOther           = "error"
)

// Metrics owns a private registry so tests and multiple servers in one
// process never collide on registration.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	DBConnectionsOpen  prometheus.Gauge
	DBConnectionsInUse prometheus.Gauge
	DBConnectionsIdle  prometheus.Gauge
	DBWaitSecondsTotal prometheus.Counter

	// AnalysesTotal counts per-intersection comparisons by outcome.
	AnalysesTotal *prometheus.CounterVec
	// DelayEstimateSeconds is the distribution of volume-weighted mean delay
	// per intersection, labelled baseline or alternative.
	DelayEstimateSeconds *prometheus.HistogramVec
	RejectedRowsTotal    prometheus.Counter
	IntersectionsLoaded  prometheus.Gauge

	logger *slog.Logger

	collectorStarted atomic.Bool
	cancel           context.CancelFunc
	wg               sync.WaitGroup
}

func New() *Metrics {
	return NewWithLogger(nil)
}

func NewWithLogger(logger *slog.Logger) *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		DBConnectionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_open",
			Help:      "Number of open report database connections",
		}),
		DBConnectionsInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_in_use",
			Help:      "Number of report database connections in use",
		}),
		DBConnectionsIdle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_idle",
			Help:      "Number of idle report database connections",
		}),
		DBWaitSecondsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_wait_seconds_total",
			Help:      "Total time blocked waiting for a report database connection",
		}),
		AnalysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Intersection comparisons by outcome",
		}, []string{"outcome"}),
		DelayEstimateSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "delay_estimate_seconds",
			Help:      "Volume-weighted mean delay per vehicle for each analysed intersection",
			Buckets:   []float64{1, 2, 5, 10, 15, 20, 30, 45, 60, 90, 120, 300},
		}, []string{"plan"}),
		RejectedRowsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_rows_total",
			Help:      "Volume rows rejected during ingestion",
		}),
		IntersectionsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "intersections_loaded",
			Help:      "Intersections currently held in the catalog",
		}),
		logger: logger,
	}

	m.Registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.DBConnectionsOpen,
		m.DBConnectionsInUse,
		m.DBConnectionsIdle,
		m.DBWaitSecondsTotal,
		m.AnalysesTotal,
		m.DelayEstimateSeconds,
		m.RejectedRowsTotal,
		m.IntersectionsLoaded,
	)
	return m
}

// ObserveAnalysis records one comparison outcome. A nil receiver is a no-op so
// library callers can run without metrics.
func (m *Metrics) ObserveAnalysis(outcome string, baselineDelay, alternativeDelay float64) {
	if m == nil {
		return
	}
	m.AnalysesTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSuccess {
		m.DelayEstimateSeconds.WithLabelValues("baseline").Observe(baselineDelay)
		m.DelayEstimateSeconds.WithLabelValues("alternative").Observe(alternativeDelay)
	}
}

// ObserveIngest records rows rejected during a load and the catalog size.
func (m *Metrics) ObserveIngest(rejected, intersections int) {
	if m == nil {
		return
	}
	m.RejectedRowsTotal.Add(float64(rejected))
	m.IntersectionsLoaded.Set(float64(intersections))
}

// StartDBStatsCollector samples db.Stats every interval until Shutdown. Only
// the first call starts a collector.
func (m *Metrics) StartDBStatsCollector(db *sql.DB, interval time.Duration) {
	if db == nil || !m.collectorStarted.CompareAndSwap(false, true) {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.wg.Add(1)
	m.cancel = cancel

	go func() {
		defer m.wg.Done()
		defer func() {
			if r := recover(); r != nil && m.logger != nil {
				m.logger.Error("panic in DB stats collector", slog.Any("error", r))
			}
		}()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var lastWait time.Duration
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				lastWait = m.recordDBStats(db.Stats(), lastWait)
			}
		}
	}()
}

func (m *Metrics) recordDBStats(stats sql.DBStats, lastWait time.Duration) time.Duration {
	m.DBConnectionsOpen.Set(float64(stats.OpenConnections))
	m.DBConnectionsInUse.Set(float64(stats.InUse))
	m.DBConnectionsIdle.Set(float64(stats.Idle))
	if delta := stats.WaitDuration - lastWait; delta > 0 {
		m.DBWaitSecondsTotal.Add(delta.Seconds())
	}
	return stats.WaitDuration
}

// Shutdown stops the collector and waits for it. Safe to call repeatedly.
func (m *Metrics) Shutdown() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}
