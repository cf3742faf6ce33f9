package metrics

import (
	"database/sql"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersEverything(t *testing.T) {
	m := New()
	m.HTTPRequestsTotal.WithLabelValues("GET", "/healthz", "200").Inc()
	m.AnalysesTotal.WithLabelValues(OutcomeSuccess).Inc()
	m.DelayEstimateSeconds.WithLabelValues("baseline").Observe(1)

	families, err := m.Registry.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	for _, want := range []string{
		"signaltiming_http_requests_total",
		"signaltiming_db_connections_open",
		"signaltiming_analyses_total",
		"signaltiming_delay_estimate_seconds",
		"signaltiming_rejected_rows_total",
		"signaltiming_intersections_loaded",
	} {
		assert.Contains(t, names, want)
	}
}

func TestObserveAnalysis(t *testing.T) {
	m := New()
	m.ObserveAnalysis(OutcomeSuccess, 12.5, 9.5)
	m.ObserveAnalysis(OutcomeDataSufficiency, 0, 0)
	m.ObserveAnalysis(OutcomeDataSufficiency, 0, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues(OutcomeDataSufficiency)))

	count := testutil.CollectAndCount(m.DelayEstimateSeconds)
	assert.Equal(t, 2, count, "one series per plan, failures are not observed")
	assert.NoError(t, testutil.CollectAndCompare(m.AnalysesTotal, strings.NewReader(`
# HELP signaltiming_analyses_total Intersection comparisons by outcome
# TYPE signaltiming_analyses_total counter
signaltiming_analyses_total{outcome="data_error"} 2
signaltiming_analyses_total{outcome="success"} 1
`)))
}

func TestObserveIngest(t *testing.T) {
	m := New()
	m.ObserveIngest(3, 2)
	m.ObserveIngest(1, 5)
	assert.Equal(t, 4.0, testutil.ToFloat64(m.RejectedRowsTotal))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.IntersectionsLoaded))
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveAnalysis(OutcomeSuccess, 1, 1)
		m.ObserveIngest(1, 1)
	})
}

func TestStartDBStatsCollector(t *testing.T) {
	t.Run("nil db is ignored", func(t *testing.T) {
		m := New()
		m.StartDBStatsCollector(nil, time.Second)
		assert.False(t, m.collectorStarted.Load())
	})

	t.Run("collects and stops", func(t *testing.T) {
		db, err := sql.Open("sqlite3", ":memory:")
		require.NoError(t, err)
		defer func() { _ = db.Close() }()
		require.NoError(t, db.Ping())

		m := New()
		m.StartDBStatsCollector(db, 20*time.Millisecond)
		m.StartDBStatsCollector(db, 20*time.Millisecond)
		assert.True(t, m.collectorStarted.Load())

		assert.Eventually(t, func() bool {
			return testutil.ToFloat64(m.DBConnectionsOpen) >= 1
		}, time.Second, 10*time.Millisecond)

		done := make(chan struct{})
		go func() {
			m.Shutdown()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Shutdown did not complete within timeout")
		}
	})

	t.Run("shutdown without collector", func(t *testing.T) {
		m := New()
		m.Shutdown()
		m.Shutdown()
	})
}

func TestRecordDBStatsAccumulatesWaitDelta(t *testing.T) {
	m := New()
	last := m.recordDBStats(sql.DBStats{OpenConnections: 2, InUse: 1, Idle: 1, WaitDuration: 2 * time.Second}, 0)
	last = m.recordDBStats(sql.DBStats{OpenConnections: 2, WaitDuration: 3 * time.Second}, last)
	assert.Equal(t, 3*time.Second, last)
	assert.InDelta(t, 3.0, testutil.ToFloat64(m.DBWaitSecondsTotal), 1e-9)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DBConnectionsOpen))
}
