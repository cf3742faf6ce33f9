package restapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/kyleponte/signaltiming/internal/metrics"
)

const unmatchedPattern = "unmatched"

// MetricsHandler records request counts and latency labelled by the matched
// route pattern, never the raw path, so ids do not explode label
// cardinality. A nil m disables recording.
func MetricsHandler(m *metrics.Metrics) func(http.Handler) http.Handler {
	if m == nil {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sw, r)

			pattern := r.Pattern
			if pattern == "" {
				pattern = unmatchedPattern
			}
			m.HTTPRequestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(sw.statusCode)).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
		})
	}
}
