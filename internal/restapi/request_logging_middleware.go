package restapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/kyleponte/signaltiming/internal/logging"
)

// statusWriter remembers the status code and body size of a response.
type statusWriter struct {
	http.ResponseWriter
	statusCode int
	bytes      int
}

func (w *statusWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// NewRequestLoggingMiddleware logs one line per request and puts logger in
// the request context for handlers.
func NewRequestLoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			r = r.WithContext(logging.WithLogger(r.Context(), logger))
			sw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sw, r)

			logging.LogHTTPRequest(logger,
				r.Method,
				r.URL.Path,
				sw.statusCode,
				float64(time.Since(start).Nanoseconds())/1e6,
				slog.String("request_id", GetRequestID(r.Context())),
				slog.Int("bytes", sw.bytes),
				slog.String("user_agent", r.Header.Get("User-Agent")),
				slog.String("component", "http_server"))
		})
	}
}
