package restapi

import (
	"fmt"
	"net/http"
)

const noStore = "no-cache, no-store, must-revalidate"

// CacheControlMiddleware marks successful GET responses cacheable for
// durationSeconds. Errors, other methods and a zero duration are never cached.
func CacheControlMiddleware(durationSeconds int, next http.Handler) http.Handler {
	cacheable := noStore
	if durationSeconds > 0 {
		cacheable = fmt.Sprintf("public, max-age=%d", durationSeconds)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		value := cacheable
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			value = noStore
		}
		next.ServeHTTP(&cacheControlWriter{ResponseWriter: w, headerValue: value}, r)
	})
}

type cacheControlWriter struct {
	http.ResponseWriter
	headerValue   string
	headerWritten bool
}

func (w *cacheControlWriter) WriteHeader(code int) {
	if !w.headerWritten {
		w.headerWritten = true
		value := w.headerValue
		if code < 200 || code >= 300 {
			value = noStore
		}
		w.ResponseWriter.Header().Set("Cache-Control", value)
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *cacheControlWriter) Write(b []byte) (int, error) {
	if !w.headerWritten {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}
