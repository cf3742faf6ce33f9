package restapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache lifetimes in seconds. Analysis output only changes on reload.
const (
	cacheStatic   = 300
	cacheAnalysis = 60
	cacheRealtime = 30
	cacheNone     = 0
)

// SetRoutes registers every endpoint on mux.
func (api *RestAPI) SetRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", api.healthHandler)
	if api.Application != nil && api.Metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(api.Metrics.Registry, promhttp.HandlerOpts{}))
	}

	api.handle(mux, "GET /api/config.json", cacheStatic, api.configHandler)
	api.handle(mux, "GET /api/current-time.json", cacheRealtime, api.currentTimeHandler)
	api.handle(mux, "GET /api/intersections.json", cacheStatic, api.intersectionsHandler)
	api.handle(mux, "GET /api/intersection/{id}", cacheStatic, api.intersectionHandler)
	api.handle(mux, "GET /api/intersections-for-location.json", cacheStatic, api.intersectionsForLocationHandler)
	api.handle(mux, "GET /api/plan/{id}", cacheAnalysis, api.planHandler)
	api.handle(mux, "GET /api/comparison/{id}", cacheAnalysis, api.comparisonHandler)
	api.handle(mux, "GET /api/delays/{id}", cacheAnalysis, api.delaysHandler)
	api.handle(mux, "POST /api/analyze.json", cacheNone, api.analyzeHandler)
}

// handle applies, outermost first, rate limiting, the API key check and the
// cache policy.
func (api *RestAPI) handle(mux *http.ServeMux, pattern string, cacheSeconds int, h http.HandlerFunc) {
	var handler http.Handler = CacheControlMiddleware(cacheSeconds, h)
	handler = api.requireAPIKey(handler)
	if api.rateLimiter != nil {
		handler = api.rateLimiter.Handler()(handler)
	}
	mux.Handle(pattern, handler)
}

func (api *RestAPI) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if api.RequestHasInvalidAPIKey(r) {
			api.invalidAPIKeyResponse(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Handler wraps mux with the request-scoped middleware. Metrics sits
// innermost so it observes the pattern the mux matched.
func (api *RestAPI) Handler(mux *http.ServeMux) http.Handler {
	var handler http.Handler = MetricsHandler(api.Metrics)(mux)
	handler = NewRequestLoggingMiddleware(api.Logger)(handler)
	return RequestIDMiddleware(handler)
}
