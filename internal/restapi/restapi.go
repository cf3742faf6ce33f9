// Package restapi serves intersection volumes, timing plans and delay
// comparisons over HTTP.
package restapi

import (
	"time"

	"github.com/kyleponte/signaltiming/internal/app"
	"github.com/kyleponte/signaltiming/internal/clock"
)

// RestAPI wraps the application with the HTTP-only state.
type RestAPI struct {
	*app.Application
	rateLimiter *RateLimitMiddleware
}

func NewRestAPI(application *app.Application) *RestAPI {
	c := application.Clock
	if c == nil {
		c = clock.RealClock{}
	}
	return &RestAPI{
		Application: application,
		rateLimiter: NewRateLimitMiddleware(application.Config.RateLimit, time.Second, nil, c),
	}
}

// Shutdown stops background work owned by the API.
func (api *RestAPI) Shutdown() {
	if api.rateLimiter != nil {
		api.rateLimiter.Stop()
	}
}
