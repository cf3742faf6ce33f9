package restapi

import (
	"encoding/json"
	"net/http"

	"github.com/kyleponte/signaltiming/internal/logging"
)

// HealthResponse is the body of /healthz.
type HealthResponse struct {
	Status        string `json:"status"`
	Detail        string `json:"detail,omitempty"`
	Intersections int    `json:"intersections,omitempty"`
}

// healthHandler reports 503 until the catalog has loaded, and while the
// report database, when configured, does not answer a ping.
func (api *RestAPI) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if api.Application == nil || api.Catalog == nil {
		writeHealth(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "unavailable",
			Detail: "catalog not initialized",
		})
		return
	}

	if !api.Catalog.IsReady() {
		writeHealth(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "starting",
			Detail: "traffic data is still loading",
		})
		return
	}

	if db := api.Catalog.DB; db != nil && db.DB != nil {
		if err := db.DB.PingContext(r.Context()); err != nil {
			logging.LogError(api.logger(), "report DB ping failed", err)
			writeHealth(w, http.StatusServiceUnavailable, HealthResponse{
				Status: "unavailable",
				Detail: "database connection failed",
			})
			return
		}
	}

	writeHealth(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		Intersections: len(api.Catalog.Intersections()),
	})
}

func writeHealth(w http.ResponseWriter, code int, body HealthResponse) {
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
