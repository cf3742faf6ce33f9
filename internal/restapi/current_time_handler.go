package restapi

import (
	"net/http"

	"github.com/kyleponte/signaltiming/internal/models"
)

func (api *RestAPI) currentTimeHandler(w http.ResponseWriter, r *http.Request) {
	if api.Catalog == nil || !api.Catalog.IsReady() {
		api.sendError(w, r, http.StatusServiceUnavailable, "traffic data not loaded")
		return
	}
	api.sendResponse(w, r, models.NewOKResponse(models.NewCurrentTimeData(api.Clock.Now()), api.Clock))
}
