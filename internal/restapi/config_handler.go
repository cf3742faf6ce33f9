package restapi

import (
	"net/http"

	"github.com/kyleponte/signaltiming/internal/models"
)

const (
	serviceID   = "signaltiming"
	serviceName = "Signal Timing Analysis"
)

func (api *RestAPI) configHandler(w http.ResponseWriter, r *http.Request) {
	entry := models.ConfigModel{
		GitProperties: models.NewGitProperties(),
		Id:            serviceID,
		Name:          serviceName,
		Environment:   api.Config.Env.String(),
		Analysis:      models.NewAnalysisSettings(api.Analysis),
	}
	api.sendResponse(w, r, models.NewEntryResponse(entry, api.Clock))
}
