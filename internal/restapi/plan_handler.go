package restapi

import (
	"net/http"

	"github.com/kyleponte/signaltiming/internal/models"
)

func (api *RestAPI) planHandler(w http.ResponseWriter, r *http.Request) {
	if !api.requireRunner(w, r) {
		return
	}
	data, ok := api.lookupIntersection(w, r)
	if !ok {
		return
	}
	data, day, ok := api.selectDay(w, r, data)
	if !ok {
		return
	}

	plans, err := api.resolvePlans(data, nil)
	if err != nil {
		api.analysisErrorResponse(w, r, err)
		return
	}

	entry := models.PlanEntry{
		IntersectionId: data.ID(),
		Day:            day,
		Baseline:       models.NewTimingPlan(plans.baseline),
		Alternative:    models.NewTimingPlan(plans.alternative),
		Generated:      models.NewGenerated(plans.generated),
	}
	api.sendResponse(w, r, models.NewEntryResponse(entry, api.Clock))
}
