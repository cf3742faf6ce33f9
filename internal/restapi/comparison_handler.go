package restapi

import (
	"net/http"

	"github.com/kyleponte/signaltiming/internal/models"
	"github.com/kyleponte/signaltiming/internal/signal"
	"github.com/kyleponte/signaltiming/internal/utils"
)

func parseBlend(r *http.Request) (*float64, map[string][]string) {
	w, present, err := utils.ParseFloatParam(r, "blend", 0)
	switch {
	case !present:
		return nil, nil
	case err != nil:
		return nil, map[string][]string{"blend": {"must be a number"}}
	case w < 0 || w > 1:
		return nil, map[string][]string{"blend": {"must be within [0, 1]"}}
	}
	return &w, nil
}

func (api *RestAPI) comparisonHandler(w http.ResponseWriter, r *http.Request) {
	if !api.requireRunner(w, r) {
		return
	}
	blend, fieldErrors := parseBlend(r)
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
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

	plans, err := api.resolvePlans(data, blend)
	if err != nil {
		api.analysisErrorResponse(w, r, err)
		return
	}
	cmp, err := signal.NewAnalyzer(data, api.Runner.Model).Compare(plans.baseline, plans.alternative)
	if err != nil {
		api.analysisErrorResponse(w, r, err)
		return
	}

	entry := models.ComparisonEntry{
		IntersectionId: data.ID(),
		Day:            day,
		Blend:          plans.blend,
		Baseline:       models.NewTimingPlan(plans.baseline),
		Alternative:    models.NewTimingPlan(plans.alternative),
		Summary:        cmp.Summary,
	}
	api.sendResponse(w, r, models.NewEntryResponse(entry, api.Clock))
}
