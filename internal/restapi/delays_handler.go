package restapi

import (
	"net/http"

	"github.com/kyleponte/signaltiming/internal/models"
	"github.com/kyleponte/signaltiming/internal/signal"
)

func (api *RestAPI) delaysHandler(w http.ResponseWriter, r *http.Request) {
	if !api.requireRunner(w, r) {
		return
	}
	role := signal.Baseline
	if val := r.URL.Query().Get("plan"); val != "" {
		parsed, ok := signal.ParsePlanRole(val)
		if !ok {
			api.validationErrorResponse(w, r, map[string][]string{
				"plan": {"must be baseline or alternative"},
			})
			return
		}
		role = parsed
	}
	data, ok := api.lookupIntersection(w, r)
	if !ok {
		return
	}
	data, day, ok := api.selectDay(w, r, data)
	if !ok {
		return
	}

	var plan signal.TimingPlan
	if role == signal.Baseline {
		p, err := api.Runner.Baseline(data)
		if err != nil {
			api.analysisErrorResponse(w, r, err)
			return
		}
		plan = p
	} else {
		plans, err := api.resolvePlans(data, nil)
		if err != nil {
			api.analysisErrorResponse(w, r, err)
			return
		}
		plan = plans.alternative
	}

	results, err := signal.NewAnalyzer(data, api.Runner.Model).Delays(plan, role)
	if err != nil {
		api.analysisErrorResponse(w, r, err)
		return
	}
	if results == nil {
		results = []signal.DelayResult{}
	}

	entry := models.DelayEntry{
		IntersectionId: data.ID(),
		Day:            day,
		Plan:           string(role),
		TimingPlan:     models.NewTimingPlan(plan),
		MeanDelay:      signal.WeightedMeanDelay(results),
		Results:        results,
	}
	api.sendResponse(w, r, models.NewEntryResponse(entry, api.Clock))
}
