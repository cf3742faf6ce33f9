package restapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/kyleponte/signaltiming/internal/signal"
	"github.com/kyleponte/signaltiming/internal/utils"
)

// lookupIntersection validates the {id} path value and resolves it,
// writing the error response itself when it returns false.
func (api *RestAPI) lookupIntersection(w http.ResponseWriter, r *http.Request) (*signal.IntersectionData, bool) {
	id := utils.ExtractIDFromParams(r)
	if err := utils.ValidateID(id); err != nil {
		api.validationErrorResponse(w, r, map[string][]string{"id": {err.Error()}})
		return nil, false
	}
	data, ok := api.Catalog.Intersection(id)
	if !ok {
		api.sendNotFound(w, r)
		return nil, false
	}
	return data, true
}

// resolvedPlans is the baseline and alternative for one intersection.
type resolvedPlans struct {
	baseline    signal.TimingPlan
	generated   signal.GeneratedPlan
	alternative signal.TimingPlan
	blend       *float64
}

// resolvePlans builds both plans. blend overrides the configured weight;
// nil keeps it.
func (api *RestAPI) resolvePlans(data *signal.IntersectionData, blend *float64) (resolvedPlans, error) {
	baseline, err := api.Runner.Baseline(data)
	if err != nil {
		return resolvedPlans{}, err
	}
	if blend == nil {
		blend = api.Runner.Blend
	}
	gp, alternative, err := api.Runner.AlternativeWithBlend(data, baseline, blend)
	if err != nil {
		return resolvedPlans{}, err
	}
	return resolvedPlans{baseline: baseline, generated: gp, alternative: alternative, blend: blend}, nil
}

// selectDay narrows data to the calendar day named by the day query
// parameter, writing the error response itself when it returns false. The
// returned label is empty when no day was requested.
func (api *RestAPI) selectDay(w http.ResponseWriter, r *http.Request, data *signal.IntersectionData) (*signal.IntersectionData, string, bool) {
	day := r.URL.Query().Get("day")
	if day == "" {
		return data, "", true
	}
	if _, err := time.Parse(time.DateOnly, day); err != nil {
		api.validationErrorResponse(w, r, map[string][]string{"day": {"must be a date in YYYY-MM-DD form"}})
		return nil, "", false
	}
	sub, ok := data.ByDay()[day]
	if !ok {
		api.sendError(w, r, http.StatusNotFound, fmt.Sprintf("no volume recorded for %s on %s", data.ID(), day))
		return nil, "", false
	}
	return sub, day, true
}

// requireRunner writes 503 when analysis is not configured.
func (api *RestAPI) requireRunner(w http.ResponseWriter, r *http.Request) bool {
	if api.Runner == nil || api.Runner.Generator == nil || api.Runner.Model == nil {
		api.sendError(w, r, http.StatusServiceUnavailable, "analysis is not configured")
		return false
	}
	return true
}
