package restapi

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/kyleponte/signaltiming/internal/models"
	"github.com/kyleponte/signaltiming/internal/utils"
	"github.com/kyleponte/signaltiming/reportdb"
)

const (
	defaultMaxCount = 250
	maxMaxCount     = 1000
	defaultRadius   = 500.0
	maxRadius       = 10000.0
)

func parseMaxCount(r *http.Request, addError func(field, msg string)) int {
	val := r.URL.Query().Get("maxCount")
	if val == "" {
		return defaultMaxCount
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		addError("maxCount", "must be a positive integer")
		return defaultMaxCount
	}
	return min(n, maxMaxCount)
}

func fieldErrorCollector() (map[string][]string, func(field, msg string)) {
	fieldErrors := map[string][]string{}
	return fieldErrors, func(field, msg string) {
		fieldErrors[field] = append(fieldErrors[field], msg)
	}
}

func (api *RestAPI) intersectionsHandler(w http.ResponseWriter, r *http.Request) {
	fieldErrors, addError := fieldErrorCollector()
	maxCount := parseMaxCount(r, addError)
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	all := api.Catalog.Intersections()
	limitExceeded := len(all) > maxCount
	if limitExceeded {
		all = all[:maxCount]
	}
	list := make([]models.Intersection, 0, len(all))
	for _, d := range all {
		list = append(list, models.NewIntersection(d))
	}
	api.sendResponse(w, r, models.NewListResponse(list, limitExceeded, api.Clock))
}

func (api *RestAPI) intersectionHandler(w http.ResponseWriter, r *http.Request) {
	data, ok := api.lookupIntersection(w, r)
	if !ok {
		return
	}

	var latest *models.RunSummary
	if api.Catalog.DB != nil {
		stored, err := api.Catalog.DB.LatestSummary(r.Context(), data.ID())
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			api.serverErrorResponse(w, r, err)
			return
		default:
			latest = newRunSummary(stored)
		}
	}

	api.sendResponse(w, r, models.NewEntryResponse(models.NewIntersectionDetail(data, latest), api.Clock))
}

func newRunSummary(s reportdb.RunSummary) *models.RunSummary {
	out := &models.RunSummary{
		RunId:  s.RunID,
		Status: s.Status,
		Error:  s.Error.String,
	}
	if s.BaselineMeanDelay.Valid {
		out.BaselineMeanDelay = &s.BaselineMeanDelay.Float64
	}
	if s.AlternativeMeanDelay.Valid {
		out.AlternativeMeanDelay = &s.AlternativeMeanDelay.Float64
	}
	if s.ImprovementPercent.Valid {
		out.ImprovementPercent = &s.ImprovementPercent.Float64
	}
	return out
}

type locationParams struct {
	Lat, Lon, Radius float64
	MaxCount         int
}

func parseLocationParams(r *http.Request) (locationParams, map[string][]string) {
	fieldErrors, addError := fieldErrorCollector()
	params := locationParams{MaxCount: parseMaxCount(r, addError)}

	lat, present, err := utils.ParseFloatParam(r, "lat", 0)
	switch {
	case !present:
		addError("lat", "is required")
	case err != nil:
		addError("lat", "must be a number")
	case lat < -90 || lat > 90:
		addError("lat", "must be within [-90, 90]")
	}
	lon, present, err := utils.ParseFloatParam(r, "lon", 0)
	switch {
	case !present:
		addError("lon", "is required")
	case err != nil:
		addError("lon", "must be a number")
	case lon < -180 || lon > 180:
		addError("lon", "must be within [-180, 180]")
	}
	radius, _, err := utils.ParseFloatParam(r, "radius", defaultRadius)
	switch {
	case err != nil:
		addError("radius", "must be a number")
	case radius <= 0 || radius > maxRadius:
		addError("radius", "must be within (0, 10000] meters")
	}

	params.Lat, params.Lon, params.Radius = lat, lon, radius
	return params, fieldErrors
}

func (api *RestAPI) intersectionsForLocationHandler(w http.ResponseWriter, r *http.Request) {
	params, fieldErrors := parseLocationParams(r)
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	nearby := api.Catalog.IntersectionsNear(params.Lat, params.Lon, params.Radius)
	limitExceeded := len(nearby) > params.MaxCount
	if limitExceeded {
		nearby = nearby[:params.MaxCount]
	}
	list := make([]models.Intersection, 0, len(nearby))
	for _, n := range nearby {
		list = append(list, models.NewIntersectionWithDistance(n.Data, n.Distance))
	}
	api.sendResponse(w, r, models.NewListResponse(list, limitExceeded, api.Clock))
}
