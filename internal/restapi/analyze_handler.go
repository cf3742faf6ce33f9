package restapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/kyleponte/signaltiming/internal/batch"
	"github.com/kyleponte/signaltiming/internal/logging"
	"github.com/kyleponte/signaltiming/internal/models"
	"github.com/kyleponte/signaltiming/internal/report"
	"github.com/kyleponte/signaltiming/internal/utils"
)

const maxAnalyzeBody = 1 << 20

// AnalyzeRequest selects the intersections to analyze. An empty list means
// all of them. Store saves the run to the report database.
type AnalyzeRequest struct {
	Intersections []string `json:"intersections"`
	Store         bool     `json:"store"`
}

func decodeAnalyzeRequest(w http.ResponseWriter, r *http.Request) (AnalyzeRequest, error) {
	var req AnalyzeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAnalyzeBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return req, err
	}
	return req, nil
}

func (api *RestAPI) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	if !api.requireRunner(w, r) {
		return
	}
	req, err := decodeAnalyzeRequest(w, r)
	if err != nil {
		api.validationErrorResponse(w, r, map[string][]string{"body": {err.Error()}})
		return
	}

	fieldErrors, addError := fieldErrorCollector()
	if req.Store && api.Catalog.DB == nil {
		addError("store", "no report database is configured")
	}
	data := api.Catalog.Intersections()
	if len(req.Intersections) > 0 {
		data = data[:0:0]
		for _, id := range req.Intersections {
			if err := utils.ValidateID(id); err != nil {
				addError("intersections", fmt.Sprintf("%q: %v", id, err))
				continue
			}
			d, ok := api.Catalog.Intersection(id)
			if !ok {
				addError("intersections", fmt.Sprintf("%q: unknown intersection", id))
				continue
			}
			data = append(data, d)
		}
	}
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	run := report.NewRun(api.Clock, api.Runner.Run(r.Context(), data))
	stored := false
	if req.Store {
		if err := api.Catalog.DB.SaveRun(r.Context(), run); err != nil {
			api.serverErrorResponse(w, r, err)
			return
		}
		stored = true
	}

	logging.LogOperation(api.logger(), "analysis_requested",
		slog.String("run_id", run.ID.String()),
		slog.Int("intersections", len(run.Outcomes)),
		slog.Int("failed", run.Failed()),
		slog.Bool("stored", stored),
		slog.String("request_id", GetRequestID(r.Context())))

	api.sendResponse(w, r, models.NewEntryResponse(newAnalysisRun(run, stored), api.Clock))
}

func newAnalysisRun(run *report.Run, stored bool) models.AnalysisRun {
	results := make([]models.AnalysisOutcome, 0, len(run.Outcomes))
	for _, o := range run.Outcomes {
		results = append(results, newAnalysisOutcome(o))
	}
	return models.AnalysisRun{
		RunId:         run.ID.String(),
		GeneratedAt:   run.GeneratedAt.UnixMilli(),
		Intersections: len(run.Outcomes),
		Failed:        run.Failed(),
		Stored:        stored,
		Results:       results,
	}
}

func newAnalysisOutcome(o batch.Outcome) models.AnalysisOutcome {
	if !o.OK() {
		out := models.AnalysisOutcome{IntersectionId: o.IntersectionID, Status: "failed"}
		if o.Err != nil {
			out.Error = o.Err.Error()
		}
		return out
	}
	summary := o.Comparison.Summary
	return models.AnalysisOutcome{
		IntersectionId: o.IntersectionID,
		Status:         "ok",
		Summary:        &summary,
	}
}

