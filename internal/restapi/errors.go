package restapi

import (
	"log/slog"
	"net/http"

	"github.com/kyleponte/signaltiming/internal/logging"
	"github.com/kyleponte/signaltiming/internal/models"
	"github.com/kyleponte/signaltiming/internal/signal"
)

func (api *RestAPI) logger() *slog.Logger {
	if api.Application != nil && api.Logger != nil {
		return api.Logger
	}
	return slog.Default()
}

func (api *RestAPI) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	logging.LogError(api.logger(), "request failed", err,
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
		slog.String("component", "http_server"))
	api.sendError(w, r, http.StatusInternalServerError, "internal server error")
}

// ValidationErrorData lists the problems with each request field.
type ValidationErrorData struct {
	FieldErrors map[string][]string `json:"fieldErrors"`
}

func (api *RestAPI) validationErrorResponse(w http.ResponseWriter, r *http.Request, fieldErrors map[string][]string) {
	setJSONResponseType(&w)
	w.WriteHeader(http.StatusBadRequest)
	api.encode(w, r, models.ResponseModel{
		Code:        http.StatusBadRequest,
		CurrentTime: models.ResponseCurrentTime(api.clock()),
		Data:        ValidationErrorData{FieldErrors: fieldErrors},
		Text:        "validation error",
		Version:     2,
	})
}

func (api *RestAPI) invalidAPIKeyResponse(w http.ResponseWriter, r *http.Request) {
	api.sendUnauthorized(w, r)
}

// analysisErrorResponse maps signal errors onto status codes: bad plans and
// parameters are the caller's fault (400), data that cannot support the
// analysis is unprocessable (422).
func (api *RestAPI) analysisErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case signal.IsConfiguration(err):
		api.sendError(w, r, http.StatusBadRequest, err.Error())
	case signal.IsDataSufficiency(err):
		api.sendError(w, r, http.StatusUnprocessableEntity, err.Error())
	default:
		api.serverErrorResponse(w, r, err)
	}
}
