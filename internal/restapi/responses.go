package restapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/kyleponte/signaltiming/internal/clock"
	"github.com/kyleponte/signaltiming/internal/models"
)

func (api *RestAPI) clock() clock.Clock {
	if api.Application != nil {
		return api.Clock
	}
	return nil
}

func (api *RestAPI) sendResponse(w http.ResponseWriter, r *http.Request, response models.ResponseModel) {
	setJSONResponseType(&w)
	api.encode(w, r, response)
}

// encode writes the body once the status is on the wire; a failure can only
// be logged.
func (api *RestAPI) encode(w http.ResponseWriter, r *http.Request, response models.ResponseModel) {
	if err := json.NewEncoder(w).Encode(response); err != nil {
		api.logger().Error("failed to encode response",
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
	}
}

func (api *RestAPI) sendNotFound(w http.ResponseWriter, r *http.Request) {
	api.sendError(w, r, http.StatusNotFound, "resource not found")
}

func (api *RestAPI) sendUnauthorized(w http.ResponseWriter, r *http.Request) {
	setJSONResponseType(&w)
	w.WriteHeader(http.StatusUnauthorized)

	response := models.ResponseModel{
		Code:        http.StatusUnauthorized,
		CurrentTime: models.ResponseCurrentTime(api.clock()),
		Text:        "permission denied",
		Version:     1,
	}
	api.encode(w, r, response)
}

func setJSONResponseType(w *http.ResponseWriter) {
	(*w).Header().Set("Content-Type", "application/json")
}

func (api *RestAPI) sendError(w http.ResponseWriter, r *http.Request, code int, message string) {
	setJSONResponseType(&w)
	w.WriteHeader(code)

	response := models.ResponseModel{
		Code:        code,
		CurrentTime: models.ResponseCurrentTime(api.clock()),
		Text:        message,
		Version:     2,
	}
	api.encode(w, r, response)
}
