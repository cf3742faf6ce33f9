package restapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleponte/signaltiming/internal/models"
	"github.com/kyleponte/signaltiming/internal/signal"
)

func recordResponse(t *testing.T, send func(w http.ResponseWriter, r *http.Request)) (*httptest.ResponseRecorder, models.ResponseModel) {
	t.Helper()
	w := httptest.NewRecorder()
	send(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var decoded models.ResponseModel
	require.NoError(t, json.NewDecoder(w.Body).Decode(&decoded))
	return w, decoded
}

func TestSendResponse(t *testing.T) {
	api := createTestApi(t)

	w, decoded := recordResponse(t, func(w http.ResponseWriter, r *http.Request) {
		api.sendResponse(w, r, models.NewEntryResponse(map[string]string{"test": "data"}, api.Clock))
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusOK, decoded.Code)
	assert.Equal(t, "OK", decoded.Text)
	assert.Equal(t, 2, decoded.Version)
	assert.Equal(t, testTime.UnixMilli(), decoded.CurrentTime)
}

func TestSendNotFound(t *testing.T) {
	api := createTestApi(t)

	w, decoded := recordResponse(t, api.sendNotFound)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, http.StatusNotFound, decoded.Code)
	assert.Equal(t, "resource not found", decoded.Text)
	assert.Nil(t, decoded.Data)
}

func TestSendUnauthorized(t *testing.T) {
	api := createTestApi(t)

	w, decoded := recordResponse(t, api.sendUnauthorized)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "permission denied", decoded.Text)
	assert.Equal(t, 1, decoded.Version)
	assert.Nil(t, decoded.Data)
}

func TestValidationErrorResponse(t *testing.T) {
	api := createTestApi(t)

	w, decoded := recordResponse(t, func(w http.ResponseWriter, r *http.Request) {
		api.validationErrorResponse(w, r, map[string][]string{"lat": {"is required"}})
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation error", decoded.Text)

	data, ok := decoded.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"lat": []any{"is required"}}, data["fieldErrors"])
}

func TestAnalysisErrorResponse(t *testing.T) {
	api := createTestApi(t)

	_, cfgErr := signal.NewTimingPlan(-1, 0, nil)
	require.Error(t, cfgErr)

	zero := signal.NewIntersectionData("X9", signal.Metadata{})
	_, dataErr := signal.NewAnalyzer(zero, nil).Compare(signal.TimingPlan{}, signal.TimingPlan{})
	require.Error(t, dataErr)

	tests := []struct {
		name string
		err  error
		code int
	}{
		{"configuration", cfgErr, http.StatusBadRequest},
		{"wrapped configuration", fmt.Errorf("loading: %w", cfgErr), http.StatusBadRequest},
		{"data sufficiency", dataErr, http.StatusUnprocessableEntity},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, decoded := recordResponse(t, func(w http.ResponseWriter, r *http.Request) {
				api.analysisErrorResponse(w, r, tt.err)
			})
			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, tt.code, decoded.Code)
		})
	}
}

func TestSetJSONResponseType(t *testing.T) {
	w := httptest.NewRecorder()
	w.Header().Set("Content-Type", "text/html")
	var rw http.ResponseWriter = w

	setJSONResponseType(&rw)

	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}
