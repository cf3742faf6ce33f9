package restapi

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntersectionsHandler(t *testing.T) {
	_, resp, model := serveAndRetrieveEndpoint(t, "/api/intersections.json?key=TEST")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	list, exceeded := listOf(t, model)
	assert.False(t, exceeded)
	assert.Equal(t, []string{"X1", "X2", "X3"}, collectAllIdsFromObjects(t, list, "id"))

	x1 := list[0].(map[string]any)
	assert.Equal(t, "Main St & 1st Ave", x1["location"])
	assert.Equal(t, 465.0, x1["totalVolume"])
	assert.Equal(t, 3.0, x1["intervals"])
	assert.Equal(t, []any{"N", "S"}, x1["approaches"])

	x3 := list[2].(map[string]any)
	assert.NotContains(t, x3, "lat", "intersections without coordinates omit them")
}

func TestIntersectionsHandlerMaxCount(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		status   int
		count    int
		exceeded bool
	}{
		{"truncated", "&maxCount=2", http.StatusOK, 2, true},
		{"exact", "&maxCount=3", http.StatusOK, 3, false},
		{"not a number", "&maxCount=abc", http.StatusBadRequest, 0, false},
		{"zero", "&maxCount=0", http.StatusBadRequest, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, model := serveAndRetrieveEndpoint(t, "/api/intersections.json?key=TEST"+tt.query)
			require.Equal(t, tt.status, resp.StatusCode)
			if tt.status != http.StatusOK {
				return
			}
			list, exceeded := listOf(t, model)
			assert.Len(t, list, tt.count)
			assert.Equal(t, tt.exceeded, exceeded)
		})
	}
}

func TestIntersectionHandler(t *testing.T) {
	_, resp, model := serveAndRetrieveEndpoint(t, "/api/intersection/X1.json?key=TEST")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	entry := entryOf(t, model)
	assert.Equal(t, "X1", entry["id"])
	assert.Equal(t, 40.7128, entry["lat"])
	assert.Equal(t, map[string]any{"N": 310.0, "S": 155.0}, entry["volumeByApproach"])
	assert.Equal(t, 180.0, entry["peakVolume"])

	hourly, ok := entry["hourlyTotals"].([]any)
	require.True(t, ok)
	require.Len(t, hourly, 24)
	assert.Equal(t, 465.0, hourly[8])
	assert.NotContains(t, entry, "latestRun")
}

func TestIntersectionHandlerErrors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		status int
		text   string
	}{
		{"unknown id", "/api/intersection/NOPE.json?key=TEST", http.StatusNotFound, "resource not found"},
		{"id too long", "/api/intersection/" + strings.Repeat("x", 200) + ".json?key=TEST", http.StatusBadRequest, "validation error"},
		{"missing key", "/api/intersection/X1.json", http.StatusUnauthorized, "permission denied"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, model := serveAndRetrieveEndpoint(t, tt.path)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.text, model.Text)
		})
	}
}

func TestIntersectionsForLocationHandler(t *testing.T) {
	tests := []struct {
		name  string
		query string
		ids   []string
	}{
		{"default radius", "lat=40.7300&lon=-73.9870", []string{"X2"}},
		{"wide radius nearest first", "lat=40.7300&lon=-73.9870&radius=5000", []string{"X2", "X1"}},
		{"nothing nearby", "lat=51.5&lon=-0.12", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, model := serveAndRetrieveEndpoint(t, "/api/intersections-for-location.json?key=TEST&"+tt.query)
			require.Equal(t, http.StatusOK, resp.StatusCode)

			list, _ := listOf(t, model)
			assert.Equal(t, tt.ids, collectAllIdsFromObjects(t, list, "id"))
			for _, item := range list {
				assert.Contains(t, item.(map[string]any), "distance")
			}
		})
	}
}

func TestIntersectionsForLocationValidation(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		fields []string
	}{
		{"missing both", "", []string{"lat", "lon"}},
		{"bad latitude", "lat=91&lon=0", []string{"lat"}},
		{"bad longitude", "lat=0&lon=abc", []string{"lon"}},
		{"zero radius", "lat=0&lon=0&radius=0", []string{"radius"}},
		{"radius too large", "lat=0&lon=0&radius=20000", []string{"radius"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, model := serveAndRetrieveEndpoint(t, "/api/intersections-for-location.json?key=TEST&"+tt.query)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)

			data, ok := model.Data.(map[string]any)
			require.True(t, ok)
			fieldErrors, ok := data["fieldErrors"].(map[string]any)
			require.True(t, ok)
			for _, f := range tt.fields {
				assert.Contains(t, fieldErrors, f)
			}
			assert.Len(t, fieldErrors, len(tt.fields))
		})
	}
}
