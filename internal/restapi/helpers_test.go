package restapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kyleponte/signaltiming/internal/app"
	"github.com/kyleponte/signaltiming/internal/appconf"
	"github.com/kyleponte/signaltiming/internal/catalog"
	"github.com/kyleponte/signaltiming/internal/clock"
	"github.com/kyleponte/signaltiming/internal/metrics"
	"github.com/kyleponte/signaltiming/internal/models"
	"github.com/kyleponte/signaltiming/internal/signal"
)

const testVolumesPath = "../../testdata/volumes.csv"

var testTime = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// createTestApiWithConfig loads testdata/volumes.csv into an in-memory
// report database and wires a runner with the default analysis settings.
func createTestApiWithConfig(t testing.TB, cfg appconf.Config) *RestAPI {
	t.Helper()
	logger := testLogger()
	m := metrics.New()

	catalogCfg := catalog.Config{
		VolumesPath: testVolumesPath,
		DataPath:    ":memory:",
		Env:         appconf.Test,
		Metadata: map[string]signal.Metadata{
			"X1": {Location: "Main St & 1st Ave", Lat: 40.7128, Lon: -74.006},
			"X2": {Location: "Elm St & Oak Ave", Lat: 40.7306, Lon: -73.9866},
		},
	}
	manager, err := catalog.InitManager(context.Background(), catalogCfg, logger, m)
	require.NoError(t, err)
	t.Cleanup(manager.Close)

	analysis := appconf.DefaultAnalysisConfig()
	runner, err := app.NewRunner(analysis, logger, m)
	require.NoError(t, err)

	application := &app.Application{
		Config:        cfg,
		CatalogConfig: catalogCfg,
		Analysis:      analysis,
		Logger:        logger,
		Catalog:       manager,
		Runner:        runner,
		Clock:         clock.NewMockClock(testTime),
		Metrics:       m,
	}
	api := NewRestAPI(application)
	t.Cleanup(api.Shutdown)
	return api
}

func createTestApi(t testing.TB) *RestAPI {
	return createTestApiWithConfig(t, appconf.Config{
		Env:       appconf.Test,
		ApiKeys:   []string{"TEST"},
		RateLimit: 100,
	})
}

func newTestServer(t testing.TB, api *RestAPI) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	api.SetRoutes(mux)
	server := httptest.NewServer(api.Handler(mux))
	t.Cleanup(server.Close)
	return server
}

func decodeModel(t testing.TB, resp *http.Response) models.ResponseModel {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var model models.ResponseModel
	if len(body) > 0 {
		require.NoError(t, json.Unmarshal(body, &model), string(body))
	}
	return model
}

// serveAndRetrieveEndpoint GETs path from a fresh test API.
func serveAndRetrieveEndpoint(t testing.TB, path string) (*RestAPI, *http.Response, models.ResponseModel) {
	t.Helper()
	api := createTestApi(t)
	resp, model := serveApiAndRetrieveEndpoint(t, api, http.MethodGet, path, "")
	return api, resp, model
}

func serveApiAndRetrieveEndpoint(t testing.TB, api *RestAPI, method, path, body string) (*http.Response, models.ResponseModel) {
	t.Helper()
	server := newTestServer(t, api)

	req, err := http.NewRequest(method, server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp, decodeModel(t, resp)
}

type testingFatalf interface {
	Fatalf(format string, args ...any)
}

// entryOf returns data.entry as a map.
func entryOf(t testingFatalf, model models.ResponseModel) map[string]any {
	data, ok := model.Data.(map[string]any)
	if !ok {
		t.Fatalf("data is not an object: %T", model.Data)
	}
	entry, ok := data["entry"].(map[string]any)
	if !ok {
		t.Fatalf("data.entry is not an object: %T", data["entry"])
	}
	return entry
}

// listOf returns data.list and data.limitExceeded.
func listOf(t testingFatalf, model models.ResponseModel) ([]any, bool) {
	data, ok := model.Data.(map[string]any)
	if !ok {
		t.Fatalf("data is not an object: %T", model.Data)
	}
	list, ok := data["list"].([]any)
	if !ok {
		t.Fatalf("data.list is not an array: %T", data["list"])
	}
	exceeded, _ := data["limitExceeded"].(bool)
	return list, exceeded
}

// collectAllIdsFromObjects extracts the string field key from every object
// in list.
func collectAllIdsFromObjects(t testingFatalf, list []any, key string) (ids []string) {
	for i, item := range list {
		object, ok := item.(map[string]any)
		if !ok {
			t.Fatalf("item %d is not an object", i)
		}
		id, ok := object[key].(string)
		if !ok {
			t.Fatalf("item %d key %q is not a string: %T", i, key, object[key])
		}
		ids = append(ids, id)
	}
	return ids
}
