package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kyleponte/signaltiming/internal/app"
	"github.com/kyleponte/signaltiming/internal/appconf"
	"github.com/kyleponte/signaltiming/internal/catalog"
	"github.com/kyleponte/signaltiming/internal/clock"
	"github.com/kyleponte/signaltiming/internal/logging"
	"github.com/kyleponte/signaltiming/internal/metrics"
	"github.com/kyleponte/signaltiming/internal/restapi"
	"github.com/kyleponte/signaltiming/internal/webui"
)

// EnvFakeTime freezes the API clock, for reproducible demos and tests.
const EnvFakeTime = "SIGNAL_FAKE_TIME"

const (
	shutdownTimeout     = 30 * time.Second
	dbStatsInterval     = 15 * time.Second
	defaultEnvFile      = ".env"
	defaultLocalEnvFile = ".env.local"
)

// ParseAPIKeys splits a comma separated list of keys, trimming each one.
func ParseAPIKeys(apiKeysFlag string) []string {
	if apiKeysFlag == "" {
		return []string{}
	}
	keys := strings.Split(apiKeysFlag, ",")
	for i, key := range keys {
		keys[i] = strings.TrimSpace(key)
	}
	return keys
}

// LoadConfig builds the configuration from, lowest precedence first, the
// defaults or the -config file, the SIGNAL_* environment, and explicitly set
// flags.
func LoadConfig(args []string) (*appconf.JSONConfig, error) {
	fs := flag.NewFlagSet("api", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to a JSON config file")
	port := fs.Int("port", 4000, "API server port")
	env := fs.String("env", "development", "environment (development|test|production)")
	apiKeys := fs.String("api-keys", "", "comma separated API keys")
	rateLimit := fs.Int("rate-limit", 100, "requests per second per API key")
	verbose := fs.Bool("verbose", false, "debug logging")
	dataPath := fs.String("data-path", "", "report database path")
	volumesPath := fs.String("volumes", "", "traffic count CSV file (.csv or .csv.gz)")
	reportsDir := fs.String("reports-dir", "", "directory of exported report files to serve")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := appconf.DefaultJSONConfig()
	if *configPath != "" {
		loaded, err := appconf.LoadFromFile(*configPath)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = *port
		case "env":
			cfg.Env = *env
		case "api-keys":
			cfg.ApiKeys = ParseAPIKeys(*apiKeys)
		case "rate-limit":
			cfg.RateLimit = *rateLimit
		case "verbose":
			cfg.Verbose = *verbose
		case "data-path":
			cfg.DataPath = *dataPath
		case "volumes":
			cfg.VolumesPath = *volumesPath
		case "reports-dir":
			cfg.ReportsDir = *reportsDir
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// BuildApplication loads the catalog and wires the shared dependencies.
func BuildApplication(cfg appconf.Config, catalogCfg catalog.Config, analysis appconf.AnalysisConfig) (*app.Application, error) {
	logger := logging.NewLogger(os.Stdout, cfg.Verbose, cfg.Env == appconf.Production)
	m := metrics.NewWithLogger(logger)

	c, err := clock.FromEnv(EnvFakeTime, catalogCfg.Location)
	if err != nil {
		return nil, err
	}

	manager, err := catalog.InitManager(context.Background(), catalogCfg, logger, m)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize catalog manager: %w", err)
	}

	runner, err := app.NewRunner(analysis, logger, m)
	if err != nil {
		manager.Close()
		return nil, fmt.Errorf("failed to build analysis runner: %w", err)
	}

	if manager.DB != nil {
		m.StartDBStatsCollector(manager.DB.DB, dbStatsInterval)
	}

	return &app.Application{
		Config:        cfg,
		CatalogConfig: catalogCfg,
		Analysis:      analysis,
		Logger:        logger,
		Catalog:       manager,
		Runner:        runner,
		Clock:         c,
		Metrics:       m,
	}, nil
}

// CreateServer builds the HTTP server. Callers must call api.Shutdown.
func CreateServer(coreApp *app.Application, cfg appconf.Config) (*http.Server, *restapi.RestAPI) {
	api := restapi.NewRestAPI(coreApp)
	webUI := &webui.WebUI{Application: coreApp}

	mux := http.NewServeMux()
	api.SetRoutes(mux)
	webUI.SetWebUIRoutes(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.Handler(mux),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(coreApp.Logger.Handler(), slog.LevelError),
	}
	return srv, api
}

// Run serves until ctx is done, then shuts down gracefully. SIGHUP reloads
// the catalog.
func Run(ctx context.Context, srv *http.Server, coreApp *app.Application, api *restapi.RestAPI) error {
	logger := coreApp.Logger.With(slog.String("component", "server"))

	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	defer signal.Stop(reload)

	serveErr := make(chan error, 1)
	go func() {
		logging.LogOperation(logger, "server_starting",
			slog.String("addr", srv.Addr),
			slog.String("env", coreApp.Config.Env.String()))
		serveErr <- srv.ListenAndServe()
	}()

	var runErr error
loop:
	for {
		select {
		case err := <-serveErr:
			if !errors.Is(err, http.ErrServerClosed) {
				runErr = err
			}
			break loop
		case <-reload:
			if err := coreApp.Catalog.ForceUpdate(ctx); err != nil {
				logging.LogError(logger, "catalog reload failed", err)
			}
		case <-ctx.Done():
			logging.LogOperation(logger, "server_shutting_down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			if err := srv.Shutdown(shutdownCtx); err != nil {
				runErr = fmt.Errorf("server shutdown failed: %w", err)
			}
			cancel()
			break loop
		}
	}

	api.Shutdown()
	coreApp.Metrics.Shutdown()
	coreApp.Catalog.Close()
	logging.LogOperation(logger, "server_stopped")
	return runErr
}
