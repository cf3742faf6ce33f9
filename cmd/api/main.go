// Command api serves intersection volumes, timing plans and delay
// comparisons over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kyleponte/signaltiming/internal/appconf"
	"github.com/kyleponte/signaltiming/internal/catalog"
)

func main() {
	if err := appconf.LoadEnvFiles(defaultEnvFile, defaultLocalEnvFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	jsonConfig, err := LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	analysis, err := jsonConfig.ToAnalysisConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	cfg := jsonConfig.ToAppConfig()

	coreApp, err := BuildApplication(cfg, catalog.FromAppConf(jsonConfig.ToCatalogConfigData()), analysis)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	srv, api := CreateServer(coreApp, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := Run(ctx, srv, coreApp, api); err != nil {
		coreApp.Logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
