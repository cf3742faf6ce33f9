// Package webui serves the developer pages: a state dump and downloads of
// exported report files.
package webui

import (
	"log/slog"
	"net/http"

	"github.com/kyleponte/signaltiming/internal/app"
)

type WebUI struct {
	*app.Application
}

func (webUI *WebUI) SetWebUIRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /debug/{$}", webUI.debugIndexHandler)
	if webUI.Config.ReportsDir != "" {
		mux.HandleFunc("GET /reports/{file}", webUI.reportFileHandler)
	}
}

func (webUI *WebUI) logger() *slog.Logger {
	if webUI.Application != nil && webUI.Logger != nil {
		return webUI.Logger.With(slog.String("component", "webui"))
	}
	return slog.Default().With(slog.String("component", "webui"))
}
