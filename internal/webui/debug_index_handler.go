package webui

import (
	"embed"
	"html/template"
	"net/http"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"github.com/kyleponte/signaltiming/internal/appconf"
	"github.com/kyleponte/signaltiming/internal/logging"
	"github.com/kyleponte/signaltiming/internal/models"
	"github.com/kyleponte/signaltiming/internal/report"
)

//go:embed debug_index.html
var templateFS embed.FS

var debugTemplate = template.Must(template.ParseFS(templateFS, "debug_index.html"))

var dataTypes = []string{"intersections", "load", "plans", "config", "tables"}

type debugData struct {
	Title string
	Pre   string
	Types []string
}

var dumper = spew.ConfigState{Indent: "  ", SortKeys: true, DisablePointerAddresses: true}

func (webUI *WebUI) writeDebugData(w http.ResponseWriter, title string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := debugTemplate.Execute(w, debugData{
		Title: title,
		Pre:   dumper.Sdump(data),
		Types: dataTypes,
	})
	if err != nil {
		logging.LogError(webUI.logger(), "failed to execute debug template", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func unavailable(what string) map[string]string {
	return map[string]string{"error": what + " is not configured"}
}

func (webUI *WebUI) debugIndexHandler(w http.ResponseWriter, r *http.Request) {
	if webUI.Application == nil || webUI.Config.Env == appconf.Production {
		http.NotFound(w, r)
		return
	}

	var data any
	var title string

	switch r.URL.Query().Get("dataType") {
	case "intersections":
		title = "Catalog - Intersections"
		if webUI.Catalog == nil {
			data = unavailable("catalog")
			break
		}
		data = webUI.Catalog.Intersections()
	case "load":
		title = "Catalog - Last Load"
		if webUI.Catalog == nil {
			data = unavailable("catalog")
			break
		}
		data = webUI.Catalog.LastLoad()
	case "plans":
		title = "Analysis - Plans"
		if webUI.Catalog == nil || webUI.Runner == nil {
			data = unavailable("analysis")
			break
		}
		data = report.Entries(webUI.Runner.Run(r.Context(), webUI.Catalog.Intersections()))
	case "config":
		title = "Analysis - Settings"
		data = models.NewAnalysisSettings(webUI.Analysis)
	case "tables":
		title = "Report Database - Row Counts"
		if webUI.Catalog == nil || webUI.Catalog.DB == nil {
			data = unavailable("report database")
			break
		}
		counts, err := webUI.Catalog.DB.TableCounts(r.Context())
		if err != nil {
			logging.LogError(webUI.logger(), "failed to count tables", err)
			data = map[string]string{"error": err.Error()}
			break
		}
		data = counts
	default:
		title = "Choose a data type"
		data = map[string]string{
			"error": "Please use one of the following: " + strings.Join(dataTypes, ", ") + ".",
		}
	}

	webUI.writeDebugData(w, title, data)
}
