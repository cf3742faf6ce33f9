package webui

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Content types are set explicitly; .csv is missing from the mime table on
// minimal hosts.
var reportExtensions = map[string]string{
	".csv":  "text/csv; charset=utf-8",
	".json": "application/json",
	".gz":   "application/gzip",
}

// reportFileHandler serves a file written by the analyze command. Only flat
// file names with a report extension inside ReportsDir are served.
func (webUI *WebUI) reportFileHandler(w http.ResponseWriter, r *http.Request) {
	fileName := r.PathValue("file")

	contentType, ok := reportExtensions[strings.ToLower(filepath.Ext(fileName))]
	if !ok {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	if fileName == "" || strings.Contains(fileName, "..") || strings.ContainsAny(fileName, "/\\\x00") {
		http.Error(w, "Invalid file name", http.StatusBadRequest)
		return
	}

	reportsDir, err := filepath.Abs(webUI.Config.ReportsDir)
	if err != nil {
		http.Error(w, "Internal configuration error", http.StatusInternalServerError)
		return
	}
	absPath, err := filepath.Abs(filepath.Join(reportsDir, fileName))
	if err != nil {
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	rel, err := filepath.Rel(reportsDir, absPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		webUI.logger().Warn("potential path traversal attempt blocked", "path", absPath)
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	stat, err := os.Stat(absPath)
	if err != nil || stat.IsDir() {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, absPath)
}
