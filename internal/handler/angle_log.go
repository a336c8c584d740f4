package handler

import (
	"bytes"
	"net/http"

	"posturemonitor/internal/logger"
	"posturemonitor/internal/service"
	"posturemonitor/internal/service/report"
)

// GetRowsHandler returns every log row as JSON.
func GetRowsHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := manager.Rows()
		if err != nil {
			logger.Error("Error reading log rows: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, logger, rows)
	}
}

// GetSummaryHandler returns the aggregated log.
func GetSummaryHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := manager.Summary()
		if err != nil {
			logger.Error("Error summarizing log: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, logger, summary)
	}
}

// ChartsHandler renders the log as an HTML page of charts.
func ChartsHandler(manager *service.Manager, logger *logger.Logger, assetsHost string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := manager.Rows()
		if err != nil {
			logger.Error("Error reading log rows: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		var buf bytes.Buffer
		if err := report.RenderCharts(&buf, rows, assetsHost); err != nil {
			logger.Error("Error rendering charts: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(buf.Bytes())
	}
}
