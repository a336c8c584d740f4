package routes

import (
	"net/http"

	"posturemonitor/internal/config"
	"posturemonitor/internal/handler"
	"posturemonitor/internal/logger"
	"posturemonitor/internal/middleware"
	"posturemonitor/internal/service"
)

// SetupRoutes registers the API, chart, viewer and log endpoints and wraps
// the mux with the authentication middleware.
func SetupRoutes(manager *service.Manager, cfg *config.Config, logger *logger.Logger, sessions *middleware.Sessions) http.Handler {
	mux := http.NewServeMux()

	// API endpoints
	mux.HandleFunc("/api/samples", handler.IngestSampleHandler(manager, logger))
	mux.HandleFunc("/api/rows", handler.GetRowsHandler(manager, logger))
	mux.HandleFunc("/api/summary", handler.GetSummaryHandler(manager, logger))
	mux.HandleFunc("/api/snapshots", handler.GetSnapshotsHandler(manager, logger))
	mux.HandleFunc("/api/snapshots/view", handler.ViewSnapshotHandler(cfg.OutputDirectory))
	mux.HandleFunc("/api/snapshots/delete", handler.DeleteSnapshotHandler(manager, logger))
	mux.HandleFunc("/api/view", handler.ViewerEventsHandler(manager, logger))

	mux.HandleFunc("/charts", handler.ChartsHandler(manager, logger, cfg.ChartAssetsHost))
	mux.Handle("/", http.RedirectHandler("/charts", http.StatusFound))

	// Log endpoints
	for _, level := range []string{"info", "warning", "error"} {
		file := level + ".log"
		mux.HandleFunc("/logs/"+level, handler.ShowLogsHandler(logger, file))
		mux.HandleFunc("/logs/"+level+"/clear", handler.ClearLogsHandler(logger, file))
	}

	// Auth endpoints
	mux.HandleFunc("/auth/login", handler.LoginHandler(sessions, logger))
	mux.HandleFunc("/auth/logout", handler.LogoutHandler(sessions))

	return middleware.AuthMiddleware(sessions, mux)
}
