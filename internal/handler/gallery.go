package handler

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"posturemonitor/internal/logger"
	"posturemonitor/internal/models"
	"posturemonitor/internal/service"
)

type SnapshotsData struct {
	Snapshots   []models.Snapshot     `json:"snapshots"`
	Stats       *models.SnapshotStats `json:"stats"`
	CurrentPage int                   `json:"current_page"`
	Limit       int                   `json:"limit"`
	TotalPages  int                   `json:"total_pages"`
}

// GetSnapshotsHandler returns a filtered page of indexed snapshots.
func GetSnapshotsHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 24)

		filter := &models.SnapshotFilter{
			Side:      q.Get("side"),
			StartDate: parseDate(q.Get("dateAfter")),
			EndDate:   parseDate(q.Get("dateBefore")),
			Limit:     limit,
			Offset:    (page - 1) * limit,
		}
		if !filter.EndDate.IsZero() {
			filter.EndDate = filter.EndDate.Add(24*time.Hour - time.Nanosecond)
		}
		if filter.Side != "" {
			if _, err := models.ParseSide(filter.Side); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}

		snapshots, stats, err := manager.Snapshots(filter)
		if errors.Is(err, service.ErrNoSnapshotIndex) {
			http.Error(w, "Snapshot index not available", http.StatusNotFound)
			return
		}
		if err != nil {
			logger.Error("Error querying snapshots: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if snapshots == nil {
			snapshots = []models.Snapshot{}
		}

		total := stats.TotalSnapshots
		if filter.Side != "" {
			total = stats.PerSide[filter.Side]
		}

		writeJSON(w, logger, SnapshotsData{
			Snapshots:   snapshots,
			Stats:       stats,
			CurrentPage: page,
			Limit:       limit,
			TotalPages:  (total + limit - 1) / limit,
		})
	}
}

// ViewSnapshotHandler serves a single snapshot named by the "file" query
// parameter.
func ViewSnapshotHandler(imagesDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file := r.URL.Query().Get("file")
		if file == "" || filepath.Base(file) != file {
			http.Error(w, "File parameter is required", http.StatusBadRequest)
			return
		}
		http.ServeFile(w, r, filepath.Join(imagesDir, file))
	}
}

// DeleteSnapshotHandler removes a snapshot from disk and from the index.
func DeleteSnapshotHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		file := r.URL.Query().Get("file")
		if file == "" {
			http.Error(w, "File parameter is required", http.StatusBadRequest)
			return
		}

		if err := manager.DeleteSnapshot(file); err != nil {
			logger.Error("Failed to delete snapshot %s: %v", file, err)
			http.Error(w, "Failed to delete snapshot", http.StatusBadRequest)
			return
		}
		writeJSON(w, logger, map[string]string{"status": "deleted", "file": file})
	}
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// parseDate parses a date string in the format "2006-01-02" from the request (HTML input format).
func parseDate(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}
	}
	return t
}
