package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"posturemonitor/internal/logger"
	"posturemonitor/internal/models"
	"posturemonitor/internal/repository"
	"posturemonitor/internal/service"
	"posturemonitor/internal/service/pose"
)

const maxSampleBody = 8 << 20

// SampleRequest carries either already-computed joints for one side or the
// landmarks of a whole frame. A missing joint means nothing was detected.
// Image is the base64 encoded JPEG frame used for the snapshot.
type SampleRequest struct {
	Side     string          `json:"side"`
	Shoulder *models.Joint   `json:"shoulder"`
	Hip      *models.Joint   `json:"hip"`
	Knee     *models.Joint   `json:"knee"`
	Pose     *pose.Landmarks `json:"landmarks"`
	Width    int             `json:"width"`
	Height   int             `json:"height"`
	Image    []byte          `json:"image"`
}

type SampleResponse struct {
	Detected bool                `json:"detected"`
	Sample   *models.AngleSample `json:"sample,omitempty"`
}

// IngestSampleHandler handles POST /api/samples.
func IngestSampleHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req SampleRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSampleBody)).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON body", http.StatusBadRequest)
			return
		}

		var (
			sample *models.AngleSample
			err    error
		)
		if req.Pose != nil {
			if req.Width <= 0 || req.Height <= 0 {
				http.Error(w, "width and height are required with landmarks", http.StatusBadRequest)
				return
			}
			sample, err = manager.HandleLandmarks(req.Pose, req.Width, req.Height, req.Image)
		} else {
			side, parseErr := models.ParseSide(req.Side)
			if parseErr != nil {
				http.Error(w, parseErr.Error(), http.StatusBadRequest)
				return
			}
			sample, err = manager.HandleSample(side, req.joints(), req.Image)
		}

		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, repository.ErrStorageUnavailable) {
				status = http.StatusServiceUnavailable
			}
			http.Error(w, "Failed to log sample", status)
			return
		}

		writeJSON(w, logger, SampleResponse{Detected: sample != nil, Sample: sample})
	}
}

func (req *SampleRequest) joints() *models.Joints {
	if req.Shoulder == nil || req.Hip == nil || req.Knee == nil {
		return nil
	}
	return &models.Joints{Shoulder: *req.Shoulder, Hip: *req.Hip, Knee: *req.Knee}
}

func writeJSON(w http.ResponseWriter, logger *logger.Logger, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}
