package pose

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RemoteDetector sends JPEG frames to an external pose inference endpoint.
// The endpoint answers 200 with Landmarks as JSON, or 204 when nobody is in
// the frame.
type RemoteDetector struct {
	url    string
	client *http.Client
}

// NewRemoteDetector creates a detector posting to url.
func NewRemoteDetector(url string, timeout time.Duration) *RemoteDetector {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RemoteDetector{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Detect implements Detector.
func (d *RemoteDetector) Detect(frame []byte) (*Landmarks, error) {
	return d.DetectContext(context.Background(), frame)
}

// DetectContext is Detect bound to ctx.
func (d *RemoteDetector) DetectContext(ctx context.Context, frame []byte) (*Landmarks, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("failed to build pose request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pose request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent:
		return nil, ErrNoDetection
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("pose endpoint returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var landmarks Landmarks
	if err := json.NewDecoder(resp.Body).Decode(&landmarks); err != nil {
		return nil, fmt.Errorf("failed to decode landmarks: %w", err)
	}
	return &landmarks, nil
}

// Close implements Detector.
func (d *RemoteDetector) Close() error {
	d.client.CloseIdleConnections()
	return nil
}
