package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"posturemonitor/internal/logger"
	"posturemonitor/internal/models"
	"posturemonitor/internal/repository"
	"posturemonitor/internal/service/engine"
	"posturemonitor/internal/service/pose"
)

type record struct {
	Time     time.Time       `json:"time"`
	Side     string          `json:"side"`
	Shoulder *models.Joint   `json:"shoulder"`
	Hip      *models.Joint   `json:"hip"`
	Knee     *models.Joint   `json:"knee"`
	Pose     *pose.Landmarks `json:"landmarks"`
	Width    int             `json:"width"`
	Height   int             `json:"height"`
}

func (r *record) joints() *models.Joints {
	if r.Shoulder == nil || r.Hip == nil || r.Knee == nil {
		return nil
	}
	return &models.Joints{Shoulder: *r.Shoulder, Hip: *r.Hip, Knee: *r.Knee}
}

// Stats counts what a replay did.
type Stats struct {
	Lines      int
	Detections int
	Appended   int
	Patched    int
}

// Replay runs every record in r through a fresh engine writing to store. The
// engine clock follows the record times, and the first record starts the
// window.
func Replay(r io.Reader, store repository.LogStore, interval time.Duration, logger *logger.Logger) (Stats, error) {
	if err := validateInterval(interval); err != nil {
		return Stats{}, err
	}

	var (
		stats Stats
		now   time.Time
		eng   *engine.Engine
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		stats.Lines++

		var rec record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return stats, fmt.Errorf("line %d: %w", stats.Lines, err)
		}
		if rec.Time.IsZero() {
			return stats, fmt.Errorf("line %d: missing time", stats.Lines)
		}
		if !now.IsZero() && rec.Time.Before(now) {
			return stats, fmt.Errorf("line %d: time %s goes backwards", stats.Lines, rec.Time.Format(time.RFC3339))
		}
		now = rec.Time

		if eng == nil {
			eng = engine.New(store, nil, interval,
				engine.WithClock(func() time.Time { return now }),
				engine.WithLogger(logger),
				engine.WithListener(func(ev models.Event) {
					if ev.Action == models.ActionAppend {
						stats.Appended++
					} else {
						stats.Patched++
					}
					logger.Info("%s %s %s %s", ev.Row.Timestamp, ev.Action, ev.Row.Side, ev.Row.AngleRange)
				}),
			)
		}

		sample, err := apply(eng, &rec)
		if err != nil {
			return stats, fmt.Errorf("line %d: %w", stats.Lines, err)
		}
		if sample != nil {
			stats.Detections++
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("failed to read input: %w", err)
	}
	return stats, nil
}

// validateInterval accepts whole positive seconds, matching SNAPSHOT_INTERVAL.
func validateInterval(interval time.Duration) error {
	if interval < time.Second || interval%time.Second != 0 {
		return fmt.Errorf("interval must be a positive whole number of seconds, got %v", interval)
	}
	return nil
}

func apply(eng *engine.Engine, rec *record) (*models.AngleSample, error) {
	if rec.Pose != nil {
		if rec.Width <= 0 || rec.Height <= 0 {
			return nil, fmt.Errorf("width and height are required with landmarks")
		}
		return eng.OnFrame(rec.Pose, rec.Width, rec.Height, nil)
	}
	joints := rec.joints()
	if joints == nil {
		return nil, nil
	}
	side, err := models.ParseSide(rec.Side)
	if err != nil {
		return nil, err
	}
	return eng.OnSample(side, joints, nil)
}
