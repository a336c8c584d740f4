// Package engine turns joint samples into the aggregated hip angle log.
package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"posturemonitor/internal/angle"
	"posturemonitor/internal/logger"
	"posturemonitor/internal/models"
	"posturemonitor/internal/repository"
	"posturemonitor/internal/service/pose"
	"posturemonitor/internal/tracking"
)

// SnapshotRequester persists the frame that produced a logged sample.
// Requests are fire-and-forget.
type SnapshotRequester interface {
	RequestSnapshot(name string, side models.Side, at time.Time, frame []byte)
}

// Listener receives an event after every successful log action.
type Listener func(models.Event)

// Engine owns the window gate and per-side track state for one log.
// It is safe for use by multiple goroutines; samples are processed one at a time.
type Engine struct {
	store     repository.LogStore
	snapshots SnapshotRequester
	window    *tracking.Window
	state     tracking.State
	interval  time.Duration
	now       func() time.Time
	listeners []Listener
	logger    *logger.Logger
	mu        sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithListener subscribes l to log events.
func WithListener(l Listener) Option {
	return func(e *Engine) { e.listeners = append(e.listeners, l) }
}

// WithLogger sets the logger used for recoverable conditions.
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine writing to store. snapshots may be nil. The window
// opens one interval after construction. Durations are logged in whole
// seconds, so an interval with a fractional second is rounded up.
func New(store repository.LogStore, snapshots SnapshotRequester, interval time.Duration, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		snapshots: snapshots,
		now:       time.Now,
		logger:    logger.NewDiscard(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.interval = WholeSeconds(interval)
	if e.interval != interval && interval > 0 {
		e.logger.Warning("Sampling interval %v rounded up to %v", interval, e.interval)
	}
	e.window = tracking.NewWindow(e.interval, e.now())
	return e
}

// WholeSeconds rounds interval up to a whole number of seconds. Non-positive
// values yield the default interval.
func WholeSeconds(interval time.Duration) time.Duration {
	if interval <= 0 {
		return tracking.DefaultInterval
	}
	if rem := interval % time.Second; rem != 0 {
		interval += time.Second - rem
	}
	return interval
}

// Interval returns the spacing between logged samples.
func (e *Engine) Interval() time.Duration {
	return e.interval
}

// OnSample processes the joints measured for side in the current frame.
// A nil joints value means nothing was detected and is ignored. The computed
// sample is returned whether or not it was logged; errors come only from the
// log store and leave the engine state unchanged.
func (e *Engine) OnSample(side models.Side, joints *models.Joints, frame []byte) (*models.AngleSample, error) {
	if joints == nil {
		return nil, nil
	}
	if !side.Valid() {
		return nil, fmt.Errorf("invalid side %d", int(side))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	deg := angle.HipAngle(*joints)
	sample := &models.AngleSample{
		Side:       side,
		Angle:      deg,
		AngleRange: angle.Bucket(deg),
		Time:       now,
	}

	if !e.window.ShouldSample(now) {
		return sample, nil
	}

	timestamp := now.Format(models.TimestampLayout)
	imageName := models.SnapshotName(now, side)

	row, action, err := e.record(sample, timestamp, imageName)
	if err != nil {
		return sample, err
	}

	e.state.Set(side, sample.AngleRange, row)
	e.window.MarkSampled(now)
	sample.Logged = true

	if e.snapshots != nil {
		e.snapshots.RequestSnapshot(imageName, side, now, frame)
	}
	for _, l := range e.listeners {
		l(models.Event{Action: action, Row: row})
	}
	return sample, nil
}

// OnFrame tracks the side facing the camera in a frame of the given pixel
// size. nil landmarks mean nothing was detected.
func (e *Engine) OnFrame(landmarks *pose.Landmarks, width, height int, frame []byte) (*models.AngleSample, error) {
	if landmarks == nil {
		return nil, nil
	}
	side, joints := pose.Track(landmarks, width, height)
	return e.OnSample(side, &joints, frame)
}

// record continues the side's current row when the range is unchanged and
// appends a new one otherwise.
func (e *Engine) record(sample *models.AngleSample, timestamp, imageName string) (models.LogRow, string, error) {
	seconds := int(e.interval / time.Second)

	if row, ok := e.state.Observe(sample.Side, sample.AngleRange); ok {
		row.Frequency++
		row.TotalDuration += seconds

		err := e.store.Patch(row)
		if err == nil {
			return row, models.ActionPatch, nil
		}
		if !errors.Is(err, repository.ErrRowNotFound) {
			return models.LogRow{}, "", fmt.Errorf("failed to patch %s row %s: %w", row.Side, row.Timestamp, err)
		}
		e.logger.Warning("Row %s (%s) is no longer in the log, starting a new one", row.Timestamp, row.Side)
	}

	row := models.LogRow{
		Timestamp:     timestamp,
		Image:         imageName,
		Side:          sample.Side,
		HipAngle:      int(sample.Angle),
		AngleRange:    sample.AngleRange,
		Frequency:     1,
		TotalDuration: seconds,
	}
	if err := e.store.Append(row); err != nil {
		return models.LogRow{}, "", fmt.Errorf("failed to append %s row: %w", row.Side, err)
	}
	return row, models.ActionAppend, nil
}

// Current returns the side's tracked entry.
func (e *Engine) Current(side models.Side) tracking.Entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Current(side)
}

// Reset forgets the tracked rows of both sides; the next logged sample of each
// side starts a new row.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Reset()
}
