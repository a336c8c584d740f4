// Package tracking holds the per-engine memory that decides when and how a
// sample is logged.
package tracking

import "time"

// DefaultInterval is the default spacing between logged samples.
const DefaultInterval = 10 * time.Second

// Window limits logging to one sample per interval, measured from the last
// successful log rather than the last frame.
type Window struct {
	interval time.Duration
	last     time.Time
}

// NewWindow creates a window whose first slot opens one interval after start.
func NewWindow(interval time.Duration, start time.Time) *Window {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Window{interval: interval, last: start}
}

// ShouldSample reports whether now is at least one interval past the last
// logged sample. It does not advance the window.
func (w *Window) ShouldSample(now time.Time) bool {
	return now.Sub(w.last) >= w.interval
}

// MarkSampled records now as the last logged sample.
func (w *Window) MarkSampled(now time.Time) {
	w.last = now
}

// Interval returns the configured spacing.
func (w *Window) Interval() time.Duration {
	return w.interval
}

// Last returns the instant of the last logged sample.
func (w *Window) Last() time.Time {
	return w.last
}
