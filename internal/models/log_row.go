package models

import (
	"errors"
	"fmt"
)

// TimestampLayout is the layout of LogRow.Timestamp and snapshot names.
const TimestampLayout = "2006-01-02_15-04-05"

// LogRow is one persisted aggregation record for a contiguous run of
// same-range samples on one side.
type LogRow struct {
	Timestamp     string `json:"timestamp"`
	Image         string `json:"image"`
	Side          Side   `json:"side"`
	HipAngle      int    `json:"hip_angle"`
	AngleRange    string `json:"angle_range"`
	Frequency     int    `json:"frequency"`
	TotalDuration int    `json:"total_duration"`
}

// SameRun reports whether r and other identify the same stored row.
func (r LogRow) SameRun(other LogRow) bool {
	return r.Side == other.Side && r.Timestamp == other.Timestamp
}

// Validate checks the fields every stored row must satisfy.
func (r LogRow) Validate() error {
	var errs []error
	if !r.Side.Valid() {
		errs = append(errs, fmt.Errorf("invalid side %d", int(r.Side)))
	}
	if r.Timestamp == "" {
		errs = append(errs, errors.New("empty timestamp"))
	}
	if r.AngleRange == "" {
		errs = append(errs, errors.New("empty angle range"))
	}
	if r.Frequency < 1 {
		errs = append(errs, fmt.Errorf("frequency must be at least 1, got %d", r.Frequency))
	}
	if r.TotalDuration < 1 {
		errs = append(errs, fmt.Errorf("total duration must be at least 1s, got %d", r.TotalDuration))
	}
	return errors.Join(errs...)
}

// Event is published after every successful log action.
type Event struct {
	Action string `json:"action"`
	Row    LogRow `json:"row"`
}

const (
	ActionAppend = "append"
	ActionPatch  = "patch"
)
