package models

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// SnapshotName returns the file name of the snapshot taken for side at t.
func SnapshotName(t time.Time, side Side) string {
	return fmt.Sprintf("%s_%s.jpg", t.Format(TimestampLayout), side)
}

// ParseSnapshotName recovers the time and side from a name produced by
// SnapshotName. The time is interpreted in loc.
func ParseSnapshotName(name string, loc *time.Location) (time.Time, Side, error) {
	if filepath.Ext(name) != ".jpg" {
		return time.Time{}, 0, fmt.Errorf("invalid snapshot name %q: not a .jpg", name)
	}
	stem := strings.TrimSuffix(name, ".jpg")

	i := strings.LastIndexByte(stem, '_')
	if i < 0 {
		return time.Time{}, 0, fmt.Errorf("invalid snapshot name %q", name)
	}

	side, err := ParseSide(stem[i+1:])
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("invalid snapshot name %q: %w", name, err)
	}
	ts, err := time.ParseInLocation(TimestampLayout, stem[:i], loc)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("invalid snapshot name %q: %w", name, err)
	}
	return ts, side, nil
}
