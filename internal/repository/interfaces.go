package repository

import (
	"errors"
	"fmt"

	"posturemonitor/internal/models"
)

var (
	// ErrStorageUnavailable wraps every failure to create, open, read or
	// rewrite the backing storage.
	ErrStorageUnavailable = errors.New("log storage unavailable")
	// ErrHeaderMismatch is returned when an existing log carries a different header.
	ErrHeaderMismatch = errors.New("log header mismatch")
	// ErrMalformedRow is returned when a stored row cannot be decoded.
	ErrMalformedRow = errors.New("malformed log row")
	// ErrInvalidRow is returned when a row is rejected before it is written.
	ErrInvalidRow = errors.New("invalid log row")
	// ErrRowNotFound is returned by Patch when no stored row matches.
	ErrRowNotFound = errors.New("log row not found")
)

// Header is the fixed column header of the angle log.
var Header = []string{"Timestamp", "Image", "Side", "Hip Angle", "Angle Range", "Frequency", "Total Duration (s)"}

// LogStore defines the durable angle log operations.
type LogStore interface {
	// Append adds row after every stored row.
	Append(row models.LogRow) error

	// ReadAll returns the stored rows in insertion order.
	ReadAll() ([]models.LogRow, error)

	// ReplaceAll rewrites the whole log with rows.
	ReplaceAll(rows []models.LogRow) error

	// Patch overwrites Frequency and TotalDuration of the most recent row
	// with the same side and timestamp as row.
	Patch(row models.LogRow) error
}

// SnapshotRepository defines the interface for snapshot index operations.
type SnapshotRepository interface {
	// Create operations
	Insert(snap *models.Snapshot) (int64, error)

	// Read operations
	GetByFilename(filename string) (*models.Snapshot, error)
	GetAll(filter *models.SnapshotFilter) ([]models.Snapshot, error)
	GetStats() (*models.SnapshotStats, error)

	// Delete operations
	DeleteByFilename(filename string) error
	DeleteAll() error
}

// CheckRows validates rows before any of them is written.
func CheckRows(rows ...models.LogRow) error {
	for i, row := range rows {
		if err := row.Validate(); err != nil {
			return fmt.Errorf("%w: row %d (%s %s): %w", ErrInvalidRow, i+1, row.Timestamp, row.Side, err)
		}
	}
	return nil
}

// FindLatest scans rows from the end and returns the index of the first row
// matching target's side and timestamp, or -1.
func FindLatest(rows []models.LogRow, target models.LogRow) int {
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].SameRun(target) {
			return i
		}
	}
	return -1
}

// PatchRows applies target's counters to the matching row of rows in place.
func PatchRows(rows []models.LogRow, target models.LogRow) error {
	i := FindLatest(rows, target)
	if i < 0 {
		return ErrRowNotFound
	}
	rows[i].Frequency = target.Frequency
	rows[i].TotalDuration = target.TotalDuration
	return nil
}
