package models

import "time"

// Snapshot represents a stored snapshot image record.
type Snapshot struct {
	ID        int64     `json:"id"`
	Filename  string    `json:"filename"`
	Side      Side      `json:"side"`
	Timestamp time.Time `json:"timestamp"`
	FilePath  string    `json:"filepath"`
	FileSize  int64     `json:"filesize"`
}

// SnapshotFilter contains filtering options for querying snapshots.
type SnapshotFilter struct {
	Side      string
	StartDate time.Time
	EndDate   time.Time
	Limit     int
	Offset    int
}

// SnapshotStats contains statistics about stored snapshots.
type SnapshotStats struct {
	TotalSnapshots int            `json:"total_snapshots"`
	TotalSizeBytes int64          `json:"total_size_bytes"`
	PerSide        map[string]int `json:"per_side"`
}
