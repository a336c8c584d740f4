package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"posturemonitor/internal/models"
	"posturemonitor/internal/repository/csvlog"
	"posturemonitor/internal/repository/sqlite"
)

func TestImportLog(t *testing.T) {
	dir := t.TempDir()
	src, err := csvlog.New(dir, "")
	require.NoError(t, err)

	rows := []models.LogRow{
		{Timestamp: "2025-03-01_09-00-10", Image: "2025-03-01_09-00-10_left.jpg", Side: models.Left, HipAngle: 92, AngleRange: "90-100", Frequency: 3, TotalDuration: 30},
		{Timestamp: "2025-03-01_09-00-40", Image: "2025-03-01_09-00-40_right.jpg", Side: models.Right, HipAngle: 180, AngleRange: "180-190", Frequency: 1, TotalDuration: 10},
	}
	require.NoError(t, src.ReplaceAll(rows))

	db, err := sqlite.New(filepath.Join(dir, "posture.db"))
	require.NoError(t, err)
	defer db.Close()
	dst := sqlite.NewLogRepository(db)

	for i := 0; i < 2; i++ {
		n, err := importLog(src.Path(), dst)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	}

	got, err := dst.ReadAll()
	require.NoError(t, err)
	if diff := cmp.Diff(rows, got); diff != "" {
		t.Errorf("imported rows differ (-want +got):\n%s", diff)
	}

	_, err = importLog(filepath.Join(dir, "missing.csv"), dst)
	assert.Error(t, err)
}

func TestIndexSnapshots(t *testing.T) {
	dir := t.TempDir()
	for name, size := range map[string]int{
		"2025-03-01_09-00-10_left.jpg":  4,
		"2025-03-01_09-00-40_right.jpg": 6,
		"holiday.jpg":                   1,
		"notes.txt":                     1,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), make([]byte, size), 0644))
	}

	db, err := sqlite.New(filepath.Join(dir, "posture.db"))
	require.NoError(t, err)
	defer db.Close()
	repo := sqlite.NewSnapshotRepository(db)

	result, err := indexSnapshots(dir, repo, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, indexResult{Found: 2, Inserted: 2, Skipped: 1}, result)

	result, err = indexSnapshots(dir, repo, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Inserted)

	snap, err := repo.GetByFilename("2025-03-01_09-00-40_right.jpg")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, models.Right, snap.Side)
	assert.Equal(t, int64(6), snap.FileSize)
	assert.True(t, snap.Timestamp.Equal(time.Date(2025, 3, 1, 9, 0, 40, 0, time.UTC)))
}
