package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"posturemonitor/internal/models"
	"posturemonitor/internal/repository"
	"posturemonitor/internal/repository/csvlog"
)

// importLog replaces the rows in dst with the rows of the CSV log at path.
func importLog(path string, dst repository.LogStore) (int, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, err
	}
	src, err := csvlog.New(filepath.Dir(path), filepath.Base(path))
	if err != nil {
		return 0, err
	}
	rows, err := src.ReadAll()
	if err != nil {
		return 0, err
	}
	if err := dst.ReplaceAll(rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

type indexResult struct {
	Found    int
	Inserted int
	Skipped  int
}

type snapshotIndexer interface {
	BulkInsert(snaps []models.Snapshot) (int, error)
}

// indexSnapshots records every snapshot image in dir. Names are parsed in loc.
func indexSnapshots(dir string, repo snapshotIndexer, loc *time.Location) (indexResult, error) {
	var result indexResult

	files, err := os.ReadDir(dir)
	if err != nil {
		return result, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var snaps []models.Snapshot
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".jpg" {
			continue
		}

		timestamp, side, err := models.ParseSnapshotName(file.Name(), loc)
		if err != nil {
			log.Printf("Skipping %s: %v", file.Name(), err)
			result.Skipped++
			continue
		}

		info, err := file.Info()
		if err != nil {
			log.Printf("Failed to get info for %s: %v", file.Name(), err)
			result.Skipped++
			continue
		}

		snaps = append(snaps, models.Snapshot{
			Filename:  file.Name(),
			Side:      side,
			Timestamp: timestamp,
			FilePath:  filepath.Join(dir, file.Name()),
			FileSize:  info.Size(),
		})
	}

	result.Found = len(snaps)
	if len(snaps) == 0 {
		return result, nil
	}

	result.Inserted, err = repo.BulkInsert(snaps)
	return result, err
}
