// Command migrate imports an existing CSV angle log and its snapshot
// directory into the SQLite database.
package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"posturemonitor/internal/repository/csvlog"
	"posturemonitor/internal/repository/sqlite"
)

func main() {
	dir := flag.String("dir", "snapshots", "Directory containing the CSV log and snapshot images")
	file := flag.String("file", csvlog.DefaultFilename, "CSV log file name inside dir")
	dbPath := flag.String("db", "", "Database path (default dir/posture.db)")
	skipLog := flag.Bool("images-only", false, "Only index snapshot images")
	flag.Parse()

	if *dbPath == "" {
		*dbPath = filepath.Join(*dir, "posture.db")
	}

	fmt.Printf("Migrating %s to database %s\n", *dir, *dbPath)

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if !*skipLog {
		n, err := importLog(filepath.Join(*dir, *file), sqlite.NewLogRepository(db))
		if err != nil {
			log.Fatalf("Failed to import log: %v", err)
		}
		fmt.Printf("Imported %d log rows\n", n)
	}

	repo := sqlite.NewSnapshotRepository(db)
	result, err := indexSnapshots(*dir, repo, time.Local)
	if err != nil {
		log.Fatalf("Failed to index snapshots: %v", err)
	}
	fmt.Printf("Indexed %d new snapshots (%d already present)\n", result.Inserted, result.Found-result.Inserted)
	if result.Skipped > 0 {
		fmt.Printf("Skipped %d files (invalid name or errors)\n", result.Skipped)
	}

	stats, err := repo.GetStats()
	if err == nil {
		fmt.Printf("\nDatabase Statistics:\n")
		fmt.Printf("   Total snapshots: %d\n", stats.TotalSnapshots)
		fmt.Printf("   Total size: %d bytes\n", stats.TotalSizeBytes)
		for side, count := range stats.PerSide {
			fmt.Printf("      - %s: %d snapshots\n", side, count)
		}
	}
}
