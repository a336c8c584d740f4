// Command replay feeds a recorded session through the engine using the
// recorded timestamps instead of the wall clock.
//
// Each input line is a JSON object:
//
//	{"time":"2025-03-01T09:00:10Z","side":"left","shoulder":{"x":1,"y":2},"hip":{...},"knee":{...}}
//
// or, with landmarks of both sides, {"time":...,"width":640,"height":480,"landmarks":{...}}.
// A line without joints or landmarks counts as a frame with no detection.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"posturemonitor/internal/config"
	"posturemonitor/internal/logger"
	"posturemonitor/internal/repository"
	"posturemonitor/internal/repository/csvlog"
	"posturemonitor/internal/repository/sqlite"
	"posturemonitor/internal/service/report"
)

func main() {
	input := flag.String("input", "session.jsonl", "Recorded session, one JSON sample per line")
	outDir := flag.String("out", "replay", "Output directory")
	file := flag.String("file", csvlog.DefaultFilename, "Log file name inside the output directory")
	backend := flag.String("backend", config.BackendCSV, "Log backend: csv or sqlite")
	interval := flag.Duration("interval", 10*time.Second, "Spacing between logged samples")
	verbose := flag.Bool("v", false, "Log every action")
	flag.Parse()

	if err := validateInterval(*interval); err != nil {
		log.Fatalf("Invalid -interval: %v", err)
	}

	in, err := os.Open(*input)
	if err != nil {
		log.Fatalf("Failed to open input: %v", err)
	}
	defer in.Close()

	var store repository.LogStore
	switch *backend {
	case config.BackendCSV:
		store, err = csvlog.New(*outDir, *file)
	case config.BackendSQLite:
		var db *sqlite.DB
		db, err = sqlite.New(filepath.Join(*outDir, "posture.db"))
		if err == nil {
			defer db.Close()
			store = sqlite.NewLogRepository(db)
		}
	default:
		err = fmt.Errorf("unknown backend %q", *backend)
	}
	if err != nil {
		log.Fatalf("Failed to open log: %v", err)
	}

	replayLogger := logger.NewDiscard()
	if *verbose {
		replayLogger = logger.NewWriter(os.Stdout)
	}

	stats, err := Replay(in, store, *interval, replayLogger)
	if err != nil {
		log.Fatalf("Replay failed: %v", err)
	}

	rows, err := store.ReadAll()
	if err != nil {
		log.Fatalf("Failed to read log: %v", err)
	}
	summary := report.Summarize(rows)

	fmt.Printf("Replayed %d lines: %d detections, %d logged (%d appended, %d patched)\n",
		stats.Lines, stats.Detections, stats.Appended+stats.Patched, stats.Appended, stats.Patched)
	fmt.Printf("Log has %d rows covering %ds\n", summary.Rows, summary.TotalDuration)
	for _, rt := range summary.Ranges {
		fmt.Printf("   %-8s %4d samples %6ds (%.1f%%)\n", rt.Range, rt.Frequency, rt.Duration, rt.Share*100)
	}
}
