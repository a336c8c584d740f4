package csvlog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"posturemonitor/internal/models"
	"posturemonitor/internal/repository"
)

const headerLine = "Timestamp,Image,Side,Hip Angle,Angle Range,Frequency,Total Duration (s)\n"

func sampleRows() []models.LogRow {
	return []models.LogRow{
		{Timestamp: "2025-03-01_09-00-10", Image: "2025-03-01_09-00-10_left.jpg", Side: models.Left, HipAngle: 45, AngleRange: "40-50", Frequency: 1, TotalDuration: 10},
		{Timestamp: "2025-03-01_09-00-20", Image: "2025-03-01_09-00-20_right.jpg", Side: models.Right, HipAngle: 92, AngleRange: "90-100", Frequency: 3, TotalDuration: 30},
	}
}

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), "")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return s
}

func TestNew_WritesHeader(t *testing.T) {
	s := newStore(t)

	data, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("Failed to read log: %v", err)
	}
	if string(data) != headerLine {
		t.Errorf("unexpected file content %q", data)
	}
	if filepath.Base(s.Path()) != DefaultFilename {
		t.Errorf("expected default filename, got %s", s.Path())
	}
}

func TestNew_RejectsForeignHeader(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, DefaultFilename), []byte("a,b,c\n1,2,3\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := New(dir, "")
	if !errors.Is(err, repository.ErrHeaderMismatch) {
		t.Fatalf("expected ErrHeaderMismatch, got %v", err)
	}
}

func TestNew_KeepsExistingRows(t *testing.T) {
	dir := t.TempDir()
	first, err := New(dir, "")
	if err != nil {
		t.Fatal(err)
	}
	for _, row := range sampleRows() {
		if err := first.Append(row); err != nil {
			t.Fatal(err)
		}
	}

	second, err := New(dir, "")
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	rows, err := second.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(sampleRows(), rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestAppend_Format(t *testing.T) {
	s := newStore(t)
	if err := s.Append(sampleRows()[0]); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	data, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	expected := headerLine + "2025-03-01_09-00-10,2025-03-01_09-00-10_left.jpg,left,45,40-50,1,10\n"
	if string(data) != expected {
		t.Errorf("unexpected content:\n%s\nexpected:\n%s", data, expected)
	}
}

func TestAppend_RecreatesMissingFile(t *testing.T) {
	s := newStore(t)
	if err := os.Remove(s.Path()); err != nil {
		t.Fatal(err)
	}

	rows, err := s.ReadAll()
	if err != nil || len(rows) != 0 {
		t.Fatalf("missing file should read empty, got %v, %v", rows, err)
	}

	if err := s.Append(sampleRows()[1]); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	data, _ := os.ReadFile(s.Path())
	if !strings.HasPrefix(string(data), headerLine) {
		t.Errorf("header missing after recreate: %q", data)
	}
}

func TestReplaceAll_RoundTrip(t *testing.T) {
	s := newStore(t)
	for _, row := range sampleRows() {
		if err := s.Append(row); err != nil {
			t.Fatal(err)
		}
	}
	before, _ := os.ReadFile(s.Path())

	rows, err := s.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if err := s.ReplaceAll(rows); err != nil {
		t.Fatalf("ReplaceAll failed: %v", err)
	}

	after, _ := os.ReadFile(s.Path())
	if string(before) != string(after) {
		t.Errorf("round trip changed content:\n%s\n---\n%s", before, after)
	}

	entries, _ := os.ReadDir(filepath.Dir(s.Path()))
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %d entries", len(entries))
	}
}

func TestPatch(t *testing.T) {
	s := newStore(t)
	rows := sampleRows()
	for _, row := range rows {
		if err := s.Append(row); err != nil {
			t.Fatal(err)
		}
	}

	target := rows[0]
	target.Frequency = 2
	target.TotalDuration = 20
	if err := s.Patch(target); err != nil {
		t.Fatalf("Patch failed: %v", err)
	}

	got, err := s.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	rows[0].Frequency, rows[0].TotalDuration = 2, 20
	if diff := cmp.Diff(rows, got); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}

	missing := models.LogRow{Timestamp: "1999-01-01_00-00-00", Side: models.Left, Frequency: 1, TotalDuration: 10}
	if err := s.Patch(missing); !errors.Is(err, repository.ErrRowNotFound) {
		t.Errorf("expected ErrRowNotFound, got %v", err)
	}

	zeroed := rows[0]
	zeroed.Frequency = 0
	if err := s.Patch(zeroed); !errors.Is(err, repository.ErrInvalidRow) {
		t.Errorf("expected ErrInvalidRow, got %v", err)
	}
}

func TestInvalidRowsNeverReachTheFile(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.LogRow)
	}{
		{"unknown side", func(r *models.LogRow) { r.Side = 7 }},
		{"empty timestamp", func(r *models.LogRow) { r.Timestamp = "" }},
		{"empty range", func(r *models.LogRow) { r.AngleRange = "" }},
		{"zero frequency", func(r *models.LogRow) { r.Frequency = 0 }},
		{"negative duration", func(r *models.LogRow) { r.TotalDuration = -5 }},
		{"zero duration", func(r *models.LogRow) { r.TotalDuration = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			good := sampleRows()[0]
			if err := s.Append(good); err != nil {
				t.Fatal(err)
			}
			before, _ := os.ReadFile(s.Path())

			bad := sampleRows()[1]
			tt.mutate(&bad)

			if err := s.Append(bad); !errors.Is(err, repository.ErrInvalidRow) {
				t.Errorf("Append: expected ErrInvalidRow, got %v", err)
			}
			if err := s.ReplaceAll([]models.LogRow{good, bad}); !errors.Is(err, repository.ErrInvalidRow) {
				t.Errorf("ReplaceAll: expected ErrInvalidRow, got %v", err)
			}

			after, _ := os.ReadFile(s.Path())
			if string(before) != string(after) {
				t.Errorf("log changed after rejected write:\n%s", after)
			}

			// The log stays patchable.
			good.Frequency, good.TotalDuration = 2, 20
			if err := s.Patch(good); err != nil {
				t.Errorf("Patch after rejected write failed: %v", err)
			}
		})
	}
}

func TestReadAll_Malformed(t *testing.T) {
	s := newStore(t)
	content := headerLine + "2025-03-01_09-00-10,x.jpg,up,45,40-50,1,10\n"
	if err := os.WriteFile(s.Path(), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := s.ReadAll(); !errors.Is(err, repository.ErrMalformedRow) {
		t.Errorf("expected ErrMalformedRow, got %v", err)
	}
}

func TestStorageUnavailable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}

	// A regular file where the directory should be.
	_, err := New(filepath.Join(blocker, "sub"), "")
	if !errors.Is(err, repository.ErrStorageUnavailable) {
		t.Errorf("expected ErrStorageUnavailable, got %v", err)
	}
}
