// Package csvlog stores the angle log as a CSV file with a fixed header.
package csvlog

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"

	"posturemonitor/internal/models"
	"posturemonitor/internal/repository"
)

// DefaultFilename is the log file name used inside the output directory.
const DefaultFilename = "hip_angle_log.csv"

// Store implements repository.LogStore on a single CSV file.
type Store struct {
	path string
	mu   sync.Mutex
}

// New opens the log at dir/filename, creating the directory and a
// header-only file when absent. An existing file must carry the fixed header.
func New(dir, filename string) (*Store, error) {
	if filename == "" {
		filename = DefaultFilename
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: create directory %s: %w", repository.ErrStorageUnavailable, dir, err)
	}

	s := &Store{path: filepath.Join(dir, filename)}
	if err := s.initialize(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the location of the log file.
func (s *Store) Path() string {
	return s.path
}

// initialize writes the header to a new file or validates an existing one.
func (s *Store) initialize() error {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return s.writeFile(nil)
	}
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", repository.ErrStorageUnavailable, s.path, err)
	}
	defer f.Close()

	header, err := csv.NewReader(f).Read()
	if err == io.EOF {
		return s.writeFile(nil)
	}
	if err != nil {
		return fmt.Errorf("%w: read header of %s: %w", repository.ErrStorageUnavailable, s.path, err)
	}
	if !slices.Equal(header, repository.Header) {
		return fmt.Errorf("%w: %s has %q", repository.ErrHeaderMismatch, s.path, header)
	}
	return nil
}

// Append adds row to the end of the log in a single write, recreating the
// header if the file was removed.
func (s *Store) Append(row models.LogRow) error {
	if err := repository.CheckRows(row); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", repository.ErrStorageUnavailable, s.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: stat %s: %w", repository.ErrStorageUnavailable, s.path, err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if info.Size() == 0 {
		w.Write(repository.Header)
	}
	w.Write(encodeRow(row))
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to encode row: %w", err)
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("%w: append to %s: %w", repository.ErrStorageUnavailable, s.path, err)
	}
	return nil
}

// ReadAll returns every stored row, header excluded. A missing file reads as
// an empty log.
func (s *Store) ReadAll() ([]models.LogRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readAll()
}

func (s *Store) readAll() ([]models.LogRow, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", repository.ErrStorageUnavailable, s.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(repository.Header)

	records, err := r.ReadAll()
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return nil, fmt.Errorf("%w: %w", repository.ErrMalformedRow, err)
		}
		return nil, fmt.Errorf("%w: read %s: %w", repository.ErrStorageUnavailable, s.path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	if !slices.Equal(records[0], repository.Header) {
		return nil, fmt.Errorf("%w: %s has %q", repository.ErrHeaderMismatch, s.path, records[0])
	}

	rows := make([]models.LogRow, 0, len(records)-1)
	for i, record := range records[1:] {
		row, err := decodeRow(record)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", repository.ErrMalformedRow, i+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReplaceAll rewrites the log with rows. The new content is written to a
// temporary file and renamed over the log. Nothing is written if any row is
// invalid.
func (s *Store) ReplaceAll(rows []models.LogRow) error {
	if err := repository.CheckRows(rows...); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeFile(rows)
}

// Patch rewrites the counters of the latest row matching row's side and
// timestamp.
func (s *Store) Patch(row models.LogRow) error {
	if row.Frequency < 1 || row.TotalDuration < 1 {
		return fmt.Errorf("%w: counters %d/%ds", repository.ErrInvalidRow, row.Frequency, row.TotalDuration)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readAll()
	if err != nil {
		return err
	}
	if err := repository.PatchRows(rows, row); err != nil {
		return err
	}
	return s.writeFile(rows)
}

func (s *Store) writeFile(rows []models.LogRow) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %w", repository.ErrStorageUnavailable, err)
	}
	tmpPath := tmp.Name()

	w := csv.NewWriter(tmp)
	w.Write(repository.Header)
	for _, row := range rows {
		w.Write(encodeRow(row))
	}
	w.Flush()

	if err := w.Error(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: write %s: %w", repository.ErrStorageUnavailable, tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: close %s: %w", repository.ErrStorageUnavailable, tmpPath, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: chmod %s: %w", repository.ErrStorageUnavailable, tmpPath, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: rename %s: %w", repository.ErrStorageUnavailable, tmpPath, err)
	}
	return nil
}

func encodeRow(row models.LogRow) []string {
	return []string{
		row.Timestamp,
		row.Image,
		row.Side.String(),
		strconv.Itoa(row.HipAngle),
		row.AngleRange,
		strconv.Itoa(row.Frequency),
		strconv.Itoa(row.TotalDuration),
	}
}

func decodeRow(record []string) (models.LogRow, error) {
	side, err := models.ParseSide(record[2])
	if err != nil {
		return models.LogRow{}, err
	}
	hipAngle, err := strconv.Atoi(record[3])
	if err != nil {
		return models.LogRow{}, fmt.Errorf("hip angle: %w", err)
	}
	frequency, err := strconv.Atoi(record[5])
	if err != nil {
		return models.LogRow{}, fmt.Errorf("frequency: %w", err)
	}
	duration, err := strconv.Atoi(record[6])
	if err != nil {
		return models.LogRow{}, fmt.Errorf("total duration: %w", err)
	}

	return models.LogRow{
		Timestamp:     record[0],
		Image:         record[1],
		Side:          side,
		HipAngle:      hipAngle,
		AngleRange:    record[4],
		Frequency:     frequency,
		TotalDuration: duration,
	}, nil
}
