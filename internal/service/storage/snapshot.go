package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"posturemonitor/internal/config"
	"posturemonitor/internal/logger"
	"posturemonitor/internal/models"
	"posturemonitor/internal/repository"
)

// SnapshotJob is one frame waiting to be written.
type SnapshotJob struct {
	Name  string
	Side  models.Side
	Time  time.Time
	Frame []byte
}

// SnapshotService queues snapshot frames and writes them to the output
// directory from a background worker, indexing each file when a repository
// is available.
type SnapshotService struct {
	imagesDir    string
	queue        chan SnapshotJob
	logger       *logger.Logger
	snapshotRepo repository.SnapshotRepository
}

// NewSnapshotService creates a SnapshotService. snapshotRepo may be nil.
func NewSnapshotService(config *config.Config, logger *logger.Logger, snapshotRepo repository.SnapshotRepository) *SnapshotService {
	size := config.SnapshotQueue
	if size <= 0 {
		size = 1
	}
	return &SnapshotService{
		imagesDir:    config.OutputDirectory,
		queue:        make(chan SnapshotJob, size),
		logger:       logger,
		snapshotRepo: snapshotRepo,
	}
}

// RequestSnapshot queues a frame for writing. Empty frames are ignored and a
// full queue drops the request.
func (s *SnapshotService) RequestSnapshot(name string, side models.Side, at time.Time, frame []byte) {
	if len(frame) == 0 {
		return
	}

	select {
	case s.queue <- SnapshotJob{Name: name, Side: side, Time: at, Frame: frame}:
	default:
		s.logger.Warning("Snapshot queue full, dropping %s", name)
	}
}

// Run writes queued snapshots until ctx is cancelled, then drains the queue.
func (s *SnapshotService) Run(ctx context.Context) {
	for {
		select {
		case job := <-s.queue:
			s.write(job)
		case <-ctx.Done():
			for {
				select {
				case job := <-s.queue:
					s.write(job)
				default:
					return
				}
			}
		}
	}
}

func (s *SnapshotService) write(job SnapshotJob) {
	if err := s.Save(job); err != nil {
		s.logger.Error("Error saving snapshot %s: %v", job.Name, err)
	}
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." && filepath.Base(name) == name
}

// Save writes job to disk and records it in the snapshot index.
func (s *SnapshotService) Save(job SnapshotJob) error {
	if !validName(job.Name) {
		return fmt.Errorf("invalid snapshot name %q", job.Name)
	}
	if err := os.MkdirAll(s.imagesDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	fullpath := filepath.Join(s.imagesDir, job.Name)
	if err := os.WriteFile(fullpath, job.Frame, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", fullpath, err)
	}

	if s.snapshotRepo != nil {
		// A repeated name only refreshes the file.
		existing, err := s.snapshotRepo.GetByFilename(job.Name)
		if err != nil {
			return err
		}
		if existing == nil {
			if _, err := s.snapshotRepo.Insert(&models.Snapshot{
				Filename:  job.Name,
				Side:      job.Side,
				Timestamp: job.Time,
				FilePath:  fullpath,
				FileSize:  int64(len(job.Frame)),
			}); err != nil {
				return err
			}
		}
	}

	s.logger.Info("Saved snapshot %s (%d bytes)", job.Name, len(job.Frame))
	return nil
}

// Delete removes a snapshot file and its index entry. A missing file is not
// an error.
func (s *SnapshotService) Delete(name string) error {
	if !validName(name) {
		return fmt.Errorf("invalid snapshot name %q", name)
	}

	fullpath := filepath.Join(s.imagesDir, name)
	if err := os.Remove(fullpath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", fullpath, err)
	}

	if s.snapshotRepo != nil {
		if err := s.snapshotRepo.DeleteByFilename(name); err != nil {
			return err
		}
	}

	s.logger.Info("Deleted snapshot %s", name)
	return nil
}

// Dir returns the directory snapshots are written to.
func (s *SnapshotService) Dir() string {
	return s.imagesDir
}
