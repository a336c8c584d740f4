// Package service coordinates the engine with the stores and viewers that
// serve the HTTP surface.
package service

import (
	"errors"
	"fmt"

	"posturemonitor/internal/logger"
	"posturemonitor/internal/models"
	"posturemonitor/internal/repository"
	"posturemonitor/internal/service/engine"
	"posturemonitor/internal/service/pose"
	"posturemonitor/internal/service/report"
	"posturemonitor/internal/service/storage"
	"posturemonitor/internal/service/websocket"
)

// ErrNoSnapshotIndex is returned when snapshot queries are made without a
// snapshot repository.
var ErrNoSnapshotIndex = errors.New("snapshot index not configured")

type Manager struct {
	engine          *engine.Engine
	store           repository.LogStore
	snapshotService *storage.SnapshotService
	snapshotRepo    repository.SnapshotRepository
	hubService      *websocket.HubService
	logger          *logger.Logger
}

// NewManager wires the services together. snapshotService and snapshotRepo
// may be nil.
func NewManager(engine *engine.Engine, store repository.LogStore, snapshotService *storage.SnapshotService,
	snapshotRepo repository.SnapshotRepository, hubService *websocket.HubService, logger *logger.Logger) *Manager {
	return &Manager{
		engine:          engine,
		store:           store,
		snapshotService: snapshotService,
		snapshotRepo:    snapshotRepo,
		hubService:      hubService,
		logger:          logger,
	}
}

// HandleSample feeds joints measured for side into the engine.
func (m *Manager) HandleSample(side models.Side, joints *models.Joints, frame []byte) (*models.AngleSample, error) {
	sample, err := m.engine.OnSample(side, joints, frame)
	if err != nil {
		m.logger.Error("Error logging %s sample: %v", side, err)
	}
	return sample, err
}

// HandleLandmarks feeds a detection for a frame of the given size into the
// engine.
func (m *Manager) HandleLandmarks(landmarks *pose.Landmarks, width, height int, frame []byte) (*models.AngleSample, error) {
	sample, err := m.engine.OnFrame(landmarks, width, height, frame)
	if err != nil {
		m.logger.Error("Error logging frame sample: %v", err)
	}
	return sample, err
}

// Rows returns the whole log.
func (m *Manager) Rows() ([]models.LogRow, error) {
	rows, err := m.store.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}
	return rows, nil
}

// Summary aggregates the whole log.
func (m *Manager) Summary() (report.Summary, error) {
	rows, err := m.Rows()
	if err != nil {
		return report.Summary{}, err
	}
	return report.Summarize(rows), nil
}

// Snapshots lists indexed snapshots matching filter.
func (m *Manager) Snapshots(filter *models.SnapshotFilter) ([]models.Snapshot, *models.SnapshotStats, error) {
	if m.snapshotRepo == nil {
		return nil, nil, ErrNoSnapshotIndex
	}
	snapshots, err := m.snapshotRepo.GetAll(filter)
	if err != nil {
		return nil, nil, err
	}
	stats, err := m.snapshotRepo.GetStats()
	if err != nil {
		return nil, nil, err
	}
	return snapshots, stats, nil
}

// DeleteSnapshot removes a snapshot from disk and from the index.
func (m *Manager) DeleteSnapshot(filename string) error {
	if m.snapshotService == nil {
		return ErrNoSnapshotIndex
	}
	return m.snapshotService.Delete(filename)
}

func (m *Manager) GetEngine() *engine.Engine {
	return m.engine
}

func (m *Manager) GetSnapshotService() *storage.SnapshotService {
	return m.snapshotService
}

func (m *Manager) GetWebsocketService() *websocket.HubService {
	return m.hubService
}
