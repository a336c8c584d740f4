package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"posturemonitor/internal/config"
	"posturemonitor/internal/logger"
	"posturemonitor/internal/middleware"
	"posturemonitor/internal/models"
	"posturemonitor/internal/repository"
	"posturemonitor/internal/repository/csvlog"
	"posturemonitor/internal/repository/sqlite"
	"posturemonitor/internal/routes"
	"posturemonitor/internal/service"
	"posturemonitor/internal/service/capture"
	"posturemonitor/internal/service/engine"
	"posturemonitor/internal/service/pose"
	"posturemonitor/internal/service/storage"
	"posturemonitor/internal/service/websocket"
)

const (
	shutdownTimeout = 5 * time.Second
	poseTimeout     = 5 * time.Second
)

type App struct {
	config          *config.Config
	logger          *logger.Logger
	db              *sqlite.DB
	store           repository.LogStore
	snapshotService *storage.SnapshotService
	hubService      *websocket.HubService
	engine          *engine.Engine
	manager         *service.Manager
	sessions        *middleware.Sessions
	loop            *capture.Loop
}

// NewApp opens the stores and wires the services described by cfg. source
// feeds the capture loop; when nil and CAMERA_UDP_PORT is set, a UDP listener
// is opened instead.
func NewApp(cfg *config.Config, logger *logger.Logger, source capture.FrameSource) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	var store repository.LogStore
	switch cfg.LogBackend {
	case config.BackendSQLite:
		store = sqlite.NewLogRepository(db)
	default:
		csvStore, err := csvlog.New(cfg.OutputDirectory, cfg.LogFileName)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to open log: %w", err)
		}
		store = csvStore
	}

	snapshotRepo := sqlite.NewSnapshotRepository(db)
	snapshotService := storage.NewSnapshotService(cfg, logger, snapshotRepo)
	hub := websocket.NewHubService(logger)

	eng := engine.New(store, snapshotService, cfg.Interval(),
		engine.WithLogger(logger),
		engine.WithListener(hub.Publish),
		engine.WithListener(func(ev models.Event) {
			logger.Info("Logged %s %s at %d deg (%s), frequency %d",
				ev.Action, ev.Row.Side, ev.Row.HipAngle, ev.Row.AngleRange, ev.Row.Frequency)
		}),
	)

	a := &App{
		config:          cfg,
		logger:          logger,
		db:              db,
		store:           store,
		snapshotService: snapshotService,
		hubService:      hub,
		engine:          eng,
		manager:         service.NewManager(eng, store, snapshotService, snapshotRepo, hub, logger),
		sessions:        middleware.NewSessions(cfg.Password),
	}

	if source == nil && cfg.CameraUDPPort > 0 {
		udp, err := capture.ListenUDP(fmt.Sprintf(":%d", cfg.CameraUDPPort))
		if err != nil {
			db.Close()
			return nil, err
		}
		source = udp
	}
	if source != nil {
		detector := pose.NewRemoteDetector(cfg.PoseURL, poseTimeout)
		a.loop = capture.NewLoop(source, detector, eng, logger, nil)
	}

	return a, nil
}

// Handler returns the HTTP surface of the app.
func (a *App) Handler() http.Handler {
	return routes.SetupRoutes(a.manager, a.config, a.logger, a.sessions)
}

// Run serves HTTP and runs the background services until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.snapshotService.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		a.hubService.Run(ctx)
	}()

	if a.loop != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.loop.Run(ctx); err != nil {
				a.logger.Error("Capture stopped: %v", err)
			}
		}()
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.config.Port),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	a.logger.Info("Posture monitor listening on http://localhost:%d", a.config.Port)
	a.logger.Info("Log: %s backend in %s, every %s", a.config.LogBackend, a.config.OutputDirectory, a.config.Interval())

	var err error
	select {
	case <-ctx.Done():
	case err = <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		a.logger.Warning("HTTP shutdown: %v", shutdownErr)
	}

	cancel()
	wg.Wait()
	a.logger.Info("Posture monitor stopped")
	return err
}

// Close releases the database.
func (a *App) Close() error {
	return a.db.Close()
}
