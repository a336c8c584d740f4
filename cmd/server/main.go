package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"posturemonitor/internal/app"
	"posturemonitor/internal/config"
	"posturemonitor/internal/logger"
	"posturemonitor/internal/service/capture"
	"posturemonitor/internal/service/capture/camera"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}

func run() error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	appLogger, err := logger.NewLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer appLogger.Close()

	var source capture.FrameSource
	if cfg.CameraIndex >= 0 {
		cam, err := camera.Open(cfg.CameraIndex)
		if err != nil {
			return err
		}
		source = cam
	}

	application, err := app.NewApp(cfg, appLogger, source)
	if err != nil {
		if source != nil {
			source.Close()
		}
		return err
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return application.Run(ctx)
}
