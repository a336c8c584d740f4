package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             int
	OutputDirectory  string // Log file and snapshot images
	LogFileName      string
	SnapshotInterval int    // Seconds between logged samples
	LogBackend       string // "csv" or "sqlite"
	DatabasePath     string
	LogDirectory     string
	CameraIndex      int // -1 disables the capture loop
	CameraUDPPort    int // 0 disables the network camera listener
	PoseURL          string
	SnapshotQueue    int
	Password         string // Empty disables authentication
	ChartAssetsHost  string // Empty uses the echarts default CDN
}

const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
)

// Load reads the configuration from the environment. Values from a .env file
// in the working directory are applied first without overriding real
// environment variables.
func Load() *Config {
	_ = godotenv.Load()

	outputDir := getEnv("OUTPUT_DIR", filepath.Join(".", "snapshots"))

	return &Config{
		Port:             getEnvAsInt("PORT", 8080),
		OutputDirectory:  outputDir,
		LogFileName:      getEnv("LOG_FILE", "hip_angle_log.csv"),
		SnapshotInterval: getEnvAsInt("SNAPSHOT_INTERVAL", 10),
		LogBackend:       getEnv("LOG_BACKEND", BackendCSV),
		DatabasePath:     getEnv("DB_PATH", filepath.Join(outputDir, "posture.db")),
		LogDirectory:     getEnv("LOG_DIR", filepath.Join(".", "logs")),
		CameraIndex:      getEnvAsInt("CAMERA_INDEX", -1),
		CameraUDPPort:    getEnvAsInt("CAMERA_UDP_PORT", 0),
		PoseURL:          getEnv("POSE_URL", ""),
		SnapshotQueue:    getEnvAsInt("SNAPSHOT_QUEUE", 32),
		Password:         getEnv("PASSWORD", ""),
		ChartAssetsHost:  getEnv("CHART_ASSETS_HOST", ""),
	}
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.SnapshotInterval <= 0 {
		errs = append(errs, fmt.Errorf("SNAPSHOT_INTERVAL must be positive, got %d", c.SnapshotInterval))
	}
	if c.OutputDirectory == "" {
		errs = append(errs, errors.New("OUTPUT_DIR must not be empty"))
	}
	if c.LogBackend != BackendCSV && c.LogBackend != BackendSQLite {
		errs = append(errs, fmt.Errorf("LOG_BACKEND must be %q or %q, got %q", BackendCSV, BackendSQLite, c.LogBackend))
	}
	if c.SnapshotQueue <= 0 {
		errs = append(errs, fmt.Errorf("SNAPSHOT_QUEUE must be positive, got %d", c.SnapshotQueue))
	}
	if c.CameraIndex >= 0 && c.CameraUDPPort > 0 {
		errs = append(errs, errors.New("CAMERA_INDEX and CAMERA_UDP_PORT are mutually exclusive"))
	}
	if c.CaptureEnabled() && c.PoseURL == "" {
		errs = append(errs, errors.New("POSE_URL is required when a camera is configured"))
	}
	return errors.Join(errs...)
}

// CaptureEnabled reports whether a local or network camera is configured.
func (c *Config) CaptureEnabled() bool {
	return c.CameraIndex >= 0 || c.CameraUDPPort > 0
}

// Interval returns SnapshotInterval as a duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.SnapshotInterval) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
