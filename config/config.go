// Package config holds the recognized configuration for an embedding
// binary: pool sizing, tick intervals, retention and shutdown timeouts,
// plus S3 and Gemini collaborator credentials.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/docflow/docflow/dispatcher"
	"github.com/docflow/docflow/worker"
)

// Config holds all configuration accepted by engine.New. Zero-valued
// fields are filled with their documented defaults by Validate.
type Config struct {
	DataDir string

	WorkerCount               int
	DispatchInterval          time.Duration
	CleanupInterval           time.Duration
	ArchiveInterval           time.Duration
	OrphanThreshold           time.Duration
	MaxAttempts               int
	LargeFileThreshold        int64
	GracefulShutdownPerWorker time.Duration
	WorkerStartStagger        time.Duration

	S3Bucket   string
	S3Region   string
	S3Endpoint string

	GeminiAPIKey string
	GeminiModel  string
}

// Validate fills unset fields with their defaults and rejects a
// configuration that cannot start a Dispatcher or collaborators.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = dispatcher.DefaultWorkerCount
	}
	if c.DispatchInterval <= 0 {
		c.DispatchInterval = dispatcher.DefaultDispatchInterval
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = dispatcher.DefaultCleanupInterval
	}
	if c.ArchiveInterval <= 0 {
		c.ArchiveInterval = dispatcher.DefaultArchiveInterval
	}
	if c.OrphanThreshold <= 0 {
		c.OrphanThreshold = 5 * time.Minute
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.LargeFileThreshold <= 0 {
		c.LargeFileThreshold = worker.DefaultLargeFileThreshold
	}
	if c.GracefulShutdownPerWorker <= 0 {
		c.GracefulShutdownPerWorker = dispatcher.DefaultGracefulShutdownPerWorker
	}
	if c.WorkerStartStagger <= 0 {
		c.WorkerStartStagger = dispatcher.DefaultWorkerStartStagger
	}

	if c.S3Bucket == "" {
		return fmt.Errorf("config: s3 bucket is required")
	}
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("config: gemini api key is required")
	}
	if c.GeminiModel == "" {
		c.GeminiModel = "gemini-2.0-flash"
	}
	return nil
}

// FromEnv reads DOCFLOW_* environment variables into a Config. Unset
// variables leave the corresponding field zero-valued for Validate to
// default.
func FromEnv() (*Config, error) {
	c := &Config{
		DataDir:      os.Getenv("DOCFLOW_DATA_DIR"),
		S3Bucket:     os.Getenv("DOCFLOW_S3_BUCKET"),
		S3Region:     os.Getenv("DOCFLOW_S3_REGION"),
		S3Endpoint:   os.Getenv("DOCFLOW_S3_ENDPOINT"),
		GeminiAPIKey: os.Getenv("DOCFLOW_GEMINI_API_KEY"),
		GeminiModel:  os.Getenv("DOCFLOW_GEMINI_MODEL"),
	}

	var err error
	if c.WorkerCount, err = envInt("DOCFLOW_WORKER_COUNT", 0); err != nil {
		return nil, err
	}
	if c.MaxAttempts, err = envInt("DOCFLOW_MAX_ATTEMPTS", 0); err != nil {
		return nil, err
	}
	if c.LargeFileThreshold, err = envInt64("DOCFLOW_LARGE_FILE_THRESHOLD", 0); err != nil {
		return nil, err
	}
	if c.DispatchInterval, err = envDuration("DOCFLOW_DISPATCH_INTERVAL", 0); err != nil {
		return nil, err
	}
	if c.CleanupInterval, err = envDuration("DOCFLOW_CLEANUP_INTERVAL", 0); err != nil {
		return nil, err
	}
	if c.ArchiveInterval, err = envDuration("DOCFLOW_ARCHIVE_INTERVAL", 0); err != nil {
		return nil, err
	}
	if c.OrphanThreshold, err = envDuration("DOCFLOW_ORPHAN_THRESHOLD", 0); err != nil {
		return nil, err
	}
	if c.GracefulShutdownPerWorker, err = envDuration("DOCFLOW_GRACEFUL_SHUTDOWN_PER_WORKER", 0); err != nil {
		return nil, err
	}
	if c.WorkerStartStagger, err = envDuration("DOCFLOW_WORKER_START_STAGGER", 0); err != nil {
		return nil, err
	}
	return c, nil
}

func envInt(name string, def int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", name, err)
	}
	return n, nil
}

func envInt64(name string, def int64) (int64, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", name, err)
	}
	return n, nil
}

func envDuration(name string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", name, err)
	}
	return d, nil
}
