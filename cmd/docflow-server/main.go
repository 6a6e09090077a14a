// Command docflow-server is a thin cobra wrapper around engine.Engine: it
// builds a config.Config from flags and DOCFLOW_* environment variables,
// runs the engine until an interrupt, and drains it on shutdown.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/docflow/docflow/config"
	"github.com/docflow/docflow/engine"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "docflow-server",
	Short: "Runs the document-to-Markdown conversion service",
	RunE:  runServer,
}

func init() {
	flags := rootCmd.Flags()
	flags.String("data-dir", "./data", "local store + temp directory root")
	flags.Int("worker-count", 0, "size of the worker pool (0 uses the default)")
	flags.Duration("dispatch-interval", 0, "queue-check tick interval")
	flags.Duration("cleanup-interval", 0, "orphan-sweep tick interval")
	flags.Duration("archive-interval", 0, "retention-archive tick interval")
	flags.Duration("orphan-threshold", 0, "stuck-in-processing cutoff")
	flags.Int("max-attempts", 0, "per-job retry upper bound")
	flags.Int64("large-file-threshold", 0, "blob size above which convert jobs stream via temp file")
	flags.Duration("graceful-shutdown-per-worker", 0, "shutdown drain budget for the worker pool")
	flags.Duration("worker-start-stagger", 0, "delay between staggered worker starts")
	flags.String("s3-bucket", "", "S3 bucket backing the blob store (required)")
	flags.String("s3-region", "", "S3 region")
	flags.String("s3-endpoint", "", "S3-compatible endpoint override")
	flags.String("gemini-api-key", "", "Gemini API key (required)")
	flags.String("gemini-model", "", "Gemini model name")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e, err := engine.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("constructing engine: %w", err)
	}

	if err := e.Run(ctx); err != nil {
		return fmt.Errorf("starting engine: %w", err)
	}
	fmt.Println("docflow-server running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	fmt.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down engine: %w", err)
	}
	fmt.Println("shutdown complete")
	return nil
}

// applyFlagOverrides layers explicitly-set flags on top of the
// environment-derived config, so DOCFLOW_* variables remain the default
// and flags are the override an operator reaches for at the command line.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("data-dir") {
		cfg.DataDir, _ = flags.GetString("data-dir")
	}
	if flags.Changed("worker-count") {
		cfg.WorkerCount, _ = flags.GetInt("worker-count")
	}
	if flags.Changed("dispatch-interval") {
		cfg.DispatchInterval, _ = flags.GetDuration("dispatch-interval")
	}
	if flags.Changed("cleanup-interval") {
		cfg.CleanupInterval, _ = flags.GetDuration("cleanup-interval")
	}
	if flags.Changed("archive-interval") {
		cfg.ArchiveInterval, _ = flags.GetDuration("archive-interval")
	}
	if flags.Changed("orphan-threshold") {
		cfg.OrphanThreshold, _ = flags.GetDuration("orphan-threshold")
	}
	if flags.Changed("max-attempts") {
		cfg.MaxAttempts, _ = flags.GetInt("max-attempts")
	}
	if flags.Changed("large-file-threshold") {
		cfg.LargeFileThreshold, _ = flags.GetInt64("large-file-threshold")
	}
	if flags.Changed("graceful-shutdown-per-worker") {
		cfg.GracefulShutdownPerWorker, _ = flags.GetDuration("graceful-shutdown-per-worker")
	}
	if flags.Changed("worker-start-stagger") {
		cfg.WorkerStartStagger, _ = flags.GetDuration("worker-start-stagger")
	}
	if flags.Changed("s3-bucket") {
		cfg.S3Bucket, _ = flags.GetString("s3-bucket")
	}
	if flags.Changed("s3-region") {
		cfg.S3Region, _ = flags.GetString("s3-region")
	}
	if flags.Changed("s3-endpoint") {
		cfg.S3Endpoint, _ = flags.GetString("s3-endpoint")
	}
	if flags.Changed("gemini-api-key") {
		cfg.GeminiAPIKey, _ = flags.GetString("gemini-api-key")
	}
	if flags.Changed("gemini-model") {
		cfg.GeminiModel, _ = flags.GetString("gemini-model")
	}
}
