// Package dispatcher is the process-wide supervisor: it owns the worker
// pool and the periodic dispatch, cleanup and archive ticks, and
// sequences their startup and graceful shutdown.
package dispatcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/docflow/docflow/internal"
	"github.com/docflow/docflow/model"
	"github.com/docflow/docflow/store"
	"github.com/docflow/docflow/worker"
)

const (
	DefaultWorkerCount               = 2
	DefaultDispatchInterval          = 5 * time.Second
	DefaultCleanupInterval           = 60 * time.Second
	DefaultArchiveInterval           = time.Hour
	DefaultWorkerStartStagger        = 100 * time.Millisecond
	DefaultGracefulShutdownPerWorker = 5 * time.Second
)

// Config configures a Dispatcher. Zero values fall back to the defaults
// above.
type Config struct {
	WorkerCount               int
	DispatchInterval          time.Duration
	CleanupInterval           time.Duration
	ArchiveInterval           time.Duration
	WorkerStartStagger        time.Duration
	GracefulShutdownPerWorker time.Duration
	Log                       *slog.Logger
}

func (c *Config) setDefaults() {
	if c.WorkerCount <= 0 {
		c.WorkerCount = DefaultWorkerCount
	}
	if c.DispatchInterval <= 0 {
		c.DispatchInterval = DefaultDispatchInterval
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = DefaultCleanupInterval
	}
	if c.ArchiveInterval <= 0 {
		c.ArchiveInterval = DefaultArchiveInterval
	}
	if c.WorkerStartStagger <= 0 {
		c.WorkerStartStagger = DefaultWorkerStartStagger
	}
	if c.GracefulShutdownPerWorker <= 0 {
		c.GracefulShutdownPerWorker = DefaultGracefulShutdownPerWorker
	}
	if c.Log == nil {
		c.Log = slog.Default()
	}
}

// Dispatcher runs a fixed-size worker pool against the queue, waking it
// whenever an eligible job might exist and sweeping orphaned jobs and
// retention-expired documents on their own schedules.
type Dispatcher struct {
	internal.Lifecycle

	store    *store.Store
	handler  *worker.Worker
	cfg      Config
	id       string
	pool     *internal.WorkerPool[*model.Job]
	dispatch internal.TimerTask
	cleanup  internal.TimerTask
	archive  internal.TimerTask
}

// New builds a Dispatcher around a Store and the Worker that will
// process every claimed job.
func New(s *store.Store, handler *worker.Worker, cfg Config) *Dispatcher {
	cfg.setDefaults()
	return &Dispatcher{
		store:   s,
		handler: handler,
		cfg:     cfg,
		id:      uuid.NewString(),
	}
}

// Start launches the worker pool, staggering each worker's join by
// WorkerStartStagger, then begins the dispatch, cleanup and archive
// ticks. The dispatch tick runs once immediately, per TimerTask.
func (d *Dispatcher) Start(ctx context.Context) error {
	if err := d.TryStart(); err != nil {
		return err
	}
	d.pool = internal.NewWorkerPool[*model.Job](d.cfg.WorkerCount, d.cfg.WorkerCount, d.cfg.Log)
	d.pool.Start(ctx, d.handler.Handle, d.cfg.WorkerStartStagger)
	d.dispatch.Start(ctx, d.runDispatch, d.cfg.DispatchInterval)
	d.cleanup.Start(ctx, d.runCleanup, d.cfg.CleanupInterval)
	d.archive.Start(ctx, d.runArchive, d.cfg.ArchiveInterval)
	return nil
}

// runDispatch drains the eligible-job backlog into the pool. Each tick is
// level-triggered: it claims and pushes jobs until none remain or the
// pool rejects a push, so a missed or coalesced tick is harmless — the
// next one retries.
func (d *Dispatcher) runDispatch(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		job, err := d.store.ClaimNextJob(ctx, d.id)
		if err != nil {
			d.cfg.Log.Error("claiming next job failed", "err", err)
			return
		}
		if job == nil {
			return
		}
		if !d.pool.Push(job) {
			return
		}
	}
}

func (d *Dispatcher) runCleanup(ctx context.Context) {
	n, err := d.store.CleanupOrphanedJobs(ctx)
	if err != nil {
		d.cfg.Log.Error("cleaning up orphaned jobs failed", "err", err)
		return
	}
	if n > 0 {
		d.cfg.Log.Info("recovered orphaned jobs", "count", n)
	}
}

func (d *Dispatcher) runArchive(ctx context.Context) {
	n, err := d.store.ArchiveOldDocuments(ctx)
	if err != nil {
		d.cfg.Log.Error("archiving retention-expired documents failed", "err", err)
		return
	}
	if n > 0 {
		d.cfg.Log.Info("archived retention-expired documents", "count", n)
	}
}

// Stop drains in-flight work: every tick is canceled, then the call
// waits up to GracefulShutdownPerWorker for the pool (all workers run
// concurrently, so this single timeout budgets the whole pool's drain,
// not a per-worker multiple of it) and the ticks to finish.
func (d *Dispatcher) Stop() error {
	return d.TryStop(d.cfg.GracefulShutdownPerWorker, d.doStop)
}

func (d *Dispatcher) doStop() internal.DoneChan {
	ticks := internal.Combine(d.dispatch.Stop(), internal.Combine(d.cleanup.Stop(), d.archive.Stop()))
	pool := d.pool.Stop()
	return internal.Combine(ticks, pool)
}
