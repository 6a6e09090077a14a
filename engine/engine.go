// Package engine wires the Store, blob and OCR collaborators, and the
// Dispatcher into a single process, and exposes the thin submission API
// an embedding binary or HTTP router calls: SubmitDocument, SubmitBatch,
// CreateJob, and the Get*/List* readers.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/docflow/docflow/blob"
	"github.com/docflow/docflow/config"
	"github.com/docflow/docflow/dispatcher"
	"github.com/docflow/docflow/model"
	"github.com/docflow/docflow/ocr"
	"github.com/docflow/docflow/store"
	"github.com/docflow/docflow/worker"
)

// Engine owns every collaborator a running docflow process needs and
// sequences their startup and shutdown.
type Engine struct {
	cfg        *config.Config
	store      *store.Store
	blobs      blob.Store
	dispatcher *dispatcher.Dispatcher
	log        *slog.Logger
}

// New constructs an Engine's collaborators from cfg without starting
// anything. cfg is validated in place; call Validate first if the caller
// wants to surface validation errors separately from construction ones.
func New(ctx context.Context, cfg *config.Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := slog.Default()

	tmpDir := filepath.Join(cfg.DataDir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("engine: creating temp dir %s: %w", tmpDir, err)
	}

	s, err := store.Open(ctx, store.Options{
		Path:            filepath.Join(cfg.DataDir, "service.db"),
		OrphanThreshold: cfg.OrphanThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("engine: opening store: %w", err)
	}

	blobs, err := blob.NewS3Store(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3Endpoint)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("engine: constructing blob store: %w", err)
	}

	ocrProvider, err := ocr.NewGeminiProvider(ctx, cfg.GeminiAPIKey, ocr.WithModel(cfg.GeminiModel))
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("engine: constructing OCR provider: %w", err)
	}

	handler := worker.New(s, blobs, ocrProvider, worker.Config{
		TempDir:            tmpDir,
		LargeFileThreshold: cfg.LargeFileThreshold,
		Log:                log,
	})

	d := dispatcher.New(s, handler, dispatcher.Config{
		WorkerCount:               cfg.WorkerCount,
		DispatchInterval:          cfg.DispatchInterval,
		CleanupInterval:           cfg.CleanupInterval,
		ArchiveInterval:           cfg.ArchiveInterval,
		WorkerStartStagger:        cfg.WorkerStartStagger,
		GracefulShutdownPerWorker: cfg.GracefulShutdownPerWorker,
		Log:                       log,
	})

	return &Engine{cfg: cfg, store: s, blobs: blobs, dispatcher: d, log: log}, nil
}

// newWithCollaborators builds an Engine around already-constructed
// collaborators, skipping the real S3/Gemini construction New performs.
// Used by tests to inject fakes the way blob.NewS3StoreFromClient and
// ocr's test constructor do for their own packages.
func newWithCollaborators(cfg *config.Config, s *store.Store, blobs blob.Store, provider ocr.Provider, tmpDir string) *Engine {
	log := slog.Default()
	handler := worker.New(s, blobs, provider, worker.Config{
		TempDir:            tmpDir,
		LargeFileThreshold: cfg.LargeFileThreshold,
		Log:                log,
	})
	d := dispatcher.New(s, handler, dispatcher.Config{
		WorkerCount:               cfg.WorkerCount,
		DispatchInterval:          cfg.DispatchInterval,
		CleanupInterval:           cfg.CleanupInterval,
		ArchiveInterval:           cfg.ArchiveInterval,
		WorkerStartStagger:        cfg.WorkerStartStagger,
		GracefulShutdownPerWorker: cfg.GracefulShutdownPerWorker,
		Log:                       log,
	})
	return &Engine{cfg: cfg, store: s, blobs: blobs, dispatcher: d, log: log}
}

// Run starts the Dispatcher. It returns once the pool and ticks have
// launched; it does not block for the lifetime of ctx.
func (e *Engine) Run(ctx context.Context) error {
	return e.dispatcher.Start(ctx)
}

// Shutdown stops the Dispatcher and closes the store. It is safe to call
// once after Run.
func (e *Engine) Shutdown(ctx context.Context) error {
	if err := e.dispatcher.Stop(); err != nil {
		return fmt.Errorf("engine: stopping dispatcher: %w", err)
	}
	if err := e.store.Close(); err != nil {
		return fmt.Errorf("engine: closing store: %w", err)
	}
	return nil
}

// SubmitDocumentParams is the input to SubmitDocument.
type SubmitDocumentParams struct {
	FileName string
	MimeType string
	FileSize int64
	BlobKey  string

	RetentionDays int
	UserId        string
	ApiKey        string
	BatchId       *string
	Metadata      map[string]any
}

// SubmitDocument registers a document already uploaded to BlobKey and
// enqueues its convert job.
func (e *Engine) SubmitDocument(ctx context.Context, p SubmitDocumentParams) (*model.Document, *model.Job, error) {
	doc, err := e.store.CreateDocument(ctx, store.CreateDocumentParams{
		FileName:      p.FileName,
		MimeType:      p.MimeType,
		FileSize:      p.FileSize,
		BlobKey:       p.BlobKey,
		RetentionDays: p.RetentionDays,
		UserId:        p.UserId,
		ApiKey:        p.ApiKey,
		BatchId:       p.BatchId,
		Metadata:      p.Metadata,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("engine: submitting document: %w", err)
	}
	job, err := e.CreateJob(ctx, doc.Id, model.JobConvert)
	if err != nil {
		return doc, nil, err
	}
	return doc, job, nil
}

// SubmitBatchParams is the input to SubmitBatch.
type SubmitBatchParams struct {
	UserId    string
	ApiKey    string
	Priority  int
	Metadata  map[string]any
	Documents []SubmitDocumentParams
}

// SubmitBatch creates a batch and every one of its child documents, each
// with its own convert job.
func (e *Engine) SubmitBatch(ctx context.Context, p SubmitBatchParams) (*model.Batch, []*model.Document, error) {
	batch, err := e.store.CreateBatch(ctx, store.CreateBatchParams{
		UserId:         p.UserId,
		ApiKey:         p.ApiKey,
		TotalDocuments: len(p.Documents),
		Priority:       p.Priority,
		Metadata:       p.Metadata,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("engine: submitting batch: %w", err)
	}

	docs := make([]*model.Document, 0, len(p.Documents))
	for _, dp := range p.Documents {
		dp.BatchId = &batch.Id
		dp.UserId = p.UserId
		dp.ApiKey = p.ApiKey
		doc, _, err := e.SubmitDocument(ctx, dp)
		if err != nil {
			return batch, docs, err
		}
		docs = append(docs, doc)
	}
	return batch, docs, nil
}

// CreateJob enqueues a job of the given type against an existing document,
// using the configured default MaxAttempts.
func (e *Engine) CreateJob(ctx context.Context, documentId string, jobType model.JobType) (*model.Job, error) {
	job, err := e.store.CreateJob(ctx, store.CreateJobParams{
		DocumentId:  documentId,
		Type:        jobType,
		MaxAttempts: e.cfg.MaxAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("engine: creating job: %w", err)
	}
	return job, nil
}

// GetDocument reads a single document by id.
func (e *Engine) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	return e.store.GetDocument(ctx, id)
}

// GetBatch reads a single batch by id.
func (e *Engine) GetBatch(ctx context.Context, id string) (*model.Batch, error) {
	return e.store.GetBatch(ctx, id)
}

// GetBatchDocuments lists every document belonging to a batch.
func (e *Engine) GetBatchDocuments(ctx context.Context, batchId string) ([]*model.Document, error) {
	return e.store.GetBatchDocuments(ctx, batchId)
}

// ListBatches lists a user's batches, most recent first.
func (e *Engine) ListBatches(ctx context.Context, userId string, limit, offset int) ([]*model.Batch, error) {
	return e.store.ListBatches(ctx, userId, limit, offset)
}

// GetJob reads a single job by id.
func (e *Engine) GetJob(ctx context.Context, id string) (*model.Job, error) {
	return e.store.GetJob(ctx, id)
}
