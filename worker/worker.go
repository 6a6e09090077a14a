// Package worker implements the per-job execution logic dispatched by the
// dispatcher's worker pool: converting a document's source bytes to
// Markdown, and archiving a completed document's blob. Each call to
// Handle owns exactly one job from claim to terminal outcome.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/docflow/docflow/blob"
	"github.com/docflow/docflow/model"
	"github.com/docflow/docflow/ocr"
	"github.com/docflow/docflow/store"
)

const (
	// DefaultLargeFileThreshold is the blob size above which a convert
	// job streams to a local temp file instead of fetching into memory.
	DefaultLargeFileThreshold int64 = 10 * 1024 * 1024

	defaultMarginRatePct = 30
	costCentsPerPage     = 1.0
	marginMultiplier     = 1.30
)

// Config configures a Worker.
type Config struct {
	// TempDir holds scratch files for large-file streaming. It must
	// already exist.
	TempDir string

	// LargeFileThreshold overrides DefaultLargeFileThreshold.
	LargeFileThreshold int64

	Log *slog.Logger
}

// Worker converts and archives documents on behalf of claimed jobs.
type Worker struct {
	store              *store.Store
	blobs              blob.Store
	ocr                ocr.Provider
	tempDir            string
	largeFileThreshold int64
	log                *slog.Logger
}

// New builds a Worker around its collaborators.
func New(s *store.Store, blobs blob.Store, provider ocr.Provider, cfg Config) *Worker {
	threshold := cfg.LargeFileThreshold
	if threshold <= 0 {
		threshold = DefaultLargeFileThreshold
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	return &Worker{
		store:              s,
		blobs:              blobs,
		ocr:                provider,
		tempDir:            cfg.TempDir,
		largeFileThreshold: threshold,
		log:                log,
	}
}

// Handle dispatches job to its type-specific handler and routes any
// resulting error to the job's own failJob bookkeeping (a convert job whose
// document no longer exists is instead failed terminally by handleConvert
// itself). A panic inside a
// handler is recovered and converted into a generic job failure so it
// cannot take down the pool goroutine running it.
func (w *Worker) Handle(ctx context.Context, job *model.Job) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("job handler panic recovered", "job_id", job.Id, "panic", r)
			if err := w.store.FailJob(ctx, job.Id, "internal error"); err != nil {
				w.log.Error("cannot record panicked job failure", "job_id", job.Id, "err", err)
			}
		}
	}()

	var err error
	switch job.Type {
	case model.JobConvert:
		err = w.handleConvert(ctx, job)
	case model.JobArchive:
		err = w.handleArchive(ctx, job)
	default:
		err = fmt.Errorf("unknown job type %q", job.Type.String())
	}
	if err == nil {
		return
	}
	w.log.Warn("job failed", "job_id", job.Id, "type", job.Type.String(), "err", err)
	if failErr := w.store.FailJob(ctx, job.Id, err.Error()); failErr != nil {
		w.log.Error("cannot fail job", "job_id", job.Id, "err", failErr)
	}
}

func (w *Worker) handleConvert(ctx context.Context, job *model.Job) error {
	doc, err := w.store.GetDocument(ctx, job.DocumentId)
	if err != nil {
		err = fmt.Errorf("loading document %s: %w", job.DocumentId, err)
		if errors.Is(err, store.ErrNotFound) {
			// A missing document cannot reappear on retry, so the job is
			// failed terminally instead of going through FailJob.
			w.log.Warn("job failed", "job_id", job.Id, "type", job.Type.String(), "err", err)
			return w.store.CompleteJobAndDocument(ctx, job.Id, job.DocumentId, false, nil, nil, nil, err.Error())
		}
		return err
	}
	if doc.BlobKey == "" {
		err := fmt.Errorf("document %s has no blob key", doc.Id)
		w.recordConvertFailure(ctx, doc, err)
		return err
	}

	start := time.Now()
	data, usedTemp, tempPath, err := w.fetchDocument(ctx, doc)
	if tempPath != "" {
		defer os.Remove(tempPath)
	}
	if err != nil {
		w.recordConvertFailure(ctx, doc, err)
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	result, err := w.ocr.Convert(ctx, data, doc.MimeType, doc.FileName)
	if err != nil {
		err = fmt.Errorf("converting document %s: %w", doc.Id, err)
		w.recordConvertFailure(ctx, doc, err)
		return err
	}

	metadata := map[string]any{
		"model":              result.Model,
		"extracted_pages":    result.ExtractedPages,
		"processing_time_ms": time.Since(start).Milliseconds(),
		"blob_size":          doc.FileSize,
		"used_temp":          usedTemp,
	}
	content := result.Markdown

	if err := w.store.CompleteJobAndDocument(ctx, job.Id, doc.Id, true, nil, &content, metadata, ""); err != nil {
		return fmt.Errorf("completing document %s: %w", doc.Id, err)
	}

	if err := w.recordUsage(ctx, doc.Id, result); err != nil {
		w.log.Error("cannot record usage", "document_id", doc.Id, "err", err)
	}
	w.updateBatchProgress(ctx, doc)
	return nil
}

// fetchDocument retrieves a convert job's source bytes, streaming through
// a local temp file when the blob exceeds largeFileThreshold. tempPath is
// non-empty whenever a file was created, regardless of the error outcome,
// so the caller can always attempt cleanup.
func (w *Worker) fetchDocument(ctx context.Context, doc *model.Document) (data []byte, usedTemp bool, tempPath string, err error) {
	info, err := w.blobs.Stat(ctx, doc.BlobKey)
	if err != nil {
		return nil, false, "", fmt.Errorf("stat blob %s: %w", doc.BlobKey, err)
	}
	if info.Size <= w.largeFileThreshold {
		data, err = w.blobs.Get(ctx, doc.BlobKey)
		if err != nil {
			return nil, false, "", fmt.Errorf("get blob %s: %w", doc.BlobKey, err)
		}
		return data, false, "", nil
	}

	path := filepath.Join(w.tempDir, fmt.Sprintf("%s-%d.tmp", doc.Id, time.Now().UnixMilli()))
	if err := w.blobs.GetStream(ctx, doc.BlobKey, path); err != nil {
		return nil, true, path, fmt.Errorf("stream blob %s: %w", doc.BlobKey, err)
	}
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, true, path, fmt.Errorf("reading temp file %s: %w", path, err)
	}
	return data, true, path, nil
}

func (w *Worker) recordConvertFailure(ctx context.Context, doc *model.Document, cause error) {
	if err := w.store.FailDocument(ctx, doc.Id, cause.Error()); err != nil {
		w.log.Error("cannot mark document failed", "document_id", doc.Id, "err", err)
	}
	w.updateBatchProgress(ctx, doc)
}

func (w *Worker) updateBatchProgress(ctx context.Context, doc *model.Document) {
	if doc.BatchId == nil {
		return
	}
	if err := w.store.UpdateBatchProgress(ctx, *doc.BatchId); err != nil {
		w.log.Error("cannot update batch progress", "batch_id", *doc.BatchId, "err", err)
	}
}

// recordUsage derives a convert job's billed cost from its token usage:
// one page per thousand total tokens, one cent per estimated page, a 30%
// margin on top.
func (w *Worker) recordUsage(ctx context.Context, documentId string, result ocr.Result) error {
	estimatedPages := int(math.Ceil(float64(result.TotalTokens) / 1000))
	if estimatedPages < 1 {
		estimatedPages = 1
	}
	baseCost := int(math.Ceil(float64(estimatedPages) * costCentsPerPage))
	totalCost := int(math.Ceil(float64(baseCost) * marginMultiplier))

	_, err := w.store.RecordUsage(ctx, store.RecordUsageParams{
		DocumentId:     documentId,
		Operation:      "convert",
		InputTokens:    result.PromptTokens,
		OutputTokens:   result.CompletionTokens,
		BaseCostCents:  baseCost,
		MarginRatePct:  defaultMarginRatePct,
		TotalCostCents: totalCost,
	})
	return err
}

func (w *Worker) handleArchive(ctx context.Context, job *model.Job) error {
	doc, err := w.store.GetDocument(ctx, job.DocumentId)
	if err != nil {
		return fmt.Errorf("loading document %s: %w", job.DocumentId, err)
	}
	if doc.Status != model.DocCompleted {
		return fmt.Errorf("document %s is not completed (status=%s)", doc.Id, doc.Status)
	}

	archiveKey := archiveKeyFor(doc.BlobKey)
	if err := w.blobs.Copy(ctx, doc.BlobKey, archiveKey); err != nil {
		return fmt.Errorf("copying %s to %s: %w", doc.BlobKey, archiveKey, err)
	}
	if err := w.blobs.Delete(ctx, doc.BlobKey); err != nil {
		return fmt.Errorf("deleting original blob %s: %w", doc.BlobKey, err)
	}

	metadata := map[string]any{
		"original_key": doc.BlobKey,
		"archive_key":  archiveKey,
	}
	if err := w.store.CompleteArchiveJob(ctx, job.Id, doc.Id, archiveKey, metadata); err != nil {
		return fmt.Errorf("completing archive for document %s: %w", doc.Id, err)
	}
	return nil
}

// archiveKeyFor rewrites a documents/<subpath> blob key to archive/<subpath>,
// preserving any subpath so documents with the same filename under
// different prefixes don't collide once archived. Keys that don't follow
// the documents/ convention are archived under an archive/ prefix as-is.
func archiveKeyFor(blobKey string) string {
	if rest, ok := strings.CutPrefix(blobKey, "documents/"); ok {
		return "archive/" + rest
	}
	return "archive/" + blobKey
}
