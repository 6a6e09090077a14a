package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/docflow/docflow/model"
)

// orphanErrorText is stamped onto a job and its document when
// cleanupOrphanedJobs gives up on it after exhausting retries.
const orphanErrorText = "Max retry attempts exceeded (job timeout >5 minutes)"

// CreateDocumentParams is the input to CreateDocument.
type CreateDocumentParams struct {
	FileName      string
	MimeType      string
	FileSize      int64
	BlobKey       string
	RetentionDays int
	UserId        string
	ApiKey        string
	BatchId       *string
	Metadata      map[string]any
}

// CreateDocument inserts a new document in pending status, assigning the id
// server-side.
func (s *Store) CreateDocument(ctx context.Context, p CreateDocumentParams) (*model.Document, error) {
	retention := p.RetentionDays
	if retention <= 0 {
		retention = 30
	}
	d := &model.Document{
		Id:            uuid.NewString(),
		FileName:      p.FileName,
		MimeType:      p.MimeType,
		FileSize:      p.FileSize,
		BlobKey:       p.BlobKey,
		Metadata:      p.Metadata,
		Status:        model.DocPending,
		CreatedAt:     now(),
		RetentionDays: retention,
		UserId:        p.UserId,
		ApiKey:        p.ApiKey,
		BatchId:       p.BatchId,
	}
	err := s.retryWrite(ctx, "create-document", func(ctx context.Context) error {
		_, err := s.db.NewInsert().Model(documentFromModel(d)).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("store: creating document: %w", err)
	}
	return d, nil
}

// CreateBatchParams is the input to CreateBatch.
type CreateBatchParams struct {
	UserId         string
	ApiKey         string
	TotalDocuments int
	Priority       int
	Metadata       map[string]any
}

// CreateBatch inserts a new batch in pending status with the given
// document count.
func (s *Store) CreateBatch(ctx context.Context, p CreateBatchParams) (*model.Batch, error) {
	b := &model.Batch{
		Id:             uuid.NewString(),
		UserId:         p.UserId,
		ApiKey:         p.ApiKey,
		TotalDocuments: p.TotalDocuments,
		Status:         model.BatchStatusPending,
		Priority:       p.Priority,
		Metadata:       p.Metadata,
		CreatedAt:      now(),
	}
	row := &batchRow{
		Id:             b.Id,
		UserId:         b.UserId,
		ApiKey:         b.ApiKey,
		TotalDocuments: b.TotalDocuments,
		Status:         b.Status.String(),
		Priority:       b.Priority,
		Metadata:       b.Metadata,
		CreatedAt:      b.CreatedAt,
	}
	err := s.retryWrite(ctx, "create-batch", func(ctx context.Context) error {
		_, err := s.db.NewInsert().Model(row).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("store: creating batch: %w", err)
	}
	return b, nil
}

// CreateJobParams is the input to CreateJob. ScheduledAt defaults to now
// and MaxAttempts defaults to 3 when zero.
type CreateJobParams struct {
	DocumentId  string
	Type        model.JobType
	Priority    int
	MaxAttempts int
	Payload     []byte
	ScheduledAt *time.Time
}

// CreateJob inserts a new job in pending status.
func (s *Store) CreateJob(ctx context.Context, p CreateJobParams) (*model.Job, error) {
	scheduledAt := now()
	if p.ScheduledAt != nil {
		scheduledAt = *p.ScheduledAt
	}
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	j := &model.Job{
		Id:          uuid.NewString(),
		DocumentId:  p.DocumentId,
		Type:        p.Type,
		Status:      model.JobStatusPending,
		Priority:    p.Priority,
		MaxAttempts: maxAttempts,
		Payload:     p.Payload,
		ScheduledAt: scheduledAt,
		CreatedAt:   now(),
	}
	row := &jobRow{
		Id:          j.Id,
		DocumentId:  j.DocumentId,
		Type:        j.Type.String(),
		Status:      j.Status.String(),
		Priority:    j.Priority,
		MaxAttempts: j.MaxAttempts,
		Payload:     j.Payload,
		ScheduledAt: j.ScheduledAt,
		CreatedAt:   j.CreatedAt,
	}
	err := s.retryWrite(ctx, "create-job", func(ctx context.Context) error {
		_, err := s.db.NewInsert().Model(row).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("store: creating job: %w", err)
	}
	return j, nil
}

// ClaimNextJob atomically selects the single highest-priority eligible
// job (status=pending, scheduled_at <= now, ties broken by ascending
// scheduled_at then insertion order) and transitions it to processing,
// stamping workerId and incrementing attempts. For a convert job, the
// still-pending document is then moved to processing in a separate write.
// It returns (nil, nil) when
// no job is eligible, mirroring the "Job | none" contract rather than
// surfacing absence as an error.
//
// The selection and transition happen in a single UPDATE ... WHERE id IN
// (subquery) statement so that two workers racing for the same row cannot
// both succeed: the WHERE status = 'pending' guard re-checked at update
// time means a loser simply updates zero rows and tries again next tick.
func (s *Store) ClaimNextJob(ctx context.Context, workerId string) (*model.Job, error) {
	ts := now()
	subQuery := s.db.NewSelect().
		Model((*jobRow)(nil)).
		Column("id").
		Where("status = ?", model.JobStatusPending.String()).
		Where("scheduled_at <= ?", ts).
		Order("priority DESC", "scheduled_at ASC", "rowid ASC").
		Limit(1)

	var rows []*jobRow
	err := s.retryWrite(ctx, "claim-next-job", func(ctx context.Context) error {
		return s.db.NewUpdate().
			Model((*jobRow)(nil)).
			Set("status = ?", model.JobStatusProcessing.String()).
			Set("worker_id = ?", workerId).
			Set("started_at = ?", ts).
			Set("attempts = attempts + 1").
			Where("id IN (?)", subQuery).
			Where("status = ?", model.JobStatusPending.String()).
			Returning("*").
			Scan(ctx, &rows)
	})
	if err != nil {
		return nil, fmt.Errorf("store: claiming job: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	claimed := rows[0].toModel()
	if claimed.Type == model.JobConvert {
		err = s.retryWrite(ctx, "mark-document-processing", func(ctx context.Context) error {
			_, err := s.db.NewUpdate().
				Model((*documentRow)(nil)).
				Set("status = ?", model.DocProcessing.String()).
				Where("id = ?", claimed.DocumentId).
				Where("status = ?", model.DocPending.String()).
				Exec(ctx)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("store: marking document %s processing: %w", claimed.DocumentId, err)
		}
	}
	return claimed, nil
}

// CompleteJobAndDocument atomically commits the terminal outcome of a
// convert or archive job to both the job row and its owning document row.
// On success, content/metadata are written and the document's
// processed-at is stamped; on failure, errText is recorded on both rows.
func (s *Store) CompleteJobAndDocument(ctx context.Context, jobId, documentId string, success bool, result []byte, content *string, metadata map[string]any, errText string) error {
	return s.retryWrite(ctx, "complete-job-and-document", func(ctx context.Context) error {
		return s.completeJobAndDocumentTx(ctx, jobId, documentId, success, result, content, metadata, errText)
	})
}

func (s *Store) completeJobAndDocumentTx(ctx context.Context, jobId, documentId string, success bool, result []byte, content *string, metadata map[string]any, errText string) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		ts := now()
		jobStatus := model.JobStatusCompleted
		docStatus := model.DocCompleted
		if !success {
			jobStatus = model.JobStatusFailed
			docStatus = model.DocFailed
		}

		jobUpdate := tx.NewUpdate().
			Model((*jobRow)(nil)).
			Set("status = ?", jobStatus.String()).
			Set("completed_at = ?", ts).
			Set("result = ?", result).
			Set("error = ?", errText).
			Where("id = ?", jobId)
		if _, err := jobUpdate.Exec(ctx); err != nil {
			return fmt.Errorf("store: completing job %s: %w", jobId, err)
		}

		docUpdate := tx.NewUpdate().
			Model((*documentRow)(nil)).
			Set("status = ?", docStatus.String()).
			Set("error = ?", errText).
			Where("id = ?", documentId)
		if success {
			docUpdate = docUpdate.
				Set("processed_at = ?", ts).
				Set("content = ?", content).
				Set("metadata = ?", metadata)
		}
		if _, err := docUpdate.Exec(ctx); err != nil {
			return fmt.Errorf("store: completing document %s: %w", documentId, err)
		}
		return nil
	})
}

// CompleteArchiveJob atomically commits an archive job's outcome: the job
// is marked completed and its document is marked archived, its blob_key
// repointed at archiveKey, and metadata replaced with the caller's record
// of the original and archive keys.
func (s *Store) CompleteArchiveJob(ctx context.Context, jobId, documentId, archiveKey string, metadata map[string]any) error {
	return s.retryWrite(ctx, "complete-archive-job", func(ctx context.Context) error {
		return s.completeArchiveJobTx(ctx, jobId, documentId, archiveKey, metadata)
	})
}

func (s *Store) completeArchiveJobTx(ctx context.Context, jobId, documentId, archiveKey string, metadata map[string]any) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		ts := now()
		if _, err := tx.NewUpdate().
			Model((*jobRow)(nil)).
			Set("status = ?", model.JobStatusCompleted.String()).
			Set("completed_at = ?", ts).
			Where("id = ?", jobId).
			Exec(ctx); err != nil {
			return fmt.Errorf("store: completing archive job %s: %w", jobId, err)
		}
		if _, err := tx.NewUpdate().
			Model((*documentRow)(nil)).
			Set("status = ?", model.DocArchived.String()).
			Set("archived_at = ?", ts).
			Set("blob_key = ?", archiveKey).
			Set("metadata = ?", metadata).
			Where("id = ?", documentId).
			Exec(ctx); err != nil {
			return fmt.Errorf("store: archiving document %s: %w", documentId, err)
		}
		return nil
	})
}

// FailJob records a handler-reported failure against a job. If the job's
// already-incremented attempts remain below max-attempts, it is returned
// to pending with a backed-off scheduled-at; otherwise it is marked
// terminally failed.
func (s *Store) FailJob(ctx context.Context, jobId, errText string) error {
	return s.retryWrite(ctx, "fail-job", func(ctx context.Context) error {
		return s.failJobTx(ctx, jobId, errText)
	})
}

func (s *Store) failJobTx(ctx context.Context, jobId, errText string) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var row jobRow
		if err := tx.NewSelect().Model(&row).Where("id = ?", jobId).Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("store: loading job %s: %w", jobId, err)
		}

		ts := now()
		update := tx.NewUpdate().Model((*jobRow)(nil)).Where("id = ?", jobId)
		if row.Attempts < row.MaxAttempts {
			update = update.
				Set("status = ?", model.JobStatusPending.String()).
				Set("error = ?", errText).
				Set("started_at = NULL").
				Set("scheduled_at = ?", ts.Add(jobRetryBackoff(row.Attempts)))
		} else {
			update = update.
				Set("status = ?", model.JobStatusFailed.String()).
				Set("completed_at = ?", ts).
				Set("error = ?", errText)
		}
		if _, err := update.Exec(ctx); err != nil {
			return fmt.Errorf("store: failing job %s: %w", jobId, err)
		}
		return nil
	})
}

// FailDocument records a handler-reported failure directly on a document,
// independent of its job's own retry bookkeeping. A subsequent successful
// CompleteJobAndDocument call overwrites this status, so a document may
// transiently read as failed while its job is still retrying.
func (s *Store) FailDocument(ctx context.Context, documentId, errText string) error {
	err := s.retryWrite(ctx, "fail-document", func(ctx context.Context) error {
		_, err := s.db.NewUpdate().
			Model((*documentRow)(nil)).
			Set("status = ?", model.DocFailed.String()).
			Set("error = ?", errText).
			Where("id = ?", documentId).
			Exec(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("store: failing document %s: %w", documentId, err)
	}
	return nil
}

// CleanupOrphanedJobs recovers jobs stuck in processing past
// orphanThreshold, splitting them into those still eligible for a retry
// (reset to pending with a fast backoff) and those that have exhausted
// max-attempts (marked failed, along with their owning document and
// batch). It returns the number of jobs processed.
func (s *Store) CleanupOrphanedJobs(ctx context.Context) (int64, error) {
	cutoff := now().Add(-s.orphanThreshold)

	var stuck []*jobRow
	err := s.db.NewSelect().
		Model(&stuck).
		Where("status = ?", model.JobStatusProcessing.String()).
		Where("started_at < ?", cutoff).
		Scan(ctx)
	if err != nil {
		return 0, fmt.Errorf("store: selecting orphaned jobs: %w", err)
	}
	if len(stuck) == 0 {
		return 0, nil
	}

	var toFail, toReset []*jobRow
	for _, r := range stuck {
		if r.Attempts >= r.MaxAttempts {
			toFail = append(toFail, r)
		} else {
			toReset = append(toReset, r)
		}
	}

	if len(toFail) > 0 {
		if err := s.failOrphans(ctx, toFail); err != nil {
			return 0, err
		}
	}
	for _, r := range toReset {
		if err := s.resetOrphan(ctx, r); err != nil {
			return 0, err
		}
	}

	return int64(len(stuck)), nil
}

func (s *Store) failOrphans(ctx context.Context, rows []*jobRow) error {
	ts := now()
	ids := make([]string, len(rows))
	seenDocs := make(map[string]bool, len(rows))
	uniqueDocIds := make([]string, 0, len(rows))
	for i, r := range rows {
		ids[i] = r.Id
		if !seenDocs[r.DocumentId] {
			seenDocs[r.DocumentId] = true
			uniqueDocIds = append(uniqueDocIds, r.DocumentId)
		}
	}

	err := s.retryWrite(ctx, "fail-orphaned-jobs", func(ctx context.Context) error {
		_, err := s.db.NewUpdate().
			Model((*jobRow)(nil)).
			Set("status = ?", model.JobStatusFailed.String()).
			Set("completed_at = ?", ts).
			Set("worker_id = NULL").
			Set("error = ?", orphanErrorText).
			Where("id IN (?)", bun.In(ids)).
			Exec(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("store: failing orphaned jobs: %w", err)
	}

	err = s.retryWrite(ctx, "fail-orphaned-documents", func(ctx context.Context) error {
		_, err := s.db.NewUpdate().
			Model((*documentRow)(nil)).
			Set("status = ?", model.DocFailed.String()).
			Set("error = ?", orphanErrorText).
			Where("id IN (?)", bun.In(uniqueDocIds)).
			Exec(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("store: failing orphaned jobs' documents: %w", err)
	}

	batchIds, err := s.distinctBatchIds(ctx, uniqueDocIds)
	if err != nil {
		return err
	}
	for _, bid := range batchIds {
		if err := s.UpdateBatchProgress(ctx, bid); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) resetOrphan(ctx context.Context, r *jobRow) error {
	err := s.retryWrite(ctx, "reset-orphaned-job", func(ctx context.Context) error {
		_, err := s.db.NewUpdate().
			Model((*jobRow)(nil)).
			Set("status = ?", model.JobStatusPending.String()).
			Set("worker_id = NULL").
			Set("started_at = NULL").
			Set("scheduled_at = ?", now().Add(orphanResetBackoff(r.Attempts))).
			Where("id = ?", r.Id).
			Where("status = ?", model.JobStatusProcessing.String()).
			Exec(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("store: resetting orphaned job %s: %w", r.Id, err)
	}
	return nil
}

// distinctBatchIds returns the distinct, non-null batch ids referenced by
// the given document ids.
func (s *Store) distinctBatchIds(ctx context.Context, documentIds []string) ([]string, error) {
	if len(documentIds) == 0 {
		return nil, nil
	}
	var ids []string
	err := s.db.NewSelect().
		Model((*documentRow)(nil)).
		ColumnExpr("DISTINCT batch_id").
		Where("id IN (?)", bun.In(documentIds)).
		Where("batch_id IS NOT NULL").
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("store: resolving batch ids: %w", err)
	}
	return ids, nil
}

// UpdateBatchProgress recomputes a batch's completed/failed document
// counts and derived status from its current child documents.
func (s *Store) UpdateBatchProgress(ctx context.Context, batchId string) error {
	var b batchRow
	if err := s.db.NewSelect().Model(&b).Where("id = ?", batchId).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("store: loading batch %s: %w", batchId, err)
	}

	completed, err := s.db.NewSelect().
		Model((*documentRow)(nil)).
		Where("batch_id = ?", batchId).
		Where("status = ?", model.DocCompleted.String()).
		Count(ctx)
	if err != nil {
		return fmt.Errorf("store: counting completed documents for batch %s: %w", batchId, err)
	}
	failed, err := s.db.NewSelect().
		Model((*documentRow)(nil)).
		Where("batch_id = ?", batchId).
		Where("status = ?", model.DocFailed.String()).
		Count(ctx)
	if err != nil {
		return fmt.Errorf("store: counting failed documents for batch %s: %w", batchId, err)
	}

	terminal := completed+failed == b.TotalDocuments
	var status model.BatchStatus
	switch {
	case terminal && failed == b.TotalDocuments && b.TotalDocuments > 0:
		status = model.BatchStatusFailed
	case terminal:
		status = model.BatchStatusCompleted
	case completed+failed > 0:
		status = model.BatchStatusProcessing
	default:
		status = model.BatchStatusPending
	}

	err = s.retryWrite(ctx, "update-batch-progress", func(ctx context.Context) error {
		update := s.db.NewUpdate().
			Model((*batchRow)(nil)).
			Set("completed_documents = ?", completed).
			Set("failed_documents = ?", failed).
			Set("status = ?", status.String()).
			Where("id = ?", batchId)
		if terminal {
			update = update.Set("completed_at = ?", now())
		}
		_, err := update.Exec(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("store: updating batch %s progress: %w", batchId, err)
	}
	return nil
}

// ArchiveOldDocuments marks completed, not-yet-archived documents as
// archived once created_at + retention_days*86400s has elapsed. It returns
// the number of documents archived. Retention windows are evaluated in Go
// rather than in SQL because the cutoff depends on each row's own
// retention_days.
func (s *Store) ArchiveOldDocuments(ctx context.Context) (int64, error) {
	var candidates []*documentRow
	err := s.db.NewSelect().
		Model(&candidates).
		Where("status = ?", model.DocCompleted.String()).
		Where("archived_at IS NULL").
		Scan(ctx)
	if err != nil {
		return 0, fmt.Errorf("store: selecting archive candidates: %w", err)
	}

	ts := now()
	var ids []string
	for _, r := range candidates {
		cutoff := r.CreatedAt.Add(time.Duration(r.RetentionDays) * 24 * time.Hour)
		if !cutoff.After(ts) {
			ids = append(ids, r.Id)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	var res sql.Result
	err = s.retryWrite(ctx, "archive-old-documents", func(ctx context.Context) error {
		var err error
		res, err = s.db.NewUpdate().
			Model((*documentRow)(nil)).
			Set("status = ?", model.DocArchived.String()).
			Set("archived_at = ?", ts).
			Where("id IN (?)", bun.In(ids)).
			Exec(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("store: archiving documents: %w", err)
	}
	return getAffected(res), nil
}

// RecordUsageParams is the input to RecordUsage.
type RecordUsageParams struct {
	DocumentId     string
	Operation      string
	InputTokens    int
	OutputTokens   int
	BaseCostCents  int
	MarginRatePct  int
	TotalCostCents int
}

// RecordUsage inserts a usage/cost record for a completed OCR call.
func (s *Store) RecordUsage(ctx context.Context, p RecordUsageParams) (*model.Usage, error) {
	u := &model.Usage{
		Id:             uuid.NewString(),
		DocumentId:     p.DocumentId,
		Operation:      p.Operation,
		InputTokens:    p.InputTokens,
		OutputTokens:   p.OutputTokens,
		BaseCostCents:  p.BaseCostCents,
		MarginRatePct:  p.MarginRatePct,
		TotalCostCents: p.TotalCostCents,
		CreatedAt:      now(),
	}
	row := &usageRow{
		Id:             u.Id,
		DocumentId:     u.DocumentId,
		Operation:      u.Operation,
		InputTokens:    u.InputTokens,
		OutputTokens:   u.OutputTokens,
		BaseCostCents:  u.BaseCostCents,
		MarginRatePct:  u.MarginRatePct,
		TotalCostCents: u.TotalCostCents,
		CreatedAt:      u.CreatedAt,
	}
	err := s.retryWrite(ctx, "record-usage", func(ctx context.Context) error {
		_, err := s.db.NewInsert().Model(row).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("store: recording usage for document %s: %w", p.DocumentId, err)
	}
	return u, nil
}

// GetDocument fetches a single document by id. It is the hot-path read:
// workers call it once per convert job. It runs a plain query on each
// call; no prepared statement is kept.
func (s *Store) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	var row documentRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: loading document %s: %w", id, err)
	}
	return row.toModel(), nil
}

// GetJob fetches a single job by id.
func (s *Store) GetJob(ctx context.Context, id string) (*model.Job, error) {
	var row jobRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: loading job %s: %w", id, err)
	}
	return row.toModel(), nil
}

// GetBatch fetches a single batch by id.
func (s *Store) GetBatch(ctx context.Context, id string) (*model.Batch, error) {
	var row batchRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: loading batch %s: %w", id, err)
	}
	return row.toModel(), nil
}

// GetBatchDocuments lists every document belonging to a batch, ordered by
// creation time.
func (s *Store) GetBatchDocuments(ctx context.Context, batchId string) ([]*model.Document, error) {
	var rows []*documentRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("batch_id = ?", batchId).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: listing documents for batch %s: %w", batchId, err)
	}
	out := make([]*model.Document, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// ListBatches lists batches owned by userId, most recent first, bounded by
// limit/offset.
func (s *Store) ListBatches(ctx context.Context, userId string, limit, offset int) ([]*model.Batch, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []*batchRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userId).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: listing batches for user %s: %w", userId, err)
	}
	out := make([]*model.Batch, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}
