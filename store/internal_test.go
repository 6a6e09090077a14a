package store

import (
	"context"
	"testing"
	"time"

	"github.com/docflow/docflow/model"
)

func newMemoryStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), Options{Path: ":memory:"})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// withFixedClock pins now() to at, restoring the real clock on cleanup.
func withFixedClock(t *testing.T, at time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = prev })
}

func TestCleanupOrphanedJobsResetsRetryableJob(t *testing.T) {
	s := newMemoryStore(t)
	ctx := context.Background()

	doc, err := s.CreateDocument(ctx, CreateDocumentParams{FileName: "a.pdf", MimeType: "application/pdf", BlobKey: "documents/a.pdf"})
	if err != nil {
		t.Fatal(err)
	}
	job, err := s.CreateJob(ctx, CreateJobParams{DocumentId: doc.Id, Type: model.JobConvert, MaxAttempts: 3})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.ClaimNextJob(ctx, "worker-1"); err != nil {
		t.Fatal(err)
	}

	withFixedClock(t, time.Now().Add(defaultOrphanThreshold+time.Minute))

	n, err := s.CleanupOrphanedJobs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 orphan processed, got %d", n)
	}

	reset, err := s.GetJob(ctx, job.Id)
	if err != nil {
		t.Fatal(err)
	}
	if reset.Status != model.JobStatusPending {
		t.Fatalf("expected reset job to be Pending, got %v", reset.Status)
	}
	if reset.WorkerId != nil {
		t.Fatal("expected worker_id cleared on reset")
	}
	if !reset.ScheduledAt.After(now()) {
		t.Fatal("expected scheduled_at pushed into the future by orphanResetBackoff")
	}
}

func TestCleanupOrphanedJobsFailsExhaustedJob(t *testing.T) {
	s := newMemoryStore(t)
	ctx := context.Background()

	batch, err := s.CreateBatch(ctx, CreateBatchParams{TotalDocuments: 1})
	if err != nil {
		t.Fatal(err)
	}
	bid := batch.Id
	doc, err := s.CreateDocument(ctx, CreateDocumentParams{FileName: "a.pdf", MimeType: "application/pdf", BlobKey: "documents/a.pdf", BatchId: &bid})
	if err != nil {
		t.Fatal(err)
	}
	job, err := s.CreateJob(ctx, CreateJobParams{DocumentId: doc.Id, Type: model.JobConvert, MaxAttempts: 1})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.ClaimNextJob(ctx, "worker-1"); err != nil {
		t.Fatal(err)
	}

	withFixedClock(t, time.Now().Add(defaultOrphanThreshold+time.Minute))

	if _, err := s.CleanupOrphanedJobs(ctx); err != nil {
		t.Fatal(err)
	}

	failedJob, err := s.GetJob(ctx, job.Id)
	if err != nil {
		t.Fatal(err)
	}
	if failedJob.Status != model.JobStatusFailed {
		t.Fatalf("expected Failed, got %v", failedJob.Status)
	}

	failedDoc, err := s.GetDocument(ctx, doc.Id)
	if err != nil {
		t.Fatal(err)
	}
	if failedDoc.Status != model.DocFailed {
		t.Fatalf("expected document Failed, got %v", failedDoc.Status)
	}

	b, err := s.GetBatch(ctx, bid)
	if err != nil {
		t.Fatal(err)
	}
	if b.Status != model.BatchStatusFailed {
		t.Fatalf("expected batch reclassified Failed, got %v", b.Status)
	}
}

func TestArchiveOldDocuments(t *testing.T) {
	s := newMemoryStore(t)
	ctx := context.Background()

	origin := time.Now().Add(-48 * time.Hour)
	withFixedClock(t, origin)
	doc, err := s.CreateDocument(ctx, CreateDocumentParams{FileName: "a.pdf", MimeType: "application/pdf", BlobKey: "documents/a.pdf", RetentionDays: 1})
	if err != nil {
		t.Fatal(err)
	}
	job, err := s.CreateJob(ctx, CreateJobParams{DocumentId: doc.Id, Type: model.JobConvert})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.ClaimNextJob(ctx, "worker-1"); err != nil {
		t.Fatal(err)
	}
	md := "# done"
	if err := s.CompleteJobAndDocument(ctx, job.Id, doc.Id, true, nil, &md, nil, ""); err != nil {
		t.Fatal(err)
	}

	withFixedClock(t, time.Now())

	n, err := s.ArchiveOldDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 document archived, got %d", n)
	}

	archived, err := s.GetDocument(ctx, doc.Id)
	if err != nil {
		t.Fatal(err)
	}
	if archived.Status != model.DocArchived {
		t.Fatalf("expected Archived, got %v", archived.Status)
	}
	if archived.ArchivedAt == nil {
		t.Fatal("expected archived_at to be set")
	}
}
