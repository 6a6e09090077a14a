package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/docflow/docflow/model"
	"github.com/docflow/docflow/store"
)

func TestCreateAndClaimJob(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc, err := s.CreateDocument(ctx, store.CreateDocumentParams{
		FileName: "invoice.pdf",
		MimeType: "application/pdf",
		FileSize: 1024,
		BlobKey:  "documents/invoice.pdf",
	})
	if err != nil {
		t.Fatal(err)
	}

	job, err := s.CreateJob(ctx, store.CreateJobParams{
		DocumentId: doc.Id,
		Type:       model.JobConvert,
	})
	if err != nil {
		t.Fatal(err)
	}

	claimed, err := s.ClaimNextJob(ctx, "worker-1")
	if err != nil {
		t.Fatal(err)
	}
	if claimed == nil {
		t.Fatal("expected a claimed job, got none")
	}
	if claimed.Id != job.Id {
		t.Fatalf("expected job %s, got %s", job.Id, claimed.Id)
	}
	if claimed.Status != model.JobStatusProcessing {
		t.Fatalf("expected Processing, got %v", claimed.Status)
	}
	if claimed.Attempts != 1 {
		t.Fatalf("expected attempts=1, got %d", claimed.Attempts)
	}

	again, err := s.ClaimNextJob(ctx, "worker-2")
	if err != nil {
		t.Fatal(err)
	}
	if again != nil {
		t.Fatal("expected no eligible job on second claim, the only job is already processing")
	}
}

func TestClaimRespectsPriorityThenScheduledAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc, err := s.CreateDocument(ctx, store.CreateDocumentParams{FileName: "a.pdf", MimeType: "application/pdf", BlobKey: "documents/a.pdf"})
	if err != nil {
		t.Fatal(err)
	}

	low, err := s.CreateJob(ctx, store.CreateJobParams{DocumentId: doc.Id, Type: model.JobConvert, Priority: 1})
	if err != nil {
		t.Fatal(err)
	}
	high, err := s.CreateJob(ctx, store.CreateJobParams{DocumentId: doc.Id, Type: model.JobConvert, Priority: 5})
	if err != nil {
		t.Fatal(err)
	}
	_ = low

	claimed, err := s.ClaimNextJob(ctx, "worker-1")
	if err != nil {
		t.Fatal(err)
	}
	if claimed == nil || claimed.Id != high.Id {
		t.Fatalf("expected the higher-priority job %s claimed first", high.Id)
	}

	// Among equal priorities, the earlier scheduled_at wins over insertion order.
	earlierAt := time.Now().Add(-time.Minute)
	earlier, err := s.CreateJob(ctx, store.CreateJobParams{DocumentId: doc.Id, Type: model.JobConvert, Priority: 1, ScheduledAt: &earlierAt})
	if err != nil {
		t.Fatal(err)
	}
	next, err := s.ClaimNextJob(ctx, "worker-1")
	if err != nil {
		t.Fatal(err)
	}
	if next == nil || next.Id != earlier.Id {
		t.Fatalf("expected the earlier-scheduled job %s claimed before %s", earlier.Id, low.Id)
	}
}

func TestCompleteJobAndDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc, err := s.CreateDocument(ctx, store.CreateDocumentParams{FileName: "a.pdf", MimeType: "application/pdf", BlobKey: "documents/a.pdf"})
	if err != nil {
		t.Fatal(err)
	}
	job, err := s.CreateJob(ctx, store.CreateJobParams{DocumentId: doc.Id, Type: model.JobConvert})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.ClaimNextJob(ctx, "worker-1"); err != nil {
		t.Fatal(err)
	}

	markdown := "# Invoice\n\ntotal: $42"
	if err := s.CompleteJobAndDocument(ctx, job.Id, doc.Id, true, []byte("ok"), &markdown, map[string]any{"pages": 1}, ""); err != nil {
		t.Fatal(err)
	}

	gotJob, err := s.GetJob(ctx, job.Id)
	if err != nil {
		t.Fatal(err)
	}
	if gotJob.Status != model.JobStatusCompleted {
		t.Fatalf("expected job Completed, got %v", gotJob.Status)
	}

	gotDoc, err := s.GetDocument(ctx, doc.Id)
	if err != nil {
		t.Fatal(err)
	}
	if gotDoc.Status != model.DocCompleted {
		t.Fatalf("expected document Completed, got %v", gotDoc.Status)
	}
	if gotDoc.Content == nil || *gotDoc.Content != markdown {
		t.Fatalf("expected content %q, got %v", markdown, gotDoc.Content)
	}
	if gotDoc.ProcessedAt == nil {
		t.Fatal("expected processed_at to be set")
	}
}

func TestFailJobRetriesThenTerminates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc, err := s.CreateDocument(ctx, store.CreateDocumentParams{FileName: "a.pdf", MimeType: "application/pdf", BlobKey: "documents/a.pdf"})
	if err != nil {
		t.Fatal(err)
	}
	job, err := s.CreateJob(ctx, store.CreateJobParams{DocumentId: doc.Id, Type: model.JobConvert, MaxAttempts: 2})
	if err != nil {
		t.Fatal(err)
	}

	// Attempt 1: claimed, then fails with attempts (1) < max (2) -> back to pending.
	if _, err := s.ClaimNextJob(ctx, "worker-1"); err != nil {
		t.Fatal(err)
	}
	if err := s.FailJob(ctx, job.Id, "ocr timed out"); err != nil {
		t.Fatal(err)
	}
	afterFirst, err := s.GetJob(ctx, job.Id)
	if err != nil {
		t.Fatal(err)
	}
	if afterFirst.Status != model.JobStatusPending {
		t.Fatalf("expected Pending after first failure, got %v", afterFirst.Status)
	}
	if !afterFirst.ScheduledAt.After(time.Now()) {
		t.Fatal("expected scheduled_at to be pushed into the future by backoff")
	}

	// The job is not eligible again until its backoff has elapsed.
	jobs, err := s.ClaimNextJob(ctx, "worker-1")
	if err != nil {
		t.Fatal(err)
	}
	if jobs != nil {
		t.Fatal("job should not be eligible yet, scheduled_at is in the future")
	}

	// Force the job eligible again for the second, terminal attempt.
	if _, err := s.DB().NewUpdate().
		Table("jobs").
		Set("scheduled_at = ?", time.Now().Add(-time.Second)).
		Where("id = ?", job.Id).
		Exec(ctx); err != nil {
		t.Fatal(err)
	}

	// Attempt 2: claimed, then fails with attempts (2) == max (2) -> terminal.
	second, err := s.ClaimNextJob(ctx, "worker-1")
	if err != nil {
		t.Fatal(err)
	}
	if second == nil || second.Id != job.Id || second.Attempts != 2 {
		t.Fatalf("expected job %s reclaimed with attempts=2, got %+v", job.Id, second)
	}
	if err := s.FailJob(ctx, job.Id, "ocr timed out"); err != nil {
		t.Fatal(err)
	}
	afterSecond, err := s.GetJob(ctx, job.Id)
	if err != nil {
		t.Fatal(err)
	}
	if afterSecond.Status != model.JobStatusFailed {
		t.Fatalf("expected Failed after the final attempt, got %v", afterSecond.Status)
	}
}

func TestUpdateBatchProgress(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	batch, err := s.CreateBatch(ctx, store.CreateBatchParams{TotalDocuments: 2})
	if err != nil {
		t.Fatal(err)
	}
	bid := batch.Id
	d1, err := s.CreateDocument(ctx, store.CreateDocumentParams{FileName: "1.pdf", MimeType: "application/pdf", BlobKey: "documents/1.pdf", BatchId: &bid})
	if err != nil {
		t.Fatal(err)
	}
	d2, err := s.CreateDocument(ctx, store.CreateDocumentParams{FileName: "2.pdf", MimeType: "application/pdf", BlobKey: "documents/2.pdf", BatchId: &bid})
	if err != nil {
		t.Fatal(err)
	}

	j1, err := s.CreateJob(ctx, store.CreateJobParams{DocumentId: d1.Id, Type: model.JobConvert})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.ClaimNextJob(ctx, "worker-1"); err != nil {
		t.Fatal(err)
	}
	md := "# one"
	if err := s.CompleteJobAndDocument(ctx, j1.Id, d1.Id, true, nil, &md, nil, ""); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateBatchProgress(ctx, bid); err != nil {
		t.Fatal(err)
	}

	mid, err := s.GetBatch(ctx, bid)
	if err != nil {
		t.Fatal(err)
	}
	if mid.Status != model.BatchStatusProcessing {
		t.Fatalf("expected Processing with 1/2 done, got %v", mid.Status)
	}

	j2, err := s.CreateJob(ctx, store.CreateJobParams{DocumentId: d2.Id, Type: model.JobConvert})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.ClaimNextJob(ctx, "worker-1"); err != nil {
		t.Fatal(err)
	}
	if err := s.CompleteJobAndDocument(ctx, j2.Id, d2.Id, false, nil, nil, nil, "ocr provider unavailable"); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateBatchProgress(ctx, bid); err != nil {
		t.Fatal(err)
	}

	final, err := s.GetBatch(ctx, bid)
	if err != nil {
		t.Fatal(err)
	}
	if final.CompletedDocuments != 1 || final.FailedDocuments != 1 {
		t.Fatalf("expected 1 completed, 1 failed; got %d/%d", final.CompletedDocuments, final.FailedDocuments)
	}
	if final.Status != model.BatchStatusCompleted {
		t.Fatalf("expected terminal Completed status (not all-failed), got %v", final.Status)
	}
	if final.CompletedAt == nil {
		t.Fatal("expected completed_at to be set on terminal transition")
	}
}

func TestGetBatchDocumentsAndListBatches(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	batch, err := s.CreateBatch(ctx, store.CreateBatchParams{UserId: "user-1", TotalDocuments: 1})
	if err != nil {
		t.Fatal(err)
	}
	bid := batch.Id
	if _, err := s.CreateDocument(ctx, store.CreateDocumentParams{FileName: "a.pdf", MimeType: "application/pdf", BlobKey: "documents/a.pdf", BatchId: &bid}); err != nil {
		t.Fatal(err)
	}

	docs, err := s.GetBatchDocuments(ctx, bid)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}

	batches, err := s.ListBatches(ctx, "user-1", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(batches) != 1 {
		t.Fatalf("expected 1 batch for user-1, got %d", len(batches))
	}
}
