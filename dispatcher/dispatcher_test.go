package dispatcher_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/docflow/docflow/blob"
	"github.com/docflow/docflow/dispatcher"
	"github.com/docflow/docflow/model"
	"github.com/docflow/docflow/ocr"
	"github.com/docflow/docflow/store"
	"github.com/docflow/docflow/worker"
)

type fakeBlobStore struct {
	objects map[string][]byte
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: map[string][]byte{}}
}

func (f *fakeBlobStore) Stat(ctx context.Context, key string) (blob.Info, error) {
	data, ok := f.objects[key]
	if !ok {
		return blob.Info{}, blob.ErrNotFound
	}
	return blob.Info{Size: int64(len(data))}, nil
}

func (f *fakeBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, blob.ErrNotFound
	}
	return data, nil
}

func (f *fakeBlobStore) GetStream(ctx context.Context, key string, path string) error {
	return blob.ErrNotFound
}

func (f *fakeBlobStore) Put(ctx context.Context, key string, data []byte, opts blob.PutOptions) error {
	f.objects[key] = data
	return nil
}

func (f *fakeBlobStore) PutStream(ctx context.Context, key string, r io.Reader, opts blob.PutOptions) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.objects[key] = data
	return nil
}

func (f *fakeBlobStore) Copy(ctx context.Context, src, dst string) error {
	f.objects[dst] = f.objects[src]
	return nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

func (f *fakeBlobStore) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeBlobStore) Presign(ctx context.Context, key string, opts blob.PresignOptions) (string, error) {
	return "https://example.test/" + key, nil
}

var _ blob.Store = (*fakeBlobStore)(nil)

type fakeOCRProvider struct{}

func (f *fakeOCRProvider) Convert(ctx context.Context, data []byte, mimeType string, filename string) (ocr.Result, error) {
	return ocr.Result{Markdown: "# converted", TotalTokens: 100}, nil
}

var _ ocr.Provider = (*fakeOCRProvider)(nil)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), store.Options{Path: ":memory:"})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestDispatcherClaimsAndCompletesQueuedJob(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	blobs := newFakeBlobStore()
	blobs.objects["documents/a.pdf"] = []byte("source bytes")
	w := worker.New(s, blobs, &fakeOCRProvider{}, worker.Config{TempDir: t.TempDir()})

	d := dispatcher.New(s, w, dispatcher.Config{
		WorkerCount:               2,
		DispatchInterval:          20 * time.Millisecond,
		CleanupInterval:           time.Hour,
		ArchiveInterval:           time.Hour,
		WorkerStartStagger:        time.Millisecond,
		GracefulShutdownPerWorker: time.Second,
	})

	doc, err := s.CreateDocument(ctx, store.CreateDocumentParams{
		FileName: "a.pdf",
		MimeType: "application/pdf",
		BlobKey:  "documents/a.pdf",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateJob(ctx, store.CreateJobParams{DocumentId: doc.Id, Type: model.JobConvert}); err != nil {
		t.Fatal(err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := d.Start(runCtx); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	var gotDoc *model.Document
	for time.Now().Before(deadline) {
		gotDoc, err = s.GetDocument(ctx, doc.Id)
		if err != nil {
			t.Fatal(err)
		}
		if gotDoc.Status == model.DocCompleted {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if gotDoc.Status != model.DocCompleted {
		t.Fatalf("expected document completed within deadline, got %s", gotDoc.Status)
	}

	if err := d.Stop(); err != nil {
		t.Fatal(err)
	}
}

func TestDispatcherDoubleStartFails(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	w := worker.New(s, newFakeBlobStore(), &fakeOCRProvider{}, worker.Config{TempDir: t.TempDir()})
	d := dispatcher.New(s, w, dispatcher.Config{
		DispatchInterval: time.Hour,
		CleanupInterval:  time.Hour,
		ArchiveInterval:  time.Hour,
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := d.Start(runCtx); err != nil {
		t.Fatal(err)
	}
	if err := d.Start(runCtx); err == nil {
		t.Fatal("expected second Start to fail")
	}
	if err := d.Stop(); err != nil {
		t.Fatal(err)
	}
}
