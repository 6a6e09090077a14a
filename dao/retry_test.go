package dao

import (
	"context"
	"errors"
	"testing"
)

type codedErr struct {
	code int
}

func (e *codedErr) Error() string { return "simulated sqlite error" }
func (e *codedErr) Code() int     { return e.code }

func TestRetryingSucceedsAfterTransientBusy(t *testing.T) {
	attempts := 0
	err := Retrying(context.Background(), "insert", func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return &codedErr{code: sqliteBusy}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryingGivesUpAndTagsOperation(t *testing.T) {
	attempts := 0
	err := Retrying(context.Background(), "claim-next-job", func(ctx context.Context) error {
		attempts++
		return &codedErr{code: sqliteLocked}
	})
	if err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
	var busy *OperationBusy
	if !errors.As(err, &busy) {
		t.Fatalf("expected *OperationBusy, got %T: %v", err, err)
	}
	if busy.Op != "claim-next-job" {
		t.Fatalf("expected op %q, got %q", "claim-next-job", busy.Op)
	}
	if attempts != len(retrySchedule)+1 {
		t.Fatalf("expected %d attempts, got %d", len(retrySchedule)+1, attempts)
	}
}

func TestRetryingPropagatesNonBusyErrorsImmediately(t *testing.T) {
	wantErr := errors.New("constraint violation")
	attempts := 0
	err := Retrying(context.Background(), "create-document", func(ctx context.Context) error {
		attempts++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected immediate propagation of %v, got %v", wantErr, err)
	}
	if attempts != 1 {
		t.Fatalf("expected exactly 1 attempt, got %d", attempts)
	}
}
