// Package dao wraps the store's write-side calls with a bounded,
// fixed-schedule retry so transient SQLite contention between the
// submission API, workers, and the cleanup sweep is absorbed; only
// contention that outlasts the whole schedule surfaces, as OperationBusy.
package dao

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// retrySchedule is the fixed, deterministic delay between attempts:
// 100, 200, 400, 800, 1600ms, for up to 6 attempts total (the first try
// plus one retry after each delay).
var retrySchedule = []time.Duration{
	100 * time.Millisecond,
	200 * time.Millisecond,
	400 * time.Millisecond,
	800 * time.Millisecond,
	1600 * time.Millisecond,
}

// OperationBusy is returned when every retry attempt for op was exhausted
// while the store kept reporting contention.
type OperationBusy struct {
	Op  string
	Err error
}

func (e *OperationBusy) Error() string {
	return fmt.Sprintf("dao: operation %q busy after %d attempts: %v", e.Op, len(retrySchedule)+1, e.Err)
}

func (e *OperationBusy) Unwrap() error {
	return e.Err
}

// sqliteCoder is implemented by modernc.org/sqlite's error type, which
// exposes the underlying SQLITE_* result code without this package
// depending on the driver's internal package path.
type sqliteCoder interface {
	Code() int
}

const (
	sqliteBusy   = 5
	sqliteLocked = 6
)

// isBusy reports whether err indicates the store was momentarily busy or
// locked by another writer, as opposed to a genuine failure.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder sqliteCoder
	if errors.As(err, &coder) {
		switch coder.Code() {
		case sqliteBusy, sqliteLocked:
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "sqlite_busy") ||
		strings.Contains(msg, "sqlite_locked") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "busy")
}

// Retrying runs fn, retrying on a fixed schedule while the store reports
// busy/locked contention. Any other error propagates immediately. op names
// the operation for OperationBusy's final failure and for logging by
// callers.
func Retrying(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= len(retrySchedule); attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !isBusy(lastErr) {
			return lastErr
		}
		if attempt == len(retrySchedule) {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retrySchedule[attempt]):
		}
	}
	return &OperationBusy{Op: op, Err: lastErr}
}
