// Package store implements the durable queue repository: a single-file
// embedded SQLite database reached through github.com/uptrace/bun,
// generalized from the SQL backend of the queue library this system
// descends from (see the repository's DESIGN.md). It owns transactions,
// schema migration, and typed operations over documents, jobs, batches
// and usage records.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "modernc.org/sqlite"

	"github.com/docflow/docflow/dao"
)

// Options configures the embedded store: a local path plus the fields
// needed for a future replicated-read-only-mirror sidecar. Only Path and
// OrphanThreshold are used by this system's single-process writer; the
// remaining fields are accepted and stored for forward compatibility.
type Options struct {
	// Path is the local database file. ":memory:" opens an in-memory
	// database for tests.
	Path string

	// SyncURL, SyncAuthToken, SyncIntervalSeconds, EncryptionKey and
	// UseReplica describe a remote-sync sidecar this system does not
	// implement. They are retained on Options so an embedding binary can
	// plumb them through without a breaking change later.
	SyncURL             string
	SyncAuthToken       string
	SyncIntervalSeconds int
	EncryptionKey       string
	UseReplica          bool

	// OrphanThreshold overrides defaultOrphanThreshold, the cutoff
	// CleanupOrphanedJobs uses to decide a processing job has been
	// abandoned by a dead worker.
	OrphanThreshold time.Duration
}

// Store is the durable backing for documents, jobs, batches and usage. It
// owns a single *bun.DB and serializes writes to a single open connection
// (SetMaxOpenConns(1)) since SQLite itself permits only one writer at a
// time.
type Store struct {
	db              *bun.DB
	orphanThreshold time.Duration
}

// Open creates (or opens) the embedded database at opts.Path, sets the
// pragmas this system requires (WAL journaling, a ≥5s busy timeout,
// NORMAL synchronous durability, an in-memory temp store), and runs
// auto-migration if the documents table does not yet exist.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Path != ":memory:" {
		if dir := filepath.Dir(opts.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("store: creating data dir %s: %w", dir, err)
			}
		}
	}

	dsn := dsnFor(opts.Path)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: opening %s: %w", opts.Path, err)
	}
	// SQLite allows exactly one writer; a single connection turns would-be
	// concurrent writers into serialized callers instead of SQLITE_BUSY
	// storms, leaving dao.Retrying to absorb the remaining contention from
	// cross-process or cross-connection races.
	sqlDB.SetMaxOpenConns(1)

	db := bun.NewDB(sqlDB, sqlitedialect.New())

	if err := migrate(ctx, db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	threshold := opts.OrphanThreshold
	if threshold <= 0 {
		threshold = defaultOrphanThreshold
	}
	return &Store{db: db, orphanThreshold: threshold}, nil
}

// dsnFor builds the modernc.org/sqlite DSN carrying the pragmas this
// system requires.
func dsnFor(path string) string {
	q := url.Values{}
	q.Set("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "synchronous(NORMAL)")
	q.Add("_pragma", "temp_store(MEMORY)")
	if path == ":memory:" {
		return "file::memory:?" + q.Encode() + "&cache=shared"
	}
	return "file:" + path + "?" + q.Encode()
}

// DB exposes the underlying *bun.DB for callers, such as tests, that need
// to issue queries directly.
func (s *Store) DB() *bun.DB {
	return s.db
}

// Transaction runs fn atomically. If fn returns an error the transaction is
// rolled back; otherwise it is committed.
func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	return s.db.RunInTx(ctx, nil, fn)
}

// Close releases the underlying database handle. It must be called after
// the Dispatcher has fully drained so no in-flight write races the close.
func (s *Store) Close() error {
	return s.db.Close()
}

// retryWrite routes a write operation through dao.Retrying so a transient
// SQLITE_BUSY/SQLITE_LOCKED collision between the API, workers, and the
// cleanup sweep is absorbed instead of surfaced to the caller.
func (s *Store) retryWrite(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return dao.Retrying(ctx, op, fn)
}

// now is overridable in tests that need to pin wall-clock time; production
// code always calls time.Now directly through this indirection point.
var now = time.Now
