package store

import (
	"context"
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/uptrace/bun"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// highestMigration returns the embedded migration with the largest numeric
// prefix (e.g. "0002_add_foo.sql" beats "0001_init.sql"), which is the
// canonical migration for a fresh install.
func highestMigration() (name string, sql string, err error) {
	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return "", "", fmt.Errorf("store: reading embedded migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", "", fmt.Errorf("store: no embedded migrations found")
	}
	sort.Strings(names)
	latest := names[len(names)-1]
	data, err := migrationFiles.ReadFile(path.Join("migrations", latest))
	if err != nil {
		return "", "", fmt.Errorf("store: reading migration %s: %w", latest, err)
	}
	return latest, string(data), nil
}

// hasDocumentsTable reports whether the "documents" table already exists,
// used to decide whether auto-migration should run at all.
func hasDocumentsTable(ctx context.Context, db bun.IDB) (bool, error) {
	var name string
	err := db.NewRaw("SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'documents'").Scan(ctx, &name)
	if err != nil {
		if err.Error() == "sql: no rows in result set" {
			return false, nil
		}
		return false, err
	}
	return name == "documents", nil
}

// isDuplicateObjectError reports whether err indicates an object (table,
// index) already exists — tolerated during auto-migration since CREATE ...
// IF NOT EXISTS already guards against this in the shipped migration, but a
// future migration author may omit the guard.
func isDuplicateObjectError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists")
}

// migrate applies the highest-numbered embedded migration inside a single
// transaction when the documents table is not yet present. It is a no-op on
// an already-initialized store. Statements that would duplicate existing
// objects are tolerated; any other failure aborts the transaction.
func migrate(ctx context.Context, db *bun.DB) error {
	exists, err := hasDocumentsTable(ctx, db)
	if err != nil {
		return fmt.Errorf("store: checking schema state: %w", err)
	}
	if exists {
		return nil
	}

	name, script, err := highestMigration()
	if err != nil {
		return err
	}

	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, stmt := range splitStatements(script) {
			if stmt == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx, stmt); err != nil && !isDuplicateObjectError(err) {
				return fmt.Errorf("store: applying migration %s: %w", name, err)
			}
		}
		return nil
	})
}

// splitStatements splits a migration script on statement-terminating
// semicolons. The shipped migrations contain no semicolons inside string
// literals, so this simple split is sufficient.
func splitStatements(script string) []string {
	parts := strings.Split(script, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}
