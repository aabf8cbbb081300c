package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/bigbes/tg-identity-store/internal/metrics"
	"github.com/bigbes/tg-identity-store/internal/store/migrations"
)

const migrationTable = "schema_migrations"

type migration struct {
	version string
	name    string
	sql     string
}

// Migrate brings the schema to the latest known version, applying pending
// migrations in strictly ascending version order, one transaction per
// migration. Safe to call on every startup: already-applied versions are
// skipped, and concurrent processes racing on the same migration resolve
// through the bookkeeping row's primary key (the loser rolls back).
// Returns the versions applied by this call.
func (s *Store) Migrate(ctx context.Context) ([]string, error) {
	pending, err := loadMigrations()
	if err != nil {
		return nil, fmt.Errorf("store: %w: %v", ErrMigration, err)
	}

	if _, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS `+migrationTable+` (
  version TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  applied_at INTEGER NOT NULL
)`); err != nil {
		return nil, fmt.Errorf("store: %w: ensure %s: %v", ErrMigration, migrationTable, err)
	}

	var applied []string
	for _, m := range pending {
		ok, err := s.applyMigration(ctx, m)
		if err != nil {
			return applied, fmt.Errorf("store: %w: %s: %v", ErrMigration, m.version, err)
		}
		if ok {
			applied = append(applied, m.version)
			metrics.MigrationsApplied.Inc()
			s.logger.Info("applied migration", "version", m.version, "name", m.name)
		}
	}
	return applied, nil
}

// applyMigration runs one migration in its own transaction. The bookkeeping
// insert goes first so two processes applying the same version serialize on
// the primary key; the one that loses sees the row and skips.
func (s *Store) applyMigration(ctx context.Context, m migration) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM `+migrationTable+` WHERE version = ?`, m.version,
	).Scan(&exists)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("check applied: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO `+migrationTable+` (version, name, applied_at) VALUES (?, ?, ?)`,
		m.version, m.name, time.Now().UTC().Unix(),
	); err != nil {
		// Another process recorded the version between our check and
		// insert; its transaction owns the migration.
		if errors.Is(classify(err), ErrDuplicateKey) {
			return false, nil
		}
		return false, fmt.Errorf("record version: %w", err)
	}

	if _, err := tx.ExecContext(ctx, m.sql); err != nil {
		return false, fmt.Errorf("exec: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

// loadMigrations reads and orders the embedded migration files.
func loadMigrations() ([]migration, error) {
	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var out []migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		version, rest, ok := strings.Cut(entry.Name(), "_")
		if !ok || version == "" {
			return nil, fmt.Errorf("malformed migration filename %q", entry.Name())
		}
		content, err := fs.ReadFile(migrations.FS, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		out = append(out, migration{
			version: version,
			name:    strings.TrimSuffix(rest, ".sql"),
			sql:     string(content),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}
