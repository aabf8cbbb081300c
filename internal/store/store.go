// Package store is the SQLite-backed peer/session identity store. It maps
// transport-level identities (phone number, chat id, username) to
// protocol-level identifiers and opaque serialized session state.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/bigbes/tg-identity-store/internal/metrics"
)

// Store owns the three identity tables (peers, sessions, chats).
// All operations are safe for concurrent use; per-key atomicity is
// provided by single-statement upserts inside SQLite transactions.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the SQLite database at path. The schema is not
// touched here; call Migrate before issuing reads or writes.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", path, err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", pragma, classify(err))
		}
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the backing database is reachable.
func (s *Store) Ping() error {
	if err := s.db.Ping(); err != nil {
		return fmt.Errorf("store: ping: %w", classify(err))
	}
	return nil
}

// observe records one finished operation in the Prometheus counters.
func observe(table, op string, start time.Time, err error) {
	outcome := "ok"
	switch {
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	case err != nil:
		outcome = "error"
	}
	metrics.StoreOpsTotal.WithLabelValues(table, op, outcome).Inc()
	metrics.StoreOpDuration.WithLabelValues(table, op).Observe(time.Since(start).Seconds())
}
