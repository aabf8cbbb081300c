package store

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Sentinel errors returned by store operations. Callers match them with
// errors.Is; the wrapped message carries the table and key context.
var (
	// ErrNotFound is returned by lookups and deletes when no row matches
	// the natural key.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned by raw inserts that collide with an
	// existing unique natural key. Upserts never return it.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrConstraintViolation is returned for integrity failures that are
	// not a recognizable unique-key collision. Not retried.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrMigration is returned when the schema could not be brought
	// current. Fatal to startup.
	ErrMigration = errors.New("migration failed")

	// ErrStorageUnavailable is returned for I/O and connection failures.
	// The caller may retry with backoff; the store performs no retries.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// classify maps a driver error onto the store's sentinel errors, keeping
// the original error in the chain. Unrecognized errors pass through as-is.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, driver.ErrBadConn) {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return err
	}

	switch serr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	}

	switch serr.Code() & 0xff {
	case sqlite3.SQLITE_CONSTRAINT:
		return fmt.Errorf("%w: %v", ErrConstraintViolation, err)
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED,
		sqlite3.SQLITE_IOERR, sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_FULL:
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return err
}

// notFoundAs rewrites sql.ErrNoRows into ErrNotFound with key context.
func notFoundAs(err error, table, key string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("store: %s %q: %w", table, key, ErrNotFound)
	}
	return classify(err)
}
