package store

import (
	"context"
	"fmt"
	"time"
)

// Session is the serialized authentication/connection state for one
// phone-number-identified account. The blob is opaque to the store and is
// always replaced wholesale, never patched.
type Session struct {
	ID          int64
	PhoneNumber string
	Blob        []byte
}

// UpsertSession inserts or wholesale-replaces the session blob for the
// phone number. Concurrent calls for the same number serialize on the
// database; the stored blob is always exactly one submitted value.
func (s *Store) UpsertSession(ctx context.Context, phoneNumber string, blob []byte) (sess Session, err error) {
	start := time.Now()
	defer func() { observe("sessions", "upsert", start, err) }()

	if phoneNumber == "" {
		return Session{}, fmt.Errorf("store: upsert session: phone number is required: %w", ErrConstraintViolation)
	}
	if len(blob) == 0 {
		return Session{}, fmt.Errorf("store: upsert session %q: empty session blob: %w", phoneNumber, ErrConstraintViolation)
	}

	sess = Session{PhoneNumber: phoneNumber, Blob: blob}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO sessions (phone_number, session)
		 VALUES (?, ?)
		 ON CONFLICT(phone_number) DO UPDATE SET session = excluded.session
		 RETURNING id`,
		phoneNumber, blob,
	).Scan(&sess.ID)
	if err != nil {
		return Session{}, fmt.Errorf("store: upsert session %q: %w", phoneNumber, classify(err))
	}
	return sess, nil
}

// GetSession returns the session stored for the phone number, or ErrNotFound.
func (s *Store) GetSession(ctx context.Context, phoneNumber string) (sess Session, err error) {
	start := time.Now()
	defer func() { observe("sessions", "get", start, err) }()

	err = s.db.QueryRowContext(ctx,
		`SELECT id, phone_number, session FROM sessions WHERE phone_number = ?`,
		phoneNumber,
	).Scan(&sess.ID, &sess.PhoneNumber, &sess.Blob)
	if err != nil {
		return Session{}, notFoundAs(err, "session", phoneNumber)
	}
	return sess, nil
}

// ListSessions returns all stored sessions ordered by id.
func (s *Store) ListSessions(ctx context.Context) (sessions []Session, err error) {
	start := time.Now()
	defer func() { observe("sessions", "list", start, err) }()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, phone_number, session FROM sessions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: query sessions: %w", classify(err))
	}
	defer rows.Close()

	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.PhoneNumber, &sess.Blob); err != nil {
			return nil, fmt.Errorf("store: scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate sessions: %w", classify(err))
	}
	return sessions, nil
}

// DeleteSession removes the session stored for the phone number.
// Returns ErrNotFound if no session exists.
func (s *Store) DeleteSession(ctx context.Context, phoneNumber string) (err error) {
	start := time.Now()
	defer func() { observe("sessions", "delete", start, err) }()

	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE phone_number = ?`, phoneNumber)
	if err != nil {
		return fmt.Errorf("store: delete session %q: %w", phoneNumber, classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete session %q: %w", phoneNumber, classify(err))
	}
	if n == 0 {
		return fmt.Errorf("store: session %q: %w", phoneNumber, ErrNotFound)
	}
	return nil
}
