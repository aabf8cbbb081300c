package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"
)

// Peer is a resolved protocol-level contact/entity. The surrogate ID is
// stable for the row's lifetime and carries no meaning beyond identity;
// callers key their logic off Username.
type Peer struct {
	ID       int64
	Username string
	PeerType int
	PeerID   int64
	// AccessHash is nil when the entity never required one or has not
	// been resolved yet. Absence is distinct from zero.
	AccessHash *int64
}

// UpsertPeer inserts a new peer for an unseen username, or updates
// peer_type, peer_id and access_hash of the existing row in place,
// preserving its id. The whole operation is a single atomic statement.
func (s *Store) UpsertPeer(ctx context.Context, username string, peerType int, peerID int64, accessHash *int64) (p Peer, err error) {
	start := time.Now()
	defer func() { observe("peers", "upsert", start, err) }()

	if username == "" {
		return Peer{}, fmt.Errorf("store: upsert peer: username is required: %w", ErrConstraintViolation)
	}

	p = Peer{Username: username, PeerType: peerType, PeerID: peerID, AccessHash: accessHash}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO peers (username, peer_type, peer_id, access_hash)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(username) DO UPDATE SET
		   peer_type = excluded.peer_type,
		   peer_id = excluded.peer_id,
		   access_hash = excluded.access_hash
		 RETURNING id`,
		username, peerType, peerID, nullInt64(accessHash),
	).Scan(&p.ID)
	if err != nil {
		return Peer{}, fmt.Errorf("store: upsert peer %q: %w", username, classify(err))
	}
	return p, nil
}

// InsertPeer is the raw variant of UpsertPeer: it fails with
// ErrDuplicateKey if the username is already present.
func (s *Store) InsertPeer(ctx context.Context, username string, peerType int, peerID int64, accessHash *int64) (p Peer, err error) {
	start := time.Now()
	defer func() { observe("peers", "insert", start, err) }()

	if username == "" {
		return Peer{}, fmt.Errorf("store: insert peer: username is required: %w", ErrConstraintViolation)
	}

	p = Peer{Username: username, PeerType: peerType, PeerID: peerID, AccessHash: accessHash}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO peers (username, peer_type, peer_id, access_hash)
		 VALUES (?, ?, ?, ?)
		 RETURNING id`,
		username, peerType, peerID, nullInt64(accessHash),
	).Scan(&p.ID)
	if err != nil {
		return Peer{}, fmt.Errorf("store: insert peer %q: %w", username, classify(err))
	}
	return p, nil
}

// GetPeerByUsername returns the peer mapped to username, or ErrNotFound.
func (s *Store) GetPeerByUsername(ctx context.Context, username string) (p Peer, err error) {
	start := time.Now()
	defer func() { observe("peers", "get", start, err) }()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, peer_type, peer_id, access_hash
		 FROM peers WHERE username = ?`, username)
	p, err = scanPeer(row)
	if err != nil {
		return Peer{}, notFoundAs(err, "peer", username)
	}
	return p, nil
}

// GetPeerByID returns the peer with the given surrogate id, or ErrNotFound.
func (s *Store) GetPeerByID(ctx context.Context, id int64) (p Peer, err error) {
	start := time.Now()
	defer func() { observe("peers", "get", start, err) }()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, peer_type, peer_id, access_hash
		 FROM peers WHERE id = ?`, id)
	p, err = scanPeer(row)
	if err != nil {
		return Peer{}, notFoundAs(err, "peer", strconv.FormatInt(id, 10))
	}
	return p, nil
}

// ListPeers returns all peers ordered by id.
func (s *Store) ListPeers(ctx context.Context) (peers []Peer, err error) {
	start := time.Now()
	defer func() { observe("peers", "list", start, err) }()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, peer_type, peer_id, access_hash
		 FROM peers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: query peers: %w", classify(err))
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPeer(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan peer: %w", err)
		}
		peers = append(peers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate peers: %w", classify(err))
	}
	return peers, nil
}

// DeletePeer removes the peer mapped to username. Returns ErrNotFound if
// no such mapping exists.
func (s *Store) DeletePeer(ctx context.Context, username string) (err error) {
	start := time.Now()
	defer func() { observe("peers", "delete", start, err) }()

	res, err := s.db.ExecContext(ctx, `DELETE FROM peers WHERE username = ?`, username)
	if err != nil {
		return fmt.Errorf("store: delete peer %q: %w", username, classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete peer %q: %w", username, classify(err))
	}
	if n == 0 {
		return fmt.Errorf("store: peer %q: %w", username, ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPeer(row rowScanner) (Peer, error) {
	var p Peer
	var hash sql.NullInt64
	if err := row.Scan(&p.ID, &p.Username, &p.PeerType, &p.PeerID, &hash); err != nil {
		return Peer{}, err
	}
	if hash.Valid {
		v := hash.Int64
		p.AccessHash = &v
	}
	return p, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
