package store

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// Chat is a local handle for a tracked protocol-level chat/group, keyed
// by the protocol's own chat identifier.
type Chat struct {
	ID     int64
	ChatID int64
}

// UpsertChat starts tracking chatID. Idempotent: if the chat is already
// tracked the existing row (same id) is returned. The conflict branch is a
// no-op self-assignment so the statement still returns the surviving row.
func (s *Store) UpsertChat(ctx context.Context, chatID int64) (c Chat, err error) {
	start := time.Now()
	defer func() { observe("chats", "upsert", start, err) }()

	c = Chat{ChatID: chatID}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO chats (chat_id) VALUES (?)
		 ON CONFLICT(chat_id) DO UPDATE SET chat_id = excluded.chat_id
		 RETURNING id`,
		chatID,
	).Scan(&c.ID)
	if err != nil {
		return Chat{}, fmt.Errorf("store: upsert chat %d: %w", chatID, classify(err))
	}
	return c, nil
}

// GetChat returns the tracking row for chatID, or ErrNotFound.
func (s *Store) GetChat(ctx context.Context, chatID int64) (c Chat, err error) {
	start := time.Now()
	defer func() { observe("chats", "get", start, err) }()

	err = s.db.QueryRowContext(ctx,
		`SELECT id, chat_id FROM chats WHERE chat_id = ?`, chatID,
	).Scan(&c.ID, &c.ChatID)
	if err != nil {
		return Chat{}, notFoundAs(err, "chat", strconv.FormatInt(chatID, 10))
	}
	return c, nil
}

// ListChats returns all tracked chats ordered by id.
func (s *Store) ListChats(ctx context.Context) (chats []Chat, err error) {
	start := time.Now()
	defer func() { observe("chats", "list", start, err) }()

	rows, err := s.db.QueryContext(ctx, `SELECT id, chat_id FROM chats ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: query chats: %w", classify(err))
	}
	defer rows.Close()

	for rows.Next() {
		var c Chat
		if err := rows.Scan(&c.ID, &c.ChatID); err != nil {
			return nil, fmt.Errorf("store: scan chat: %w", err)
		}
		chats = append(chats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate chats: %w", classify(err))
	}
	return chats, nil
}

// DeleteChat stops tracking chatID. Returns ErrNotFound if the chat was
// not tracked.
func (s *Store) DeleteChat(ctx context.Context, chatID int64) (err error) {
	start := time.Now()
	defer func() { observe("chats", "delete", start, err) }()

	res, err := s.db.ExecContext(ctx, `DELETE FROM chats WHERE chat_id = ?`, chatID)
	if err != nil {
		return fmt.Errorf("store: delete chat %d: %w", chatID, classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete chat %d: %w", chatID, classify(err))
	}
	if n == 0 {
		return fmt.Errorf("store: chat %d: %w", chatID, ErrNotFound)
	}
	return nil
}
