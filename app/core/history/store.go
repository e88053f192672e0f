package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"arbor/app/pkg/types"
)

// Store reads and writes transcript rows. One row per chat message,
// scoped by session id.
type Store struct {
	db *DB
}

func NewStore(database *DB) *Store {
	return &Store{db: database}
}

// StartSession registers a session id. Registering the same id twice is
// a no-op.
func (s *Store) StartSession(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	query := `INSERT INTO sessions (id, started_at) VALUES (?, ?) ON CONFLICT(id) DO NOTHING`
	_, err := s.db.Conn().ExecContext(ctx, query, sessionID, time.Now().UnixNano())
	return err
}

func (s *Store) AppendMessage(ctx context.Context, sessionID string, msg types.ChatMessage) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	if strings.TrimSpace(msg.ID) == "" {
		return fmt.Errorf("message id is required")
	}
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	query := `INSERT INTO messages (id, session_id, sender, content, created_at) VALUES (?, ?, ?, ?, ?)`
	_, err := s.db.Conn().ExecContext(ctx, query, msg.ID, sessionID, string(msg.Sender), msg.Text, ts.UnixNano())
	return err
}

// RecentMessages returns up to limit messages for the session in
// chronological order, keeping the newest when the session is longer
// than the window.
func (s *Store) RecentMessages(ctx context.Context, sessionID string, limit int) ([]types.ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, sender, content, created_at FROM messages WHERE session_id = ? ORDER BY created_at DESC LIMIT ?`
	rows, err := s.db.Conn().QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]types.ChatMessage, 0, limit)
	for rows.Next() {
		var (
			m       types.ChatMessage
			sender  string
			created int64
		)
		if err := rows.Scan(&m.ID, &sender, &m.Text, &created); err != nil {
			return nil, err
		}
		m.Sender = types.Sender(sender)
		m.Timestamp = time.Unix(0, created).UTC()
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// reverse to chronological order
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items, nil
}

func (s *Store) CountMessages(ctx context.Context) (int, error) {
	var n int
	err := s.db.Conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&n)
	return n, err
}

func (s *Store) CountSessions(ctx context.Context) (int, error) {
	var n int
	err := s.db.Conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n)
	return n, err
}

// PruneBefore deletes messages older than cutoff, then sessions that
// started before cutoff and no longer have any messages. Returns the
// number of messages removed.
func (s *Store) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := s.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE created_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, err
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM sessions WHERE started_at < ? AND id NOT IN (SELECT DISTINCT session_id FROM messages)`,
		cutoff.UnixNano()); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return removed, nil
}
