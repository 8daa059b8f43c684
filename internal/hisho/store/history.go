package store

import (
	"context"
	"fmt"

	"github.com/bdobrica/Hisho/internal/hisho/session"
)

// LoadHistory returns the newest limit messages for userID, oldest first.
func (s *Store) LoadHistory(ctx context.Context, userID string, limit int) ([]session.Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, ts FROM (
			SELECT id, role, content, ts FROM conversation_history
			WHERE user_id = ?
			ORDER BY id DESC
			LIMIT ?
		) ORDER BY id ASC
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: load history: %w", err)
	}
	defer rows.Close()

	var out []session.Message
	for rows.Next() {
		var (
			m    session.Message
			role string
		)
		if err := rows.Scan(&role, &m.Content, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("store: scan history: %w", err)
		}
		m.Role = session.Role(role)
		out = append(out, m)
	}
	return out, rows.Err()
}

// AppendHistory stores msgs for userID and trims the user's history to the
// newest keep rows. Both happen in one transaction.
func (s *Store) AppendHistory(ctx context.Context, userID string, msgs []session.Message, keep int) error {
	if len(msgs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: append history: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	for _, m := range msgs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO conversation_history (user_id, role, content, ts) VALUES (?, ?, ?, ?)",
			userID, string(m.Role), m.Content, m.Timestamp.UTC(),
		); err != nil {
			return fmt.Errorf("store: append history: %w", err)
		}
	}
	if keep > 0 {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM conversation_history
			WHERE user_id = ? AND id NOT IN (
				SELECT id FROM conversation_history WHERE user_id = ? ORDER BY id DESC LIMIT ?
			)`, userID, userID, keep,
		); err != nil {
			return fmt.Errorf("store: trim history: %w", err)
		}
	}
	return tx.Commit()
}

// ClearHistory deletes every stored message for userID.
func (s *Store) ClearHistory(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM conversation_history WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("store: clear history: %w", err)
	}
	return nil
}

var _ session.HistoryBackend = (*Store)(nil)
