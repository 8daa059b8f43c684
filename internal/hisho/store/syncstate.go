package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SaveSyncValue upserts one piece of Matrix sync state (the filter id or the
// next_batch token) for the bot account userID.
func (s *Store) SaveSyncValue(ctx context.Context, userID, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO matrix_sync_state (user_id, key, value)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, key) DO UPDATE SET value = excluded.value
	`, userID, key, value)
	if err != nil {
		return fmt.Errorf("store: save sync %s: %w", key, err)
	}
	return nil
}

// LoadSyncValue returns a saved sync value, or "" when none was saved.
func (s *Store) LoadSyncValue(ctx context.Context, userID, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM matrix_sync_state WHERE user_id = ? AND key = ?`, userID, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: load sync %s: %w", key, err)
	}
	return value, nil
}
