// Package prefs stores per-user preferences in the application database.
// Preferences fill action parameters the user did not state: the default
// calendar, how many emails a listing shows, and the time zone used to read
// dates.
package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bdobrica/Hisho/internal/hisho/store"
)

// Preference keys.
const (
	KeyCalendar   = "calendar"
	KeyEmailCount = "email_count"
	KeyTimezone   = "timezone"
)

// Keys lists every settable key in display order.
var Keys = []string{KeyCalendar, KeyEmailCount, KeyTimezone}

var (
	// ErrNotFound is returned by Get when the user has not set key and no
	// default exists.
	ErrNotFound = errors.New("prefs: not set")
	// ErrUnknownKey is returned for keys outside Keys.
	ErrUnknownKey = errors.New("prefs: unknown key")
	// ErrInvalidValue is returned when a value fails its key's validation.
	ErrInvalidValue = errors.New("prefs: invalid value")
)

// Store reads and writes preferences. Implementations must be safe for
// concurrent use.
type Store interface {
	// Get returns the user's value for key, falling back to the default.
	Get(ctx context.Context, userID, key string) (string, error)
	// Set validates and upserts value.
	Set(ctx context.Context, userID, key, value string) error
	// Delete reverts key to its default. Deleting an unset key is a no-op.
	Delete(ctx context.Context, userID, key string) error
	// List returns the defaults overlaid with the user's own values. The map
	// is never nil.
	List(ctx context.Context, userID string) (map[string]string, error)
}

type sqliteStore struct {
	db       *store.Store
	defaults map[string]string
}

// New returns a Store over db. defaults supplies values for keys a user has
// not set; unknown keys in defaults are ignored.
func New(db *store.Store, defaults map[string]string) Store {
	d := make(map[string]string, len(Keys))
	for _, k := range Keys {
		if v := defaults[k]; v != "" {
			d[k] = v
		}
	}
	return &sqliteStore{db: db, defaults: d}
}

// Validate checks value against key's rules.
func Validate(key, value string) error {
	switch key {
	case KeyCalendar:
		if value == "" {
			return fmt.Errorf("%w: calendar name is empty", ErrInvalidValue)
		}
	case KeyEmailCount:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 || n > 50 {
			return fmt.Errorf("%w: email_count must be a number from 1 to 50", ErrInvalidValue)
		}
	case KeyTimezone:
		if _, err := time.LoadLocation(value); err != nil || value == "" || value == "Local" {
			return fmt.Errorf("%w: %q is not an IANA time zone", ErrInvalidValue, value)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return nil
}

func (s *sqliteStore) Get(ctx context.Context, userID, key string) (string, error) {
	var value string
	err := s.db.DB().QueryRowContext(ctx,
		`SELECT value FROM user_preferences WHERE user_id = ? AND key = ?`, userID, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		if d, ok := s.defaults[key]; ok {
			return d, nil
		}
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("prefs: get %q: %w", key, err)
	}
	return value, nil
}

func (s *sqliteStore) Set(ctx context.Context, userID, key, value string) error {
	if err := Validate(key, value); err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.DB().ExecContext(ctx, `
		INSERT INTO user_preferences (user_id, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, key) DO UPDATE SET
			value      = excluded.value,
			updated_at = excluded.updated_at
	`, userID, key, value, now)
	if err != nil {
		return fmt.Errorf("prefs: set %q: %w", key, err)
	}
	return nil
}

func (s *sqliteStore) Delete(ctx context.Context, userID, key string) error {
	_, err := s.db.DB().ExecContext(ctx,
		`DELETE FROM user_preferences WHERE user_id = ? AND key = ?`, userID, key)
	if err != nil {
		return fmt.Errorf("prefs: delete %q: %w", key, err)
	}
	return nil
}

func (s *sqliteStore) List(ctx context.Context, userID string) (map[string]string, error) {
	result := make(map[string]string, len(Keys))
	for k, v := range s.defaults {
		result[k] = v
	}

	rows, err := s.db.DB().QueryContext(ctx,
		`SELECT key, value FROM user_preferences WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("prefs: list: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("prefs: list scan: %w", err)
		}
		result[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("prefs: list rows: %w", err)
	}
	return result, nil
}
