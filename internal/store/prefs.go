package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// LoadPref returns the JSON-encoded preference value stored under key.
// The second return is false when no value has been saved yet.
func (s *SQLiteStore) LoadPref(ctx context.Context, key string) (string, bool, error) {
	var value string

	err := s.prefStmts.get.QueryRowContext(ctx, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("load pref %s: %w", key, err)
	}

	return value, true, nil
}

// SavePref stores the JSON-encoded preference value under key,
// replacing any previous value.
func (s *SQLiteStore) SavePref(ctx context.Context, key, value string) error {
	if _, err := s.prefStmts.save.ExecContext(ctx, key, value, time.Now().UnixNano()); err != nil {
		return fmt.Errorf("save pref %s: %w", key, err)
	}

	return nil
}
