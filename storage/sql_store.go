package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// sqlStore is the shared key-value implementation behind the SQLite and
// PostgreSQL backends. Only the placeholder style and schema differ.
type sqlStore struct {
	name   string
	db     *sql.DB
	get    string
	upsert string
}

func (s *sqlStore) Get(ctx context.Context, key string, dst any) (bool, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, s.get, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: get %q: %w", s.name, key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("%s: decode %q: %w", s.name, key, err)
	}
	return true, nil
}

func (s *sqlStore) Put(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: encode %q: %w", s.name, key, err)
	}
	if _, err := s.db.ExecContext(ctx, s.upsert, key, string(raw)); err != nil {
		return fmt.Errorf("%s: put %q: %w", s.name, key, err)
	}
	return nil
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}
