package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// sqlStore implements Store over database/sql. The sqlite and postgres
// backends differ only in driver name and placeholder syntax.
type sqlStore struct {
	name   string
	db     *sql.DB
	get    string
	upsert string
}

const createSnapshotsTable = `CREATE TABLE IF NOT EXISTS snapshots (
	id         TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at BIGINT NOT NULL
)`

func openSQLStore(ctx context.Context, name, driver, dsn, get, upsert string) (*sqlStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s store: failed to open database: %w", name, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s store: failed to connect: %w", name, err)
	}

	if _, err := db.ExecContext(ctx, createSnapshotsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s store: failed to create table: %w", name, err)
	}

	return &sqlStore{name: name, db: db, get: get, upsert: upsert}, nil
}

func (s *sqlStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.get, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s store: get %q: %w", s.name, key, err)
	}
	return []byte(value), nil
}

func (s *sqlStore) Put(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, s.upsert, key, string(value), time.Now().Unix()); err != nil {
		return fmt.Errorf("%s store: put %q: %w", s.name, key, err)
	}
	return nil
}

func (s *sqlStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
