package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore keeps snapshots in a SQLite database file.
type SQLiteStore struct {
	*sqlStore
	path string
}

// NewSQLiteStore opens (and creates if needed) the database at path.
// An empty path defaults to ./tinkerpen.db.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		path = "./tinkerpen.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("sqlite store: failed to create %s: %w", dir, err)
		}
	}

	s, err := openSQLStore(ctx, "sqlite", "sqlite", path,
		`SELECT value FROM snapshots WHERE id = ?`,
		`INSERT INTO snapshots (id, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`)
	if err != nil {
		return nil, err
	}
	// SQLite serializes writers; a single connection avoids SQLITE_BUSY.
	s.db.SetMaxOpenConns(1)

	return &SQLiteStore{sqlStore: s, path: path}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}
