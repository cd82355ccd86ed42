package store

import (
	"context"
	"fmt"
	"os"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// PostgresStore keeps snapshots in a PostgreSQL table.
type PostgresStore struct {
	*sqlStore
}

// NewPostgresStore connects using dsn. Environment variables in dsn are
// expanded.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	dsn = os.ExpandEnv(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("postgres store: dsn is required")
	}

	s, err := openSQLStore(ctx, "postgres", "postgres", dsn,
		`SELECT value FROM snapshots WHERE id = $1`,
		`INSERT INTO snapshots (id, value, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{sqlStore: s}, nil
}
