// Package store provides the key-value backends the playground persists
// snapshots in.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("key not found")

// Store is a minimal key-value store. Writes overwrite; the last writer wins.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error

	// Close releases resources held by the store.
	Close() error
}

// Driver names accepted by Open.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverDir      = "dir"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Driver   string // one of the Driver* constants (default: memory)
	Path     string // file: directory; dir: pen directory; sqlite: database file
	DSN      string // postgres connection string
	Addr     string // redis address
	Password string // redis password
	DB       int    // redis database number
	Prefix   string // redis key prefix
}

// Open creates the store described by opts.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(opts.Driver) {
	case "", DriverMemory:
		return NewMemoryStore(), nil
	case DriverFile:
		return NewFileStore(opts.Path)
	case DriverDir:
		return NewDirStore(opts.Path)
	case DriverSQLite:
		return NewSQLiteStore(ctx, opts.Path)
	case DriverPostgres:
		return NewPostgresStore(ctx, opts.DSN)
	case DriverRedis:
		return NewRedisStore(ctx, opts.Addr, opts.Password, opts.DB, opts.Prefix)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}
