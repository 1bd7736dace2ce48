package db

import (
	"fmt"
	"strings"
)

// DefaultSQLitePath is used when an SQLite store has no path configured.
const DefaultSQLitePath = ".wavebench.db"

// StoreConfig holds configuration for the storage backend
type StoreConfig struct {
	Type             string // "sqlite", "postgres" or "none"
	ConnectionString string // File path for SQLite, DSN for Postgres
}

// NewStore creates a new Store instance based on the provided configuration
func NewStore(config StoreConfig) (Store, error) {
	switch strings.ToLower(config.Type) {
	case "postgres", "postgresql":
		if config.ConnectionString == "" {
			return nil, fmt.Errorf("postgres connection string is required")
		}
		return NewPostgresStore(config.ConnectionString)
	case "sqlite", "sqlite3", "":
		if config.ConnectionString == "" {
			config.ConnectionString = DefaultSQLitePath
		}
		return NewSQLiteStore(config.ConnectionString)
	case "none", "off":
		return NopStore{}, nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}
}

// NopStore discards runs; used when history is disabled.
type NopStore struct{}

func (NopStore) Close() error                       { return nil }
func (NopStore) SaveRun(Run) error                  { return nil }
func (NopStore) ListRuns(int) ([]RunSummary, error) { return nil, nil }
func (NopStore) LoadRun(string) (*Run, error)       { return nil, ErrRunNotFound }
func (NopStore) LatestRun(string) (*Run, error)     { return nil, ErrRunNotFound }
