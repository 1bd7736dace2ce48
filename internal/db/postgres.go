package db

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to dsn and applies migrations.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			scale TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			passed INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			records JSONB NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_scale_created ON runs (scale, created_at);`,
	}
	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) SaveRun(run Run) error {
	records, err := encodeRecords(run.Records)
	if err != nil {
		return err
	}
	query := `INSERT INTO runs (id, scale, created_at, passed, failed, records) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = s.db.Exec(query, run.ID, run.Scale, run.CreatedAt, run.Passed, run.Failed, records)
	return err
}

func (s *PostgresStore) ListRuns(limit int) ([]RunSummary, error) {
	query := `SELECT id, scale, created_at, passed, failed FROM runs ORDER BY created_at DESC LIMIT $1`
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.Scale, &r.CreatedAt, &r.Passed, &r.Failed); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *PostgresStore) LoadRun(id string) (*Run, error) {
	query := `SELECT id, scale, created_at, passed, failed, records FROM runs WHERE id = $1`
	return lookup(s.db.QueryRow(query, id))
}

func (s *PostgresStore) LatestRun(scale string) (*Run, error) {
	query := `SELECT id, scale, created_at, passed, failed, records FROM runs WHERE scale = $1 ORDER BY created_at DESC LIMIT 1`
	return lookup(s.db.QueryRow(query, scale))
}
