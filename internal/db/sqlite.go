package db

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at path and applies migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		scale TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		passed INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		records TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_scale_created ON runs (scale, created_at);
	`
	_, err := s.db.Exec(query)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRun(run Run) error {
	records, err := encodeRecords(run.Records)
	if err != nil {
		return err
	}
	query := `INSERT INTO runs (id, scale, created_at, passed, failed, records) VALUES (?, ?, ?, ?, ?, ?)`
	_, err = s.db.Exec(query, run.ID, run.Scale, run.CreatedAt, run.Passed, run.Failed, records)
	return err
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(limit int) ([]RunSummary, error) {
	query := `SELECT id, scale, created_at, passed, failed FROM runs ORDER BY created_at DESC LIMIT ?`
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

func (s *SQLiteStore) LoadRun(id string) (*Run, error) {
	query := `SELECT id, scale, created_at, passed, failed, records FROM runs WHERE id = ?`
	return lookup(s.db.QueryRow(query, id))
}

func (s *SQLiteStore) LatestRun(scale string) (*Run, error) {
	query := `SELECT id, scale, created_at, passed, failed, records FROM runs WHERE scale = ? ORDER BY created_at DESC LIMIT 1`
	return lookup(s.db.QueryRow(query, scale))
}

func lookup(row *sql.Row) (*Run, error) {
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	return run, err
}
