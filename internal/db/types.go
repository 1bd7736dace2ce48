package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wavebench/internal/benchmark"

	"github.com/google/uuid"
)

// ErrRunNotFound is returned when no run matches the lookup.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded benchmark batch.
type Run struct {
	ID        string             `json:"id"`
	Scale     string             `json:"scale"`
	CreatedAt time.Time          `json:"created_at"`
	Passed    int                `json:"passed"`
	Failed    int                `json:"failed"`
	Records   []benchmark.Record `json:"records"`
}

// RunSummary is a Run without its records.
type RunSummary struct {
	ID        string    `json:"id"`
	Scale     string    `json:"scale"`
	CreatedAt time.Time `json:"created_at"`
	Passed    int       `json:"passed"`
	Failed    int       `json:"failed"`
}

// NewRun stamps records as a new run with a fresh identifier.
func NewRun(scale string, records []benchmark.Record, at time.Time) Run {
	run := Run{ID: uuid.NewString(), Scale: scale, CreatedAt: at.UTC(), Records: records}
	for _, r := range records {
		if r.OK() {
			run.Passed++
		} else {
			run.Failed++
		}
	}
	return run
}

// Summary drops the records.
func (r Run) Summary() RunSummary {
	return RunSummary{ID: r.ID, Scale: r.Scale, CreatedAt: r.CreatedAt, Passed: r.Passed, Failed: r.Failed}
}

// Store persists benchmark runs.
type Store interface {
	Close() error
	SaveRun(run Run) error
	ListRuns(limit int) ([]RunSummary, error)
	LoadRun(id string) (*Run, error)
	// LatestRun returns the newest run of scale, or ErrRunNotFound.
	LatestRun(scale string) (*Run, error)
}

func encodeRecords(records []benchmark.Record) (string, error) {
	if records == nil {
		records = []benchmark.Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("failed to encode records: %w", err)
	}
	return string(data), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var records string
	if err := row.Scan(&run.ID, &run.Scale, &run.CreatedAt, &run.Passed, &run.Failed, &records); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(records), &run.Records); err != nil {
		return nil, fmt.Errorf("failed to decode records of run %s: %w", run.ID, err)
	}
	return &run, nil
}
