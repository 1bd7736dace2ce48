package benchmark

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status is the outcome of one benchmarked test.
type Status string

const (
	StatusOK      Status = "ok"
	StatusTimeout Status = "timeout"
	StatusError   Status = "error"
	// StatusUnknown is assigned when a payload omits the status field.
	StatusUnknown Status = "unknown"
)

// FailureKind classifies why a library produced no usable measurements.
type FailureKind string

const (
	FailureNotFound    FailureKind = "not_found"
	FailureTimeout     FailureKind = "timeout"
	FailureBuildFailed FailureKind = "build_failed"
	FailureNoOutput    FailureKind = "no_output"
	FailureParseError  FailureKind = "parse_error"
	FailureError       FailureKind = "error"
)

// Status maps a failure kind onto the record status it is reported with.
func (k FailureKind) Status() Status {
	if k == FailureTimeout {
		return StatusTimeout
	}
	return StatusError
}

// Record is the canonical, normalized measurement consumed by the report.
// Records are produced once by the normalizer and never mutated.
type Record struct {
	Library       string    `json:"library"`
	Language      string    `json:"language"`
	Format        string    `json:"format"`
	File          string    `json:"file"`
	Test          string    `json:"test"`
	Scale         string    `json:"scale,omitempty"`
	FileSizeBytes int64     `json:"file_size_bytes"`
	TimesS        []float64 `json:"times_s"`
	MeanS         float64   `json:"mean_s"`
	StdevS        float64   `json:"stdev_s"`
	MemoryKB      int64     `json:"memory_kb"`
	Status        Status    `json:"status"`
	Error         string    `json:"error"`
}

// OK reports whether the record holds a successful measurement.
func (r Record) OK() bool { return r.Status == StatusOK }

// Seal enforces the record invariants: failed records carry no statistics,
// sizes and memory are never negative, and ok records carry samples and no
// error text.
func (r Record) Seal() Record {
	if r.FileSizeBytes < 0 {
		r.FileSizeBytes = 0
	}
	if r.MemoryKB < 0 {
		r.MemoryKB = 0
	}
	if r.TimesS == nil {
		r.TimesS = []float64{}
	}
	if r.Status == StatusOK && len(r.TimesS) == 0 {
		r.Status = StatusError
		r.Error = "no samples recorded"
	}
	if r.Status == StatusOK {
		r.Error = ""
	} else {
		r.MeanS = 0
		r.StdevS = 0
	}
	return r
}

// ScaleProfile governs one benchmark pass. It is resolved once from
// configuration and passed by value.
type ScaleProfile struct {
	Name string `json:"name"`
	// Timeout is the per-repetition deadline inside a benchmark program.
	Timeout time.Duration `json:"timeout"`
	// MasterTimeout bounds a whole external invocation.
	MasterTimeout time.Duration `json:"master_timeout"`
	Repetitions   int           `json:"repetitions"`
}

// Validate rejects profiles that cannot drive a run.
func (p ScaleProfile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("scale profile has no name")
	}
	if p.Repetitions < 1 {
		return fmt.Errorf("scale %q: repetitions must be >= 1, got %d", p.Name, p.Repetitions)
	}
	if p.Timeout < 0 || p.MasterTimeout < 0 {
		return fmt.Errorf("scale %q: timeouts must not be negative", p.Name)
	}
	return nil
}

// TestResult is one per-test entry of a library payload.
type TestResult struct {
	Test          string    `json:"test"`
	Scale         string    `json:"scale"`
	File          string    `json:"file"`
	FileSizeBytes int64     `json:"file_size_bytes"`
	TimesS        []float64 `json:"times_s"`
	MeanS         float64   `json:"mean_s"`
	StdevS        float64   `json:"stdev_s"`
	MemoryKB      int64     `json:"memory_kb"`
	Status        Status    `json:"status"`
	Error         string    `json:"error"`
}

// Payload is the document a library benchmark program writes: a library and
// format wrapper around its per-test results.
type Payload struct {
	Library  string       `json:"library"`
	Format   string       `json:"format"`
	Language string       `json:"language,omitempty"`
	Results  []TestResult `json:"results"`
}

// OperationResult is the flat per-operation record printed one per line by
// natively built benchmark programs.
type OperationResult struct {
	Library      string    `json:"library"`
	Format       string    `json:"format"`
	Language     string    `json:"language,omitempty"`
	File         string    `json:"file"`
	Operation    string    `json:"operation"`
	Times        []float64 `json:"times"`
	Mean         float64   `json:"mean"`
	Min          float64   `json:"min"`
	Max          float64   `json:"max"`
	Stdev        float64   `json:"stdev"`
	PeakMemoryKB int64     `json:"peak_memory_kb"`
	Status       Status    `json:"status"`
	Error        *string   `json:"error"`
}

// FailurePayload builds the single-record payload synthesized when a library
// could not be measured at all.
func FailurePayload(library, format, scale, test string, status Status, msg string) Payload {
	return Payload{
		Library: library,
		Format:  format,
		Results: []TestResult{{
			Test:   test,
			Scale:  scale,
			TimesS: []float64{},
			Status: status,
			Error:  msg,
		}},
	}
}

// TimestampLayout is the layout of CombinedDocument.Timestamp.
const TimestampLayout = "2006-01-02 15:04:05"

// CombinedDocument collects every payload of one batch. Payloads are kept
// raw so the normalizer sees the shape each program produced.
type CombinedDocument struct {
	Scale     string            `json:"scale"`
	Timestamp string            `json:"timestamp"`
	Isolated  []json.RawMessage `json:"python_results"`
	Native    []json.RawMessage `json:"rust_results"`
}

// NewCombinedDocument returns an empty document stamped with t.
func NewCombinedDocument(scale string, t time.Time) CombinedDocument {
	return CombinedDocument{
		Scale:     scale,
		Timestamp: t.Format(TimestampLayout),
		Isolated:  []json.RawMessage{},
		Native:    []json.RawMessage{},
	}
}

// Empty reports whether the document holds no payload at all.
func (d CombinedDocument) Empty() bool {
	return len(d.Isolated) == 0 && len(d.Native) == 0
}
