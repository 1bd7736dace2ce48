package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"wavebench/internal/benchmark"
	"wavebench/internal/process"

	"github.com/spf13/afero"
)

// Family selects which collection of the combined document a target's
// payloads land in.
type Family int

const (
	FamilyIsolated Family = iota
	FamilyNative
)

// Invocation is what every target receives for one batch.
type Invocation struct {
	Profile    benchmark.ScaleProfile
	DataDir    string
	ResultsDir string
}

// Target is one library's way of being run. Prepare performs every check
// and pre-step (existence, build) and returns the process to run; Collect
// turns the finished process into raw payloads. Both report classified
// failures as *FailureError.
type Target interface {
	Library() benchmark.Library
	Family() Family
	Runner() process.Runner
	Prepare(ctx context.Context, inv Invocation) (process.Spec, error)
	Collect(inv Invocation, res process.Result) ([]json.RawMessage, error)
}

// Runners holds the process runners targets are built with.
type Runners struct {
	Exec      process.Runner
	Container process.Runner
}

// NewTarget builds the target matching lib.Kind.
func NewTarget(lib benchmark.Library, fs afero.Fs, runners Runners) (Target, error) {
	switch lib.Kind {
	case benchmark.KindIsolated, "":
		return &IsolatedTarget{Lib: lib, Fs: fs, Exec: runners.Exec}, nil
	case benchmark.KindContainer:
		if runners.Container == nil {
			return nil, fmt.Errorf("library %s needs a container runtime, none is configured", lib.Name)
		}
		return &ContainerTarget{Lib: lib, Fs: fs, Exec: runners.Container}, nil
	case benchmark.KindBuild:
		return &BuildTarget{Lib: lib, Fs: fs, Exec: runners.Exec}, nil
	default:
		return nil, fmt.Errorf("library %s: unknown kind %q", lib.Name, lib.Kind)
	}
}

// EffectiveDataDir prefers a subdirectory named after the scale.
func EffectiveDataDir(fs afero.Fs, dir, scale string) string {
	scaled := filepath.Join(dir, scale)
	if ok, err := afero.DirExists(fs, scaled); err == nil && ok {
		return scaled
	}
	return dir
}

// OutputPath is the per-library payload file inside the results directory.
func OutputPath(resultsDir string, lib benchmark.Library) string {
	return filepath.Join(resultsDir, lib.PayloadFile())
}

// collectPayload reads the payload from the output file, falling back to
// what the process printed.
func collectPayload(fs afero.Fs, output string, res process.Result) ([]json.RawMessage, error) {
	data, err := afero.ReadFile(fs, output)
	switch {
	case err == nil:
	case os.IsNotExist(err):
		data = bytes.TrimSpace(res.Stdout)
		if len(data) == 0 {
			return nil, failf(benchmark.FailureNoOutput, "no output produced (rc=%d)", res.ExitCode)
		}
	default:
		return nil, failf(benchmark.FailureNoOutput, "failed to read %s: %v", output, err)
	}
	return decodePayloads(data)
}

// decodePayloads accepts a single payload object or an array of them.
func decodePayloads(data []byte) ([]json.RawMessage, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, bytes.TrimSpace(data)); err != nil {
		return nil, failf(benchmark.FailureParseError, "JSON parse error: %v", err)
	}
	compact := buf.Bytes()
	switch compact[0] {
	case '{':
		return []json.RawMessage{compact}, nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(compact, &items); err != nil {
			return nil, failf(benchmark.FailureParseError, "JSON parse error: %v", err)
		}
		return items, nil
	default:
		return nil, failf(benchmark.FailureParseError, "JSON parse error: expected an object or array, got %s", compact)
	}
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%g", d.Seconds())
}
