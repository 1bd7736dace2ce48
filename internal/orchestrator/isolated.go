package orchestrator

import (
	"context"
	"encoding/json"
	"path/filepath"

	"wavebench/internal/benchmark"
	"wavebench/internal/process"

	"github.com/spf13/afero"
)

// DefaultInterpreter is the interpreter path inside an environment directory.
const DefaultInterpreter = "bin/python"

// IsolatedTarget runs an entry point with the interpreter of its own
// environment directory (a virtualenv, for instance). Without an environment
// the entry point is executed directly.
type IsolatedTarget struct {
	Lib  benchmark.Library
	Fs   afero.Fs
	Exec process.Runner
}

func (t *IsolatedTarget) Library() benchmark.Library { return t.Lib }
func (t *IsolatedTarget) Family() Family             { return FamilyIsolated }
func (t *IsolatedTarget) Runner() process.Runner     { return t.Exec }

func (t *IsolatedTarget) Prepare(ctx context.Context, inv Invocation) (process.Spec, error) {
	if ok, _ := afero.Exists(t.Fs, t.Lib.EntryPoint); t.Lib.EntryPoint == "" || !ok {
		return process.Spec{}, failf(benchmark.FailureNotFound, "entry point not found: %s", t.Lib.EntryPoint)
	}

	path, args := t.Lib.EntryPoint, []string{}
	if interp := t.interpreter(); interp != "" {
		if t.Lib.Environment != "" {
			if ok, _ := afero.Exists(t.Fs, interp); !ok {
				return process.Spec{}, failf(benchmark.FailureNotFound,
					"environment not found: %s; provision it before running the benchmark", interp)
			}
		}
		path, args = interp, []string{t.Lib.EntryPoint}
	}

	output := OutputPath(inv.ResultsDir, t.Lib)
	// A payload left over from an earlier run must not be mistaken for this one's.
	_ = t.Fs.Remove(output)

	args = append(args,
		"--data-dir", EffectiveDataDir(t.Fs, inv.DataDir, inv.Profile.Name),
		"--scale", inv.Profile.Name,
		"--output", output,
	)
	return process.Spec{
		Name:    t.Lib.Name,
		Path:    path,
		Args:    args,
		Timeout: inv.Profile.MasterTimeout,
	}, nil
}

func (t *IsolatedTarget) Collect(inv Invocation, res process.Result) ([]json.RawMessage, error) {
	return collectPayload(t.Fs, OutputPath(inv.ResultsDir, t.Lib), res)
}

func (t *IsolatedTarget) interpreter() string {
	switch {
	case t.Lib.Environment != "" && t.Lib.Interpreter != "":
		return filepath.Join(t.Lib.Environment, t.Lib.Interpreter)
	case t.Lib.Environment != "":
		return filepath.Join(t.Lib.Environment, DefaultInterpreter)
	default:
		return t.Lib.Interpreter
	}
}
