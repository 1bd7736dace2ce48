package orchestrator

import (
	"context"
	"encoding/json"
	"path/filepath"

	"wavebench/internal/benchmark"
	"wavebench/internal/process"

	"github.com/spf13/afero"
)

// ContainerTarget runs an entry point inside a container image. The data and
// results directories are mounted at their host paths so the output file
// lands where Collect looks for it.
type ContainerTarget struct {
	Lib  benchmark.Library
	Fs   afero.Fs
	Exec process.Runner
}

func (t *ContainerTarget) Library() benchmark.Library { return t.Lib }
func (t *ContainerTarget) Family() Family             { return FamilyIsolated }
func (t *ContainerTarget) Runner() process.Runner     { return t.Exec }

func (t *ContainerTarget) Prepare(ctx context.Context, inv Invocation) (process.Spec, error) {
	if t.Lib.Image == "" {
		return process.Spec{}, failf(benchmark.FailureNotFound, "no image configured for %s", t.Lib.Name)
	}
	if t.Lib.EntryPoint == "" {
		return process.Spec{}, failf(benchmark.FailureNotFound, "entry point not found: %s", t.Lib.EntryPoint)
	}
	dataDir, err := filepath.Abs(EffectiveDataDir(t.Fs, inv.DataDir, inv.Profile.Name))
	if err != nil {
		return process.Spec{}, err
	}
	resultsDir, err := filepath.Abs(inv.ResultsDir)
	if err != nil {
		return process.Spec{}, err
	}
	output := OutputPath(resultsDir, t.Lib)
	_ = t.Fs.Remove(output)

	interp := t.Lib.Interpreter
	if interp == "" {
		interp = "python"
	}
	return process.Spec{
		Name:  t.Lib.Name,
		Image: t.Lib.Image,
		Path:  interp,
		Args: []string{
			t.Lib.EntryPoint,
			"--data-dir", dataDir,
			"--scale", inv.Profile.Name,
			"--output", output,
		},
		Timeout: inv.Profile.MasterTimeout,
		Mounts: []process.Mount{
			{Path: dataDir, ReadOnly: true},
			{Path: resultsDir},
		},
	}, nil
}

func (t *ContainerTarget) Collect(inv Invocation, res process.Result) ([]json.RawMessage, error) {
	resultsDir, err := filepath.Abs(inv.ResultsDir)
	if err != nil {
		return nil, err
	}
	return collectPayload(t.Fs, OutputPath(resultsDir, t.Lib), res)
}
