package orchestrator

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"wavebench/internal/benchmark"
	"wavebench/internal/process"

	"github.com/spf13/afero"
)

// DefaultBuildTimeout bounds the build step when the library sets none.
const DefaultBuildTimeout = 300 * time.Second

// BuildTarget compiles a benchmark program and runs the resulting artifact
// without a separate environment. The artifact prints one result object per
// line; configuration is passed through DATA_DIR, TIMEOUT, REPS and SCALE.
type BuildTarget struct {
	Lib    benchmark.Library
	Fs     afero.Fs
	Exec   process.Runner
	Logger *slog.Logger
}

func (t *BuildTarget) Library() benchmark.Library { return t.Lib }
func (t *BuildTarget) Family() Family             { return FamilyNative }
func (t *BuildTarget) Runner() process.Runner     { return t.Exec }

func (t *BuildTarget) Prepare(ctx context.Context, inv Invocation) (process.Spec, error) {
	step := t.Lib.Build
	if step.Dir != "" {
		if ok, _ := afero.DirExists(t.Fs, step.Dir); !ok {
			return process.Spec{}, failf(benchmark.FailureNotFound, "build directory not found: %s", step.Dir)
		}
	}
	if len(step.Command) > 0 {
		if err := t.build(ctx, step); err != nil {
			return process.Spec{}, err
		}
	}

	artifact := t.artifact()
	if ok, _ := afero.Exists(t.Fs, artifact); artifact == "" || !ok {
		return process.Spec{}, failf(benchmark.FailureNotFound, "binary not found at %s", artifact)
	}

	return process.Spec{
		Name: t.Lib.Name,
		Path: artifact,
		Env: []string{
			"DATA_DIR=" + EffectiveDataDir(t.Fs, inv.DataDir, inv.Profile.Name),
			"TIMEOUT=" + seconds(inv.Profile.Timeout),
			fmt.Sprintf("REPS=%d", inv.Profile.Repetitions),
			"SCALE=" + inv.Profile.Name,
		},
		Timeout: inv.Profile.MasterTimeout,
	}, nil
}

func (t *BuildTarget) build(ctx context.Context, step benchmark.BuildStep) error {
	timeout := step.Timeout
	if timeout <= 0 {
		timeout = DefaultBuildTimeout
	}
	t.logger().Info("building", "library", t.Lib.Name, "command", strings.Join(step.Command, " "))
	res, err := t.Exec.Run(ctx, process.Spec{
		Name:    t.Lib.Name + " build",
		Path:    step.Command[0],
		Args:    step.Command[1:],
		Dir:     step.Dir,
		Timeout: timeout,
	})
	if err != nil {
		if errors.Is(err, process.ErrNotFound) {
			return failf(benchmark.FailureNotFound, "build tool not found: %s", step.Command[0])
		}
		return err
	}
	if res.TimedOut {
		return failf(benchmark.FailureBuildFailed, "build timed out after %ss", seconds(timeout))
	}
	if res.ExitCode != 0 {
		for _, line := range lastLines(res.Stderr, 20) {
			t.logger().Warn("build output", "library", t.Lib.Name, "line", line)
		}
		return failf(benchmark.FailureBuildFailed, "build failed (rc=%d)", res.ExitCode)
	}
	return nil
}

func (t *BuildTarget) artifact() string {
	a := t.Lib.Build.Artifact
	if a == "" {
		a = t.Lib.EntryPoint
	}
	if a != "" && !filepath.IsAbs(a) && t.Lib.Build.Dir != "" {
		a = filepath.Join(t.Lib.Build.Dir, a)
	}
	return a
}

// Collect parses one payload per output line. Lines that are not JSON
// objects are skipped; the valid lines are kept and saved as one array.
func (t *BuildTarget) Collect(inv Invocation, res process.Result) ([]json.RawMessage, error) {
	var payloads []json.RawMessage
	skipped := 0
	sc := bufio.NewScanner(bytes.NewReader(res.Stdout))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		if line[0] != '{' || !json.Valid(line) {
			skipped++
			continue
		}
		payloads = append(payloads, json.RawMessage(append([]byte{}, line...)))
	}
	if skipped > 0 {
		t.logger().Debug("skipped unparsable result lines", "library", t.Lib.Name, "count", skipped)
	}
	if len(payloads) == 0 {
		return nil, failf(benchmark.FailureNoOutput, "no result lines produced (rc=%d)", res.ExitCode)
	}

	data, err := json.MarshalIndent(payloads, "", "  ")
	if err != nil {
		return nil, err
	}
	path := filepath.Join(inv.ResultsDir, t.Lib.PayloadFile())
	if err := afero.WriteFile(t.Fs, path, data, 0644); err != nil {
		t.logger().Warn("failed to save raw results", "path", path, "error", err)
	}
	return payloads, nil
}

func (t *BuildTarget) logger() *slog.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return slog.Default()
}

func lastLines(b []byte, n int) []string {
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
