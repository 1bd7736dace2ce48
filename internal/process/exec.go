package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"time"
)

// ExecRunner runs programs as local child processes.
type ExecRunner struct {
	// BaseEnv is the environment every child starts from; nil means os.Environ().
	BaseEnv []string
	// KillGrace is how long the runner waits for output pipes after the
	// process group has been killed.
	KillGrace time.Duration
	Logger    *slog.Logger
}

func NewExecRunner() *ExecRunner {
	return &ExecRunner{KillGrace: 2 * time.Second, Logger: slog.Default()}
}

func (r *ExecRunner) Run(ctx context.Context, spec Spec) (Result, error) {
	if spec.Path == "" {
		return Result{}, fmt.Errorf("%w: empty command", ErrNotFound)
	}

	runCtx := ctx
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	base := r.BaseEnv
	if base == nil {
		base = os.Environ()
	}
	cmd.Env = append(append([]string{}, base...), spec.Env...)
	setProcessGroup(cmd)
	cmd.WaitDelay = r.KillGrace

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger().Debug("starting process", "name", spec.Name, "path", spec.Path, "args", spec.Args, "timeout", spec.Timeout)
	start := time.Now()
	err := cmd.Run()
	res := Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Elapsed:  time.Since(start),
		ExitCode: -1,
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err == nil {
		return res, nil
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return res, fmt.Errorf("%w: %s", ErrNotFound, spec.Path)
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		res.TimedOut = true
		return res, nil
	}
	if ctx.Err() != nil {
		return res, ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return res, nil
	}
	return res, fmt.Errorf("failed to run %s: %w", spec.Path, err)
}

func (r *ExecRunner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
