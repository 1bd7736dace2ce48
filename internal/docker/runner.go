package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"wavebench/internal/process"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/google/uuid"
)

// ContainerRunner runs a benchmark program inside a throwaway container. It
// implements process.Runner so containerized libraries go through the same
// orchestration as local ones.
type ContainerRunner struct {
	client *Client
	// Pull fetches images that are missing locally instead of failing.
	Pull   bool
	Logger *slog.Logger
}

func NewContainerRunner(c *Client) *ContainerRunner {
	return &ContainerRunner{client: c, Logger: slog.Default()}
}

func (r *ContainerRunner) Run(ctx context.Context, spec process.Spec) (process.Result, error) {
	if spec.Image == "" {
		return process.Result{}, fmt.Errorf("%w: no image configured for %s", process.ErrNotFound, spec.Name)
	}
	exists, err := r.client.ImageExists(ctx, spec.Image)
	if err != nil {
		return process.Result{}, err
	}
	if !exists {
		if !r.Pull {
			return process.Result{}, fmt.Errorf("%w: image %s", process.ErrNotFound, spec.Image)
		}
		if err := r.client.PullImage(ctx, spec.Image); err != nil {
			return process.Result{}, fmt.Errorf("%w: %v", process.ErrNotFound, err)
		}
	}

	cmd := append([]string{}, spec.Args...)
	if spec.Path != "" {
		cmd = append([]string{spec.Path}, cmd...)
	}
	binds := make([]string, 0, len(spec.Mounts))
	for _, m := range spec.Mounts {
		bind := m.Path + ":" + m.Path
		if m.ReadOnly {
			bind += ":ro"
		}
		binds = append(binds, bind)
	}

	name := "wavebench-" + uuid.NewString()[:8]
	resp, err := r.client.api.ContainerCreate(ctx,
		&container.Config{
			Image:      spec.Image,
			Cmd:        cmd,
			Env:        spec.Env,
			WorkingDir: spec.Dir,
		},
		&container.HostConfig{Binds: binds}, nil, nil, name)
	if err != nil {
		return process.Result{}, fmt.Errorf("failed to create container: %w", err)
	}
	id := resp.ID
	defer func() {
		// The run context may already be gone; removal must still happen.
		rmCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := r.client.api.ContainerRemove(rmCtx, id, container.RemoveOptions{Force: true}); err != nil {
			r.logger().Warn("failed to remove container", "id", id, "error", err)
		}
	}()

	r.logger().Debug("starting container", "name", spec.Name, "image", spec.Image, "cmd", cmd, "timeout", spec.Timeout)
	start := time.Now()
	if err := r.client.api.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return process.Result{}, fmt.Errorf("failed to start container: %w", err)
	}

	waitCtx := ctx
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	res := process.Result{ExitCode: -1}
	statusCh, errCh := r.client.api.ContainerWait(waitCtx, id, container.WaitConditionNotRunning)
	select {
	case st := <-statusCh:
		res.ExitCode = int(st.StatusCode)
		if st.Error != nil && st.Error.Message != "" {
			r.logger().Warn("container wait reported an error", "id", id, "error", st.Error.Message)
		}
	case err := <-errCh:
		if waitCtx.Err() == nil {
			return res, fmt.Errorf("failed to wait for container: %w", err)
		}
	case <-waitCtx.Done():
	}
	res.Elapsed = time.Since(start)

	if waitCtx.Err() != nil && res.ExitCode == -1 {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
			res.TimedOut = true
			killCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := r.client.api.ContainerKill(killCtx, id, "KILL"); err != nil {
				r.logger().Warn("failed to kill container", "id", id, "error", err)
			}
		}
	}

	logCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	logs, err := r.client.api.ContainerLogs(logCtx, id, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return res, fmt.Errorf("failed to read container logs: %w", err)
	}
	defer logs.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, logs); err != nil {
		return res, fmt.Errorf("failed to copy container output: %w", err)
	}
	res.Stdout = stdout.Bytes()
	res.Stderr = stderr.Bytes()
	return res, nil
}

func (r *ContainerRunner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
