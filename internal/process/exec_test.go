//go:build unix

package process

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bench.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
	return path
}

func TestExecRunner_CapturesOutput(t *testing.T) {
	script := writeScript(t, `echo "out $1"; echo "err" >&2; echo "scale=$SCALE"`)
	r := NewExecRunner()

	res, err := r.Run(context.Background(), Spec{
		Name: "demo",
		Path: script,
		Args: []string{"one"},
		Env:  []string{"SCALE=small"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.False(t, res.TimedOut)
	assert.Equal(t, "out one\nscale=small\n", string(res.Stdout))
	assert.Equal(t, "err\n", string(res.Stderr))
}

func TestExecRunner_NonZeroExitIsNotAnError(t *testing.T) {
	script := writeScript(t, "echo partial; exit 3\n")
	res, err := NewExecRunner().Run(context.Background(), Spec{Path: script})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "partial\n", string(res.Stdout))
}

func TestExecRunner_NotFound(t *testing.T) {
	_, err := NewExecRunner().Run(context.Background(), Spec{Path: filepath.Join(t.TempDir(), "missing")})
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = NewExecRunner().Run(context.Background(), Spec{})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestExecRunner_TimeoutKillsProcessGroup(t *testing.T) {
	// The child spawns a grandchild that would keep stdout open.
	script := writeScript(t, "sleep 30 &\nsleep 30\n")
	r := NewExecRunner()
	r.KillGrace = 500 * time.Millisecond

	start := time.Now()
	res, err := r.Run(context.Background(), Spec{Path: script, Timeout: 100 * time.Millisecond})
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestExecRunner_ParentCancelled(t *testing.T) {
	script := writeScript(t, "sleep 30\n")
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	res, err := NewExecRunner().Run(ctx, Spec{Path: script, Timeout: time.Minute})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, res.TimedOut)
}

func TestExecRunner_BaseEnv(t *testing.T) {
	script := writeScript(t, `echo "[$HOME_MARK][$EXTRA]"`)
	r := NewExecRunner()
	r.BaseEnv = []string{"PATH=/usr/bin:/bin", "HOME_MARK=base"}

	res, err := r.Run(context.Background(), Spec{Path: script, Env: []string{"EXTRA=x"}})
	require.NoError(t, err)
	assert.Equal(t, "[base][x]\n", string(res.Stdout))
}

func TestUnavailable(t *testing.T) {
	r := Unavailable(errors.New("cannot connect to the Docker daemon"))
	_, err := r.Run(context.Background(), Spec{Path: "python"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorContains(t, err, "runtime unavailable: cannot connect to the Docker daemon")
}
