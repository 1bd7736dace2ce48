// Package process runs one external benchmark program and captures what it
// printed. Runners differ in where the program executes (a local child
// process, a container) but share Spec and Result.
package process

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when the program to run does not exist.
var ErrNotFound = errors.New("executable not found")

// Spec describes one invocation.
type Spec struct {
	// Name labels the invocation in logs.
	Name string
	Path string
	Args []string
	// Env is added on top of the runner's base environment.
	Env []string
	Dir string
	// Timeout bounds the whole invocation; zero means no bound.
	Timeout time.Duration
	// Image selects the container image for runners that need one.
	Image string
	// Mounts lists host directories the program must be able to reach.
	Mounts []Mount
}

// Mount exposes a host directory at the same path inside an isolated runtime.
type Mount struct {
	Path     string
	ReadOnly bool
}

// Result is what a finished invocation left behind.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Elapsed  time.Duration
	TimedOut bool
}

// Runner executes a Spec. A non-zero exit status is reported through
// Result.ExitCode, not as an error; errors mean the program could not be
// started or its outcome could not be observed.
type Runner interface {
	Run(ctx context.Context, spec Spec) (Result, error)
}

// Unavailable returns a Runner whose every run fails with ErrNotFound. It
// stands in for a runtime that could not be reached, so the libraries that
// need it fail individually instead of aborting the batch.
func Unavailable(reason error) Runner {
	return unavailable{reason: reason}
}

type unavailable struct {
	reason error
}

func (u unavailable) Run(context.Context, Spec) (Result, error) {
	return Result{}, fmt.Errorf("%w: runtime unavailable: %v", ErrNotFound, u.reason)
}
