package orchestrator

import (
	"errors"
	"fmt"

	"wavebench/internal/benchmark"
)

// FailureError is a classified failure of one library invocation. It never
// aborts a batch; the orchestrator turns it into a failure payload.
type FailureError struct {
	Kind benchmark.FailureKind
	Msg  string
}

func (e *FailureError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func failf(kind benchmark.FailureKind, format string, args ...any) *FailureError {
	return &FailureError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// classify turns any error into a FailureError.
func classify(err error) *FailureError {
	var fe *FailureError
	if errors.As(err, &fe) {
		return fe
	}
	return &FailureError{Kind: benchmark.FailureError, Msg: err.Error()}
}

// failureTest names the synthesized test entry of a failure payload.
var failureTest = map[benchmark.FailureKind]string{
	benchmark.FailureNotFound:    "setup",
	benchmark.FailureTimeout:     "all",
	benchmark.FailureBuildFailed: "build",
	benchmark.FailureNoOutput:    "output",
	benchmark.FailureParseError:  "parse_output",
	benchmark.FailureError:       "run",
}
