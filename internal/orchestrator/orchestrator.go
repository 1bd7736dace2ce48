// Package orchestrator runs every configured library's benchmark program, one
// at a time, and gathers their payloads into a combined document. Failures are
// contained per library: each becomes a synthesized failure payload and the
// batch moves on.
package orchestrator

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"wavebench/internal/benchmark"
	"wavebench/internal/process"

	"github.com/spf13/afero"
)

// OutcomeOK is reported to recorders for an invocation that produced payloads.
const OutcomeOK = "ok"

// Recorder observes the outcome of every library invocation.
type Recorder interface {
	ObserveInvocation(library, outcome string, elapsed time.Duration)
}

type Orchestrator struct {
	Targets   []Target
	Fs        afero.Fs
	Recorders []Recorder
	Now       func() time.Time
}

func New(fs afero.Fs, targets []Target, recorders ...Recorder) *Orchestrator {
	return &Orchestrator{
		Targets:   targets,
		Fs:        fs,
		Recorders: recorders,
		Now:       time.Now,
	}
}

// Run invokes every target sequentially in configuration order. It only
// returns an error when the batch itself cannot continue (ctx cancelled or
// the results directory cannot be created).
func (o *Orchestrator) Run(ctx context.Context, inv Invocation, logger *slog.Logger) (benchmark.CombinedDocument, error) {
	doc := benchmark.NewCombinedDocument(inv.Profile.Name, o.Now())
	if err := o.Fs.MkdirAll(inv.ResultsDir, 0755); err != nil {
		return doc, fmt.Errorf("failed to create results directory: %w", err)
	}

	logger.Info("Starting benchmark batch", "scale", inv.Profile.Name, "libraries", len(o.Targets),
		"master_timeout", inv.Profile.MasterTimeout, "repetitions", inv.Profile.Repetitions)

	for _, t := range o.Targets {
		if err := ctx.Err(); err != nil {
			return doc, err
		}
		lib := t.Library()
		log := logger.With("library", lib.Name)
		log.Info("Running library", "label", lib.DisplayName(), "kind", lib.Kind)

		start := o.Now()
		payloads, err := o.invoke(ctx, t, inv, log)
		elapsed := o.Now().Sub(start)
		if err != nil {
			if ctx.Err() != nil {
				return doc, ctx.Err()
			}
			fe := classify(err)
			log.Warn("Library failed", "kind", fe.Kind, "error", fe.Msg)
			payload, mErr := failurePayload(lib, t.Family(), inv.Profile.Name, fe)
			if mErr != nil {
				return doc, mErr
			}
			payloads = []json.RawMessage{payload}
			o.observe(lib.Name, string(fe.Kind), elapsed)
		} else {
			log.Info("Library done", "payloads", len(payloads), "elapsed", elapsed)
			o.observe(lib.Name, OutcomeOK, elapsed)
		}

		switch t.Family() {
		case FamilyNative:
			doc.Native = append(doc.Native, payloads...)
		default:
			doc.Isolated = append(doc.Isolated, payloads...)
		}
	}
	return doc, nil
}

func (o *Orchestrator) invoke(ctx context.Context, t Target, inv Invocation, log *slog.Logger) ([]json.RawMessage, error) {
	spec, err := t.Prepare(ctx, inv)
	if err != nil {
		return nil, err
	}
	res, err := t.Runner().Run(ctx, spec)
	relay(log, res.Stderr)
	if err != nil {
		if errors.Is(err, process.ErrNotFound) {
			return nil, failf(benchmark.FailureNotFound, "%v", err)
		}
		return nil, err
	}
	if res.TimedOut {
		return nil, failf(benchmark.FailureTimeout, "subprocess timed out after %ss", seconds(spec.Timeout))
	}
	if res.ExitCode != 0 {
		log.Warn("Benchmark program exited non-zero", "rc", res.ExitCode)
	}
	return t.Collect(inv, res)
}

func (o *Orchestrator) observe(library, outcome string, elapsed time.Duration) {
	for _, r := range o.Recorders {
		r.ObserveInvocation(library, outcome, elapsed)
	}
}

// relay forwards a child's diagnostics to the log, one line per entry.
func relay(log *slog.Logger, stderr []byte) {
	sc := bufio.NewScanner(bytes.NewReader(stderr))
	for sc.Scan() {
		if line := bytes.TrimSpace(sc.Bytes()); len(line) > 0 {
			log.Debug("child output", "line", string(line))
		}
	}
}

func failurePayload(lib benchmark.Library, family Family, scale string, fe *FailureError) (json.RawMessage, error) {
	format := "unknown"
	if family == FamilyNative {
		format = "mixed"
	}
	p := benchmark.FailurePayload(lib.Name, format, scale, failureTest[fe.Kind], fe.Kind.Status(), fe.Msg)
	p.Language = lib.Language
	return json.Marshal(p)
}
