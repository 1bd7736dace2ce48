// Package sampler runs one test operation repeatedly under a per-repetition
// deadline and reports elapsed time and resident-memory growth per run.
//
// A test fails as a whole: the first timeout or fault abandons the remaining
// repetitions and discards the samples already taken, so a mixed ok/error
// sample set never reaches the statistics.
//
// Operations run in-process and cannot be killed. One that ignores its
// context keeps running in an abandoned goroutine after its repetition is
// classified as a timeout, and its CPU and heap use leak into whatever is
// measured next. Each abandonment is logged as a warning and counted by
// Abandoned so a skewed run can be spotted.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"wavebench/internal/benchmark"

	"gonum.org/v1/gonum/stat"
)

// ErrDeadlineExceeded is reported when a repetition outlives its deadline.
var ErrDeadlineExceeded = errors.New("deadline exceeded")

// Operation is the unit under test. It should return once ctx is done;
// one that does not is abandoned and its repetition classified as timeout.
type Operation func(ctx context.Context) error

// Outcome is the result of sampling one operation.
type Outcome struct {
	Times    []float64
	Mean     float64
	Stdev    float64
	Min      float64
	Max      float64
	MemoryKB int64
	Status   benchmark.Status
	Err      string
}

// Sampler measures operations. The zero value is not usable; call New.
type Sampler struct {
	probe   MemoryProbe
	reclaim func()
	now     func() time.Time
	logger  *slog.Logger

	armed     atomic.Int32
	abandoned atomic.Int32
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithMemoryProbe replaces the resident-memory probe.
func WithMemoryProbe(p MemoryProbe) Option {
	return func(s *Sampler) { s.probe = p }
}

// WithReclaim replaces the function run before each baseline memory mark.
func WithReclaim(f func()) Option {
	return func(s *Sampler) { s.reclaim = f }
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Sampler) { s.now = now }
}

// WithLogger sets the logger used for per-repetition debug output.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sampler) { s.logger = l }
}

func New(opts ...Option) *Sampler {
	s := &Sampler{
		probe:   NewProcessProbe(),
		reclaim: runtime.GC,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ArmedDeadlines returns the number of deadlines currently armed. It is zero
// whenever no repetition is in flight.
func (s *Sampler) ArmedDeadlines() int {
	return int(s.armed.Load())
}

// Abandoned returns how many operations were left running after ignoring
// cancellation.
func (s *Sampler) Abandoned() int {
	return int(s.abandoned.Load())
}

// Run samples op profile.Repetitions times, each under profile.Timeout
// (zero means no limit).
func (s *Sampler) Run(ctx context.Context, profile benchmark.ScaleProfile, op Operation) Outcome {
	return s.RunTest(ctx, "", profile, op)
}

// RunTest is Run with the test name attached to the sampler's log output.
func (s *Sampler) RunTest(ctx context.Context, test string, profile benchmark.ScaleProfile, op Operation) Outcome {
	log := s.logger.With("scale", profile.Name)
	if test != "" {
		log = log.With("test", test)
	}
	reps := profile.Repetitions
	if reps < 1 {
		reps = 1
	}

	times := make([]float64, 0, reps)
	var peak int64
	for i := 0; i < reps; i++ {
		elapsed, mem, err := s.once(ctx, profile.Timeout, op, log)
		if err != nil {
			return failed(err, profile.Timeout)
		}
		log.Debug("repetition complete", "rep", i+1, "elapsed", elapsed, "memory_kb", mem)
		times = append(times, elapsed.Seconds())
		if mem > peak {
			peak = mem
		}
	}
	return summarize(times, peak)
}

// once runs a single repetition. The deadline armed here is disarmed on
// every return path by the deferred release.
func (s *Sampler) once(ctx context.Context, limit time.Duration, op Operation, log *slog.Logger) (time.Duration, int64, error) {
	s.reclaim()
	base, baseErr := s.probe.ResidentKB()

	runCtx, release := s.arm(ctx, limit)
	defer release()

	start := s.now()
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic: %v", r)
			}
		}()
		done <- op(runCtx)
	}()

	var err error
	abandoned := false
	select {
	case err = <-done:
	case <-runCtx.Done():
		// A result delivered alongside the deadline still counts.
		select {
		case err = <-done:
		default:
			abandoned = true
			err = runCtx.Err()
		}
	}
	end := s.now()

	if abandoned {
		s.abandoned.Add(1)
		log.Warn("operation ignored cancellation and was abandoned; later measurements may be skewed",
			"limit", limit, "reason", err)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return 0, 0, ErrDeadlineExceeded
		}
		return 0, 0, err
	}

	var mem int64
	if post, postErr := s.probe.ResidentKB(); baseErr == nil && postErr == nil {
		mem = max(post-base, 0)
	}
	return end.Sub(start), mem, nil
}

func (s *Sampler) arm(ctx context.Context, limit time.Duration) (context.Context, func()) {
	s.armed.Add(1)
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if limit > 0 {
		runCtx, cancel = context.WithTimeout(ctx, limit)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	var once atomic.Bool
	return runCtx, func() {
		if once.CompareAndSwap(false, true) {
			cancel()
			s.armed.Add(-1)
		}
	}
}

func failed(err error, limit time.Duration) Outcome {
	if errors.Is(err, ErrDeadlineExceeded) {
		return Outcome{
			Times:  []float64{},
			Status: benchmark.StatusTimeout,
			Err:    fmt.Sprintf("timed out after %gs", limit.Seconds()),
		}
	}
	return Outcome{
		Times:  []float64{},
		Status: benchmark.StatusError,
		Err:    err.Error(),
	}
}

func summarize(times []float64, peak int64) Outcome {
	out := Outcome{
		Times:    times,
		MemoryKB: peak,
		Status:   benchmark.StatusOK,
		Mean:     stat.Mean(times, nil),
		Min:      times[0],
		Max:      times[0],
	}
	if len(times) > 1 {
		out.Stdev = stat.StdDev(times, nil)
	}
	for _, t := range times[1:] {
		out.Min = min(out.Min, t)
		out.Max = max(out.Max, t)
	}
	return out
}
