// Command wavebench-baseline is the natively built reference benchmark. It
// reads its settings from DATA_DIR, TIMEOUT (seconds per repetition), REPS
// and SCALE, measures plain reads of every waveform file in DATA_DIR, and
// prints one JSON result per line on stdout.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"wavebench/internal/baseline"
	"wavebench/internal/benchmark"
	"wavebench/internal/sampler"
	"wavebench/internal/telemetry"

	"github.com/spf13/afero"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := telemetry.NewLogger(os.Getenv("VERBOSE") != "", "", false)
	if err := run(ctx, os.Getenv, afero.NewOsFs(), os.Stdout, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// profileFromEnv resolves the scale profile from the environment, falling
// back to the small-scale values.
func profileFromEnv(getenv func(string) string) (benchmark.ScaleProfile, string, error) {
	profile := benchmark.ScaleProfile{Name: "small", Timeout: 60 * time.Second, Repetitions: 3}
	if v := getenv("SCALE"); v != "" {
		profile.Name = v
	}
	if v := getenv("TIMEOUT"); v != "" {
		secs, err := strconv.ParseFloat(v, 64)
		if err != nil || secs <= 0 {
			return profile, "", fmt.Errorf("invalid TIMEOUT %q", v)
		}
		profile.Timeout = time.Duration(secs * float64(time.Second))
	}
	if v := getenv("REPS"); v != "" {
		reps, err := strconv.Atoi(v)
		if err != nil {
			return profile, "", fmt.Errorf("invalid REPS %q", v)
		}
		profile.Repetitions = reps
	}
	dataDir := getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}
	return profile, dataDir, profile.Validate()
}

func run(ctx context.Context, getenv func(string) string, fs afero.Fs, out io.Writer, logger *slog.Logger) error {
	profile, dataDir, err := profileFromEnv(getenv)
	if err != nil {
		return err
	}
	files, err := baseline.FindInputs(fs, dataDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .vcd or .fst files in %s", dataDir)
	}

	logger.Info("baseline starting", "data_dir", dataDir, "files", len(files),
		"timeout", profile.Timeout, "repetitions", profile.Repetitions)

	s := sampler.New(sampler.WithLogger(logger))
	r := baseline.Reader{Fs: fs}
	enc := json.NewEncoder(out)
	for _, file := range files {
		for _, op := range baseline.Operations {
			if err := ctx.Err(); err != nil {
				return err
			}
			res := r.Measure(ctx, s, profile, op, file)
			logger.Info("measured", "file", file, "test", op, "status", res.Status, "mean_s", res.Mean)
			if err := enc.Encode(res); err != nil {
				return fmt.Errorf("failed to write result: %w", err)
			}
		}
	}
	return nil
}
