package main

import (
	"encoding/json"
	"fmt"
	"time"

	"wavebench/internal/baseline"
	"wavebench/internal/benchmark"
	"wavebench/internal/sampler"

	"github.com/spf13/cobra"
)

var sampleCmd = &cobra.Command{
	Use:   "sample <file>",
	Short: "Measure a baseline read of one waveform file in-process",
	Long: `Runs one baseline operation on a single file under the sampler and prints
the result as one JSON line, the same shape the baseline program emits.`,
	Args: cobra.ExactArgs(1),
	RunE: runSample,
}

func init() {
	rootCmd.AddCommand(sampleCmd)
	sampleCmd.Flags().String("op", baseline.OpFullParse, "Operation: full_parse or pipeline")
	sampleCmd.Flags().Int("reps", 3, "Repetitions")
	sampleCmd.Flags().Duration("timeout", time.Minute, "Deadline per repetition")
}

func runSample(cmd *cobra.Command, args []string) error {
	path := args[0]
	if baseline.FormatOf(path) == "" {
		return fmt.Errorf("%s is not a .vcd or .fst file", path)
	}
	op, _ := cmd.Flags().GetString("op")
	reps, _ := cmd.Flags().GetInt("reps")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	profile := benchmark.ScaleProfile{Name: "adhoc", Timeout: timeout, Repetitions: reps}
	if err := profile.Validate(); err != nil {
		return err
	}

	res := baseline.Reader{Fs: appFs}.Measure(cmd.Context(), sampler.New(), profile, op, path)
	if err := json.NewEncoder(cmd.OutOrStdout()).Encode(res); err != nil {
		return err
	}
	if res.Status != benchmark.StatusOK {
		return fmt.Errorf("%s %s: %s", op, res.Status, *res.Error)
	}
	return nil
}
