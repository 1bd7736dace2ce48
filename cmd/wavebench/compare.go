package main

import (
	"errors"
	"fmt"

	"wavebench/internal/benchmark"
	"wavebench/internal/db"
	"wavebench/internal/normalize"
	"wavebench/internal/ui"

	"github.com/spf13/cobra"
)

var errRegression = errors.New("performance regression detected")

var compareCmd = &cobra.Command{
	Use:   "compare <baseline.json> [current.json]",
	Short: "Compare two batches and flag mean-time regressions",
	Long: `Compares the ok measurements of two combined result files, matched by
library, language, test, file and scale. With a single argument the file is
compared against the latest run of the same scale in the history store.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)
	compareCmd.Flags().Float64("threshold", 10.0, "Percentage slowdown reported as a regression")
	compareCmd.Flags().Bool("fail-on-regression", false, "Exit non-zero when any regression is found")
}

func runCompare(cmd *cobra.Command, args []string) error {
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	norm := normalize.New(appFs)

	var prev, curr []benchmark.Record
	if len(args) == 2 {
		prevDoc, err := loadCombinedFile(args[0])
		if err != nil {
			return err
		}
		currDoc, err := loadCombinedFile(args[1])
		if err != nil {
			return err
		}
		prev, curr = norm.Normalize(*prevDoc), norm.Normalize(*currDoc)
	} else {
		currDoc, err := loadCombinedFile(args[0])
		if err != nil {
			return err
		}
		curr = norm.Normalize(*currDoc)

		cfg, err := loadConfig("")
		if err != nil {
			return err
		}
		store, err := newStoreFunc(cfg.Store)
		if err != nil {
			return err
		}
		defer store.Close()
		run, err := store.LatestRun(currDoc.Scale)
		if errors.Is(err, db.ErrRunNotFound) {
			return fmt.Errorf("no %s run in history to compare against", currDoc.Scale)
		}
		if err != nil {
			return err
		}
		prev = run.Records
		fmt.Fprintf(cmd.ErrOrStderr(), "Comparing against run %s (%s)\n", run.ID, run.CreatedAt.Format(benchmark.TimestampLayout))
	}

	console := ui.NewConsole(cmd.OutOrStdout())
	regressions := 0
	for _, c := range benchmark.Compare(prev, curr, threshold) {
		console.Comparison(c)
		if c.Regressed {
			regressions++
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d regression(s) above %.1f%%\n", regressions, threshold)

	if fail, _ := cmd.Flags().GetBool("fail-on-regression"); fail && regressions > 0 {
		return errRegression
	}
	return nil
}

func loadCombinedFile(path string) (*benchmark.CombinedDocument, error) {
	doc, err := benchmark.LoadCombined(path)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("combined results not found: %s", path)
	}
	return doc, nil
}
