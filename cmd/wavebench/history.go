package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"wavebench/internal/report"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List batches saved in the history store",
	RunE:  runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print the report of one saved batch",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.Flags().Int("limit", 20, "Maximum number of runs to list")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig("")
	if err != nil {
		return err
	}
	store, err := newStoreFunc(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.ListRuns(limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCALE\tCREATED\tOK\tFAILED")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", r.ID, r.Scale, r.CreatedAt.Local().Format(time.DateTime), r.Passed, r.Failed)
	}
	return w.Flush()
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig("")
	if err != nil {
		return err
	}
	store, err := newStoreFunc(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.LoadRun(args[0])
	if err != nil {
		return fmt.Errorf("failed to load run %s: %w", args[0], err)
	}
	return report.Render(cmd.OutOrStdout(), report.Aggregate(run.Records, run.Scale), run.CreatedAt)
}
