package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"wavebench/internal/benchmark"
	"wavebench/internal/normalize"
	"wavebench/internal/report"
	"wavebench/internal/telemetry"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate the comparison report from saved combined results",
	Long: `Loads <results>/combined_<scale>.json, normalizes every payload and writes
the markdown comparison report. With --scale all (the default) every scale
present is loaded in small, medium, large order and reported together.`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().String("scale", "all", "Scale to report on, or all")
	reportCmd.Flags().StringP("output", "o", "", "Report path (default <results>/benchmark_report.md, - for stdout)")
	reportCmd.Flags().Bool("render", false, "Also print the report rendered for the terminal")
	reportCmd.Flags().String("charts", "", "Also write PNG bar charts to this directory")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig("")
	if err != nil {
		return err
	}
	scale, _ := cmd.Flags().GetString("scale")

	docs, err := loadDocuments(cfg.Paths.ResultsDir, scale)
	if err != nil {
		return err
	}
	scales := make([]string, 0, len(docs))
	for _, d := range docs {
		scales = append(scales, d.Scale)
	}

	records := normalize.New(appFs).NormalizeAll(docs)
	if len(records) == 0 {
		return fmt.Errorf("%w in %s; run 'wavebench run' first", ErrNoResults, cfg.Paths.ResultsDir)
	}

	label := strings.Join(scales, "+")
	summary := report.Aggregate(records, label)
	now := time.Now()

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = cfg.Paths.ReportPath()
	}
	if output == "-" {
		if err := report.Render(cmd.OutOrStdout(), summary, now); err != nil {
			return err
		}
	} else {
		if err := writeReportFile(output, summary, now); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s (%d records, scales: %s)\n", output, len(records), label)
	}

	if dir, _ := cmd.Flags().GetString("charts"); dir != "" {
		paths, err := report.WriteCharts(dir, summary)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d chart(s) to %s\n", len(paths), dir)
	}

	if render, _ := cmd.Flags().GetBool("render"); render {
		rendered, err := report.RenderTerminal(report.RenderString(summary, now), terminalWidth())
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), rendered)
	}
	return nil
}

// loadDocuments reads one scale's combined document, or every scale present
// for "all".
func loadDocuments(resultsDir, scale string) ([]benchmark.CombinedDocument, error) {
	if _, err := os.Stat(resultsDir); err != nil {
		return nil, fmt.Errorf("results directory not found: %s", resultsDir)
	}
	store, err := benchmark.NewFileStore(resultsDir)
	if err != nil {
		return nil, err
	}
	var docs []benchmark.CombinedDocument
	if scale == "all" {
		if docs, err = store.LoadAll(); err != nil {
			return nil, err
		}
	} else {
		doc, err := store.Load(scale)
		if err != nil || doc == nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}

	kept := docs[:0]
	for _, d := range docs {
		if d.Empty() {
			telemetry.LogDebug("Skipping combined results without payloads", "scale", d.Scale)
			continue
		}
		kept = append(kept, d)
	}
	return kept, nil
}

func writeReportFile(path string, s report.Summary, generated time.Time) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.Render(f, s, generated); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 100
}
