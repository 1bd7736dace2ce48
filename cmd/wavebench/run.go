package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wavebench/internal/benchmark"
	"wavebench/internal/config"
	"wavebench/internal/db"
	"wavebench/internal/docker"
	"wavebench/internal/metrics"
	"wavebench/internal/normalize"
	"wavebench/internal/notify"
	"wavebench/internal/orchestrator"
	"wavebench/internal/process"
	"wavebench/internal/report"
	"wavebench/internal/telemetry"
	"wavebench/internal/ui"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every configured library benchmark and write the report",
	Long: `Runs each configured library's benchmark program one after another, each
in its own environment and under the scale's master timeout. A library that
cannot be run or fails is recorded as a failure and the batch moves on.

The combined results are saved to <results>/combined_<scale>.json and the
report to <results>/benchmark_report.md. The command fails only when no
records were produced at all.`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("scale", "", "Scale tier (defaults to the configured scale)")
	runCmd.Flags().Bool("skip-isolated", false, "Skip libraries run in their own environment or container")
	runCmd.Flags().Bool("skip-native", false, "Skip natively built libraries")
	runCmd.Flags().Int("timeout", 0, "Master timeout per library in seconds (0 = scale default)")
	runCmd.Flags().Int("repetitions", 0, "Repetitions per test (0 = scale default)")
	runCmd.Flags().String("manifest", "", "YAML library manifest replacing the configured libraries")
	runCmd.Flags().String("charts", "", "Also write PNG bar charts to this directory")
	runCmd.Flags().Bool("no-history", false, "Do not save the batch to the history store")
}

func runBatch(cmd *cobra.Command, args []string) error {
	manifest, _ := cmd.Flags().GetString("manifest")
	cfg, err := loadConfig(manifest)
	if err != nil {
		return err
	}

	scale, _ := cmd.Flags().GetString("scale")
	if scale == "" {
		scale = cfg.Scale
	}
	timeout, _ := cmd.Flags().GetInt("timeout")
	if timeout == 0 {
		timeout = int(cfg.Timeout / time.Second)
	}
	reps, _ := cmd.Flags().GetInt("repetitions")
	if reps == 0 {
		reps = cfg.Repetitions
	}
	profile, err := cfg.ResolveProfile(scale, time.Duration(timeout)*time.Second, reps)
	if err != nil {
		return err
	}

	skipIsolated, _ := cmd.Flags().GetBool("skip-isolated")
	skipNative, _ := cmd.Flags().GetBool("skip-native")
	libs := selectLibraries(cfg.Libraries, skipIsolated, skipNative)
	if len(libs) == 0 {
		return fmt.Errorf("no libraries selected")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.Default()
	console := ui.NewConsole(cmd.ErrOrStderr())
	console.Header(fmt.Sprintf("wavebench: %s scale", profile.Name))

	runners := orchestrator.Runners{Exec: process.NewExecRunner()}
	if needsContainer(libs) {
		container, closeFn := containerRunner(ctx, cfg, logger)
		defer closeFn()
		runners.Container = container
	}

	targets := make([]orchestrator.Target, 0, len(libs))
	for _, lib := range libs {
		t, err := orchestrator.NewTarget(lib, appFs, runners)
		if err != nil {
			return err
		}
		targets = append(targets, t)
	}

	m := metrics.NewMetrics()
	if cfg.Metrics.Addr != "" {
		srv, err := telemetry.StartMetricsServer(cfg.Metrics.Addr, m.Handler())
		if err != nil {
			console.Warn("failed to start metrics server: %v", err)
		} else {
			defer srv.Shutdown(context.Background())
		}
	}

	inv := orchestrator.Invocation{
		Profile:    profile,
		DataDir:    cfg.Paths.DataDir,
		ResultsDir: cfg.Paths.ResultsDir,
	}
	console.Step("running %d libraries (timeout %s, %d repetitions)", len(targets), profile.MasterTimeout, profile.Repetitions)
	orch := orchestrator.New(appFs, targets, m, console)
	doc, err := orch.Run(ctx, inv, logger)
	if err != nil {
		return err
	}

	store, err := benchmark.NewFileStore(cfg.Paths.ResultsDir)
	if err != nil {
		return err
	}
	combinedPath, err := store.Save(doc)
	if err != nil {
		return fmt.Errorf("failed to save combined results: %w", err)
	}
	console.Detail("combined results: %s", combinedPath)
	telemetry.LogInfof("Saved combined results to %s", combinedPath)

	records := normalize.New(appFs).Normalize(doc)
	now := time.Now()
	m.ObserveRecords(records, now)
	if len(records) == 0 {
		return ErrNoResults
	}

	summary := report.Aggregate(records, profile.Name)
	reportPath := cfg.Paths.ReportPath()
	if err := writeReportFile(reportPath, summary, now); err != nil {
		return err
	}
	console.Detail("report: %s", reportPath)

	if dir, _ := cmd.Flags().GetString("charts"); dir != "" {
		paths, err := report.WriteCharts(dir, summary)
		if err != nil {
			console.Warn("failed to write charts: %v", err)
		}
		console.Detail("%d chart(s) in %s", len(paths), dir)
	}

	if noHistory, _ := cmd.Flags().GetBool("no-history"); !noHistory {
		saveHistory(cfg.Store, db.NewRun(profile.Name, records, now), console)
	}

	if url := cfg.Metrics.PushgatewayURL; url != "" {
		if err := m.Push(url, profile.Name); err != nil {
			console.Warn("%v", err)
		}
	}

	notifier := newNotifierFunc(notify.Options{
		Enabled:    cfg.Slack.Enabled,
		WebhookURL: cfg.Slack.WebhookURL,
		Channel:    cfg.Slack.Channel,
		BotToken:   cfg.Slack.BotToken,
	}, logger)
	if err := notifier.Notify(ctx, notify.SummaryMessage(summary, reportPath)); err != nil {
		console.Warn("notification failed: %v", err)
	}

	telemetry.LogInfo("Batch complete", "scale", profile.Name, "records", summary.Total,
		"passed", summary.Passed, "failed", summary.Failed)
	console.Totals(summary.Passed, summary.Failed)
	return nil
}

// selectLibraries applies the skip switches, keeping configuration order.
func selectLibraries(libs []benchmark.Library, skipIsolated, skipNative bool) []benchmark.Library {
	var out []benchmark.Library
	for _, lib := range libs {
		native := lib.Kind == benchmark.KindBuild
		if (native && skipNative) || (!native && skipIsolated) {
			continue
		}
		out = append(out, lib)
	}
	return out
}

func needsContainer(libs []benchmark.Library) bool {
	for _, lib := range libs {
		if lib.Kind == benchmark.KindContainer {
			return true
		}
	}
	return false
}

// containerRunner connects to the Docker daemon. When it is unreachable the
// container libraries fail one by one as not_found.
func containerRunner(ctx context.Context, cfg *config.Config, logger *slog.Logger) (process.Runner, func()) {
	client, err := newDockerClientFunc()
	if err == nil {
		err = client.CheckDaemon(ctx)
	}
	if err != nil {
		logger.Warn("container runtime unavailable", "error", err)
		if client != nil {
			client.Close()
		}
		return process.Unavailable(err), func() {}
	}
	r := docker.NewContainerRunner(client)
	r.Pull = cfg.DockerPull
	r.Logger = logger
	return r, func() { client.Close() }
}

func saveHistory(c config.Store, run db.Run, console *ui.Console) {
	store, err := newStoreFunc(c)
	if err != nil {
		console.Warn("history store unavailable: %v", err)
		return
	}
	defer store.Close()
	if err := store.SaveRun(run); err != nil {
		telemetry.LogError("Failed to save run", err, "run", run.ID)
		console.Warn("failed to save run to history: %v", err)
		return
	}
	console.Detail("history: run %s", run.ID)
}
