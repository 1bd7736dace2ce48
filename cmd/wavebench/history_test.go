package main

import (
	"testing"
	"time"

	"wavebench/internal/benchmark"
	"wavebench/internal/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func historyRecords() []benchmark.Record {
	return []benchmark.Record{
		{Library: "pywellen", Language: "Python", Format: "VCD", Test: "full_parse", File: "counter.vcd", Scale: "small",
			TimesS: []float64{0.1}, MeanS: 0.1, Status: benchmark.StatusOK},
		{Library: "vcdvcd", Language: "Python", Format: "VCD", Test: "setup", Scale: "small",
			TimesS: []float64{}, Status: benchmark.StatusError, Error: "entry point not found: bench_vcdvcd.py"},
	}
}

func TestHistoryCmd(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		setupWorkspace(t)
		output, err := executeCommand(rootCmd, "history")
		require.NoError(t, err)
		assert.Contains(t, output, "No runs recorded.")
	})

	t.Run("List", func(t *testing.T) {
		w := setupWorkspace(t)
		base := time.Now().Add(-3 * time.Hour)
		for i := 0; i < 3; i++ {
			w.store.runs = append(w.store.runs, db.NewRun("small", historyRecords(), base.Add(time.Duration(i)*time.Hour)))
		}

		output, err := executeCommand(rootCmd, "history", "--limit", "2")
		require.NoError(t, err)
		assert.Contains(t, output, "ID")
		assert.Contains(t, output, "FAILED")
		assert.Contains(t, output, w.store.runs[2].ID)
		assert.Contains(t, output, w.store.runs[1].ID)
		assert.NotContains(t, output, w.store.runs[0].ID)
		assert.True(t, w.store.closed)
	})

	t.Run("Show", func(t *testing.T) {
		w := setupWorkspace(t)
		run := db.NewRun("small", historyRecords(), time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC))
		w.store.runs = []db.Run{run}

		output, err := executeCommand(rootCmd, "history", "show", run.ID)
		require.NoError(t, err)
		assert.Contains(t, output, "# VCD/FST Library Benchmark Report")
		assert.Contains(t, output, "pywellen (Python)")
		assert.Contains(t, output, "entry point not found: bench_vcdvcd.py")
	})

	t.Run("Show Unknown", func(t *testing.T) {
		setupWorkspace(t)
		_, err := executeCommand(rootCmd, "history", "show", "nope")
		require.Error(t, err)
		assert.ErrorIs(t, err, db.ErrRunNotFound)
	})
}
