package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"wavebench/internal/benchmark"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadIn(t *testing.T, dir, cfgFile string) *Config {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Chdir(dir)
	require.NoError(t, Load(cfgFile))
	cfg, err := FromViper("")
	require.NoError(t, err)
	return cfg
}

func TestLoad(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		cfg := loadIn(t, t.TempDir(), "")

		assert.Equal(t, "small", cfg.Scale)
		assert.Equal(t, ScaleSettings{Timeout: 120, MasterTimeout: 600, Repetitions: 3}, cfg.Scales["medium"])
		assert.Equal(t, "data", cfg.Paths.DataDir)
		assert.Equal(t, filepath.Join("results", "benchmark_report.md"), cfg.Paths.ReportPath())
		assert.Equal(t, "sqlite", cfg.Store.Type)
		assert.Equal(t, DefaultLibraries(), cfg.Libraries)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("Env Override", func(t *testing.T) {
		t.Setenv("WAVEBENCH_SCALE", "large")
		t.Setenv("WAVEBENCH_SCALES_LARGE_REPETITIONS", "7")
		cfg := loadIn(t, t.TempDir(), "")

		assert.Equal(t, "large", cfg.Scale)
		assert.Equal(t, 7, cfg.Scales["large"].Repetitions)
		assert.Equal(t, 300.0, cfg.Scales["large"].Timeout)
	})

	t.Run("Config File", func(t *testing.T) {
		dir := t.TempDir()
		content := `
scale: nightly
scales:
  nightly:
    timeout: 5
    master_timeout: 20
    repetitions: 2
  small:
    repetitions: 1
paths:
  results_dir: out
libraries:
  - name: wellen
    kind: build
    language: Rust
    build:
      command: ["cargo", "build", "--release"]
      dir: benchmarks/rust
      artifact: target/release/wave_bench
      timeout: 10m
`
		require.NoError(t, os.WriteFile(filepath.Join(dir, "wavebench.yaml"), []byte(content), 0644))
		cfg := loadIn(t, dir, "")

		assert.Equal(t, "nightly", cfg.Scale)
		assert.Equal(t, ScaleSettings{Timeout: 5, MasterTimeout: 20, Repetitions: 2}, cfg.Scales["nightly"])
		assert.Equal(t, 1, cfg.Scales["small"].Repetitions)
		assert.Equal(t, 60.0, cfg.Scales["small"].Timeout, "unset keys keep their defaults")
		assert.Equal(t, filepath.Join("out", "benchmark_report.md"), cfg.Paths.ReportPath())
		require.Len(t, cfg.Libraries, 1)
		assert.Equal(t, benchmark.KindBuild, cfg.Libraries[0].Kind)
		assert.Equal(t, 10*time.Minute, cfg.Libraries[0].Build.Timeout)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("Missing Explicit File", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)
		assert.Error(t, Load(filepath.Join(t.TempDir(), "nope.yaml")))
	})
}

func TestResolveProfile(t *testing.T) {
	cfg := &Config{Scales: defaultScales}

	p, err := cfg.ResolveProfile("small", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, benchmark.ScaleProfile{Name: "small", Timeout: time.Minute, MasterTimeout: 5 * time.Minute, Repetitions: 3}, p)

	p, err = cfg.ResolveProfile("large", 90*time.Second, 5)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, p.MasterTimeout)
	assert.Equal(t, 5*time.Minute, p.Timeout)
	assert.Equal(t, 5, p.Repetitions)

	_, err = cfg.ResolveProfile("huge", 0, 0)
	assert.ErrorIs(t, err, ErrInvalidScale)
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		return path
	}

	path := write("ok.yaml", `
libraries:
  - name: vcdvcd
    kind: isolated
    entry_point: bench/bench_vcdvcd.py
    environment: bench/.venv_vcdvcd
  - name: pywellen
    kind: container
    entry_point: /bench/bench_pywellen.py
    image: wavebench/python:3.12
`)
	libs, err := LoadManifest(path)
	require.NoError(t, err)
	require.Len(t, libs, 2)
	assert.Equal(t, "bench/.venv_vcdvcd", libs[0].Environment)
	assert.Equal(t, benchmark.KindContainer, libs[1].Kind)

	_, err = LoadManifest(write("typo.yaml", "libraries:\n  - name: x\n    entrypoint: a.py\n"))
	assert.ErrorContains(t, err, "entrypoint")

	_, err = LoadManifest(write("empty.yaml", "libraries: []\n"))
	assert.ErrorContains(t, err, "declares no libraries")

	_, err = LoadManifest(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
