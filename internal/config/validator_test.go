package config

import (
	"testing"

	"wavebench/internal/benchmark"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	scales := map[string]ScaleSettings{}
	for k, v := range defaultScales {
		scales[k] = v
	}
	return &Config{
		Scale:     "small",
		Scales:    scales,
		Libraries: DefaultLibraries(),
		Store:     Store{Type: "sqlite"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{
			name:   "Valid Configuration",
			mutate: func(c *Config) {},
		},
		{
			name:   "Unknown Scale",
			mutate: func(c *Config) { c.Scale = "huge" },
			errMsg: `scale must be one of [large medium small], got: "huge"`,
		},
		{
			name:   "Invalid Timeout",
			mutate: func(c *Config) { c.Scales["small"] = ScaleSettings{Timeout: 0, MasterTimeout: 10, Repetitions: 1} },
			errMsg: "scales.small.timeout must be positive",
		},
		{
			name:   "Invalid Repetitions",
			mutate: func(c *Config) { c.Scales["large"] = ScaleSettings{Timeout: 1, MasterTimeout: 10, Repetitions: 0} },
			errMsg: "scales.large.repetitions must be at least 1",
		},
		{
			name:   "Negative Override",
			mutate: func(c *Config) { c.Repetitions = -1 },
			errMsg: "repetitions must not be negative",
		},
		{
			name:   "No Libraries",
			mutate: func(c *Config) { c.Libraries = nil },
			errMsg: "at least one library must be configured",
		},
		{
			name:   "Unknown Kind",
			mutate: func(c *Config) { c.Libraries[0].Kind = "wasm" },
			errMsg: `libraries[0] (vcdvcd): kind must be isolated, container or build, got: "wasm"`,
		},
		{
			name:   "Missing Name",
			mutate: func(c *Config) { c.Libraries[1].Name = "" },
			errMsg: "libraries[1]: name is required",
		},
		{
			name:   "Duplicate Name",
			mutate: func(c *Config) { c.Libraries[1].Name = "vcdvcd" },
			errMsg: `duplicate name "vcdvcd"`,
		},
		{
			name: "Names Folding To One Results File",
			mutate: func(c *Config) {
				c.Libraries[0].Name = "py.wellen"
				c.Libraries[1].Name = "py_wellen"
			},
			errMsg: `libraries[1] (py_wellen): results file py_wellen.json is already used by "py.wellen"`,
		},
		{
			name: "Isolated Name Matching Build Results File",
			mutate: func(c *Config) {
				c.Libraries = append(c.Libraries, benchmark.Library{Name: "baseline_bench", Kind: benchmark.KindIsolated, EntryPoint: "x.py"})
			},
			errMsg: `libraries[4] (baseline_bench): results file baseline_bench.json is already used by "baseline"`,
		},
		{
			name: "Build Name Matching Isolated Results File",
			mutate: func(c *Config) {
				c.Libraries[0].Name = "fast_bench"
				c.Libraries[3].Name = "fast"
			},
			errMsg: `libraries[3] (fast): results file fast_bench.json is already used by "fast_bench"`,
		},
		{
			name:   "Name Shadowing Combined Results",
			mutate: func(c *Config) { c.Libraries[0].Name = "combined_small" },
			errMsg: "libraries[0] (combined_small): results file combined_small.json is reserved for combined results",
		},
		{
			name: "Distinct Results Files",
			mutate: func(c *Config) {
				c.Libraries = append(c.Libraries, benchmark.Library{Name: "baseline.py", Kind: benchmark.KindIsolated, EntryPoint: "x.py"})
			},
		},
		{
			name: "Container Without Image",
			mutate: func(c *Config) {
				c.Libraries = append(c.Libraries, benchmark.Library{Name: "c", Kind: benchmark.KindContainer, EntryPoint: "x.py"})
			},
			errMsg: "libraries[4] (c): image is required",
		},
		{
			name:   "Build Without Artifact",
			mutate: func(c *Config) { c.Libraries[3].Build.Artifact = "" },
			errMsg: "build.artifact is required",
		},
		{
			name:   "Postgres Without DSN",
			mutate: func(c *Config) { c.Store.Type = "postgres" },
			errMsg: "store.dsn is required for postgres",
		},
		{
			name:   "Unknown Store",
			mutate: func(c *Config) { c.Store.Type = "redis" },
			errMsg: "store.type must be sqlite, postgres or none",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Scale = "huge"
	cfg.Store.Type = "redis"
	cfg.Libraries[0].EntryPoint = ""

	err := cfg.Validate()
	assert.ErrorContains(t, err, "configuration validation failed")
	assert.ErrorContains(t, err, "scale must be one of")
	assert.ErrorContains(t, err, "store.type must be")
	assert.ErrorContains(t, err, "entry_point is required")
}
