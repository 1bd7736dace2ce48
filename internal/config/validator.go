package config

import (
	"fmt"
	"os"
	"strings"

	"wavebench/internal/benchmark"
)

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errors []string

	if _, ok := c.Scales[c.Scale]; !ok {
		errors = append(errors, fmt.Sprintf("scale must be one of %v, got: %q", c.ScaleNames(), c.Scale))
	}
	for _, name := range c.ScaleNames() {
		s := c.Scales[name]
		if s.Timeout <= 0 {
			errors = append(errors, fmt.Sprintf("scales.%s.timeout must be positive, got: %g", name, s.Timeout))
		}
		if s.MasterTimeout <= 0 {
			errors = append(errors, fmt.Sprintf("scales.%s.master_timeout must be positive, got: %g", name, s.MasterTimeout))
		}
		if s.Repetitions < 1 {
			errors = append(errors, fmt.Sprintf("scales.%s.repetitions must be at least 1, got: %d", name, s.Repetitions))
		}
	}

	if c.Timeout < 0 {
		errors = append(errors, fmt.Sprintf("timeout must not be negative, got: %v", c.Timeout))
	}
	if c.Repetitions < 0 {
		errors = append(errors, fmt.Sprintf("repetitions must not be negative, got: %d", c.Repetitions))
	}

	if len(c.Libraries) == 0 {
		errors = append(errors, "at least one library must be configured")
	}
	seen := map[string]bool{}
	files := map[string]string{}
	for i, lib := range c.Libraries {
		errors = append(errors, validateLibrary(i, lib)...)
		if lib.Name == "" {
			continue
		}
		if seen[lib.Name] {
			errors = append(errors, fmt.Sprintf("libraries[%d]: duplicate name %q", i, lib.Name))
			continue
		}
		seen[lib.Name] = true

		file := lib.PayloadFile()
		switch {
		case strings.HasPrefix(file, "combined_"):
			errors = append(errors, fmt.Sprintf("libraries[%d] (%s): results file %s is reserved for combined results", i, lib.Name, file))
		case files[file] != "":
			errors = append(errors, fmt.Sprintf("libraries[%d] (%s): results file %s is already used by %q", i, lib.Name, file, files[file]))
		default:
			files[file] = lib.Name
		}
	}

	switch strings.ToLower(c.Store.Type) {
	case "", "sqlite", "sqlite3", "none", "off":
	case "postgres", "postgresql":
		if c.Store.DSN == "" {
			errors = append(errors, "store.dsn is required for postgres")
		}
	default:
		errors = append(errors, fmt.Sprintf("store.type must be sqlite, postgres or none, got: %q", c.Store.Type))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  %s", strings.Join(errors, "\n  "))
	}
	return nil
}

func validateLibrary(i int, lib benchmark.Library) []string {
	var errors []string
	where := fmt.Sprintf("libraries[%d]", i)
	if lib.Name == "" {
		errors = append(errors, where+": name is required")
	} else {
		where = fmt.Sprintf("libraries[%d] (%s)", i, lib.Name)
	}

	switch lib.Kind {
	case benchmark.KindIsolated:
		if lib.EntryPoint == "" {
			errors = append(errors, where+": entry_point is required")
		}
	case benchmark.KindContainer:
		if lib.EntryPoint == "" {
			errors = append(errors, where+": entry_point is required")
		}
		if lib.Image == "" {
			errors = append(errors, where+": image is required")
		}
	case benchmark.KindBuild:
		if lib.Build.Artifact == "" {
			errors = append(errors, where+": build.artifact is required")
		}
		if lib.Build.Timeout < 0 {
			errors = append(errors, where+": build.timeout must not be negative")
		}
	default:
		errors = append(errors, fmt.Sprintf("%s: kind must be isolated, container or build, got: %q", where, lib.Kind))
	}
	return errors
}

// ValidateAndExit validates the configuration and exits with a non-zero code if validation fails.
func (c *Config) ValidateAndExit() {
	if err := c.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
