package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"wavebench/internal/benchmark"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ErrInvalidScale is returned for a scale name with no profile.
var ErrInvalidScale = errors.New("invalid scale")

// ScaleSettings holds the per-scale tier in seconds, as written in the
// config file.
type ScaleSettings struct {
	Timeout       float64 `mapstructure:"timeout" yaml:"timeout"`
	MasterTimeout float64 `mapstructure:"master_timeout" yaml:"master_timeout"`
	Repetitions   int     `mapstructure:"repetitions" yaml:"repetitions"`
}

var defaultScales = map[string]ScaleSettings{
	"small":  {Timeout: 60, MasterTimeout: 300, Repetitions: 3},
	"medium": {Timeout: 120, MasterTimeout: 600, Repetitions: 3},
	"large":  {Timeout: 300, MasterTimeout: 1200, Repetitions: 3},
}

// Paths locates inputs and outputs of a batch.
type Paths struct {
	DataDir    string
	ResultsDir string
	Report     string
	ChartsDir  string
}

// ReportPath returns the configured report path or the default inside the
// results directory.
func (p Paths) ReportPath() string {
	if p.Report != "" {
		return p.Report
	}
	return filepath.Join(p.ResultsDir, "benchmark_report.md")
}

type Store struct {
	Type string
	DSN  string
}

type Metrics struct {
	Addr           string
	PushgatewayURL string
}

type Slack struct {
	Enabled    bool
	WebhookURL string
	Channel    string
	BotToken   string
}

// Config is the resolved, read-only configuration of one invocation.
type Config struct {
	Scale       string
	Scales      map[string]ScaleSettings
	Timeout     time.Duration
	Repetitions int
	Paths       Paths
	Libraries   []benchmark.Library
	Store       Store
	Metrics     Metrics
	Slack       Slack
	DockerPull  bool
	Verbose     bool
	LogFile     string
}

// FromViper assembles a Config from the loaded viper state. manifest, when
// set, replaces the configured library list.
func FromViper(manifest string) (*Config, error) {
	cfg := &Config{
		Scale:       viper.GetString("scale"),
		Scales:      map[string]ScaleSettings{},
		Timeout:     seconds(viper.GetFloat64("timeout")),
		Repetitions: viper.GetInt("repetitions"),
		Paths: Paths{
			DataDir:    viper.GetString("paths.data_dir"),
			ResultsDir: viper.GetString("paths.results_dir"),
			Report:     viper.GetString("paths.report"),
			ChartsDir:  viper.GetString("paths.charts_dir"),
		},
		Store: Store{
			Type: viper.GetString("store.type"),
			DSN:  viper.GetString("store.dsn"),
		},
		Metrics: Metrics{
			Addr:           viper.GetString("metrics.addr"),
			PushgatewayURL: viper.GetString("metrics.pushgateway_url"),
		},
		Slack: Slack{
			Enabled:    viper.GetBool("notifications.slack.enabled"),
			WebhookURL: viper.GetString("notifications.slack.webhook_url"),
			Channel:    viper.GetString("notifications.slack.channel"),
			BotToken:   os.Getenv("SLACK_BOT_USER_TOKEN"),
		},
		DockerPull: viper.GetBool("docker.pull"),
		Verbose:    viper.GetBool("verbose"),
		LogFile:    viper.GetString("log_file"),
	}

	for _, name := range scaleNames() {
		prefix := "scales." + name + "."
		cfg.Scales[name] = ScaleSettings{
			Timeout:       viper.GetFloat64(prefix + "timeout"),
			MasterTimeout: viper.GetFloat64(prefix + "master_timeout"),
			Repetitions:   viper.GetInt(prefix + "repetitions"),
		}
	}

	switch {
	case manifest != "":
		libs, err := LoadManifest(manifest)
		if err != nil {
			return nil, err
		}
		cfg.Libraries = libs
	case viper.IsSet("libraries"):
		if err := viper.UnmarshalKey("libraries", &cfg.Libraries); err != nil {
			return nil, fmt.Errorf("failed to decode libraries: %w", err)
		}
	default:
		cfg.Libraries = DefaultLibraries()
	}
	return cfg, nil
}

// scaleNames returns the built-in scales plus any declared in the config
// file, sorted.
func scaleNames() []string {
	seen := map[string]bool{}
	for name := range defaultScales {
		seen[name] = true
	}
	for name := range viper.GetStringMap("scales") {
		seen[name] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveProfile builds the immutable profile for scale. A positive
// timeoutOverride replaces the master timeout; a positive repsOverride
// replaces the repetition count.
func (c *Config) ResolveProfile(scale string, timeoutOverride time.Duration, repsOverride int) (benchmark.ScaleProfile, error) {
	s, ok := c.Scales[scale]
	if !ok {
		return benchmark.ScaleProfile{}, fmt.Errorf("%w: %q (known: %v)", ErrInvalidScale, scale, c.ScaleNames())
	}
	profile := benchmark.ScaleProfile{
		Name:          scale,
		Timeout:       seconds(s.Timeout),
		MasterTimeout: seconds(s.MasterTimeout),
		Repetitions:   s.Repetitions,
	}
	if timeoutOverride > 0 {
		profile.MasterTimeout = timeoutOverride
	}
	if repsOverride > 0 {
		profile.Repetitions = repsOverride
	}
	return profile, profile.Validate()
}

// ScaleNames lists the configured scales in sorted order.
func (c *Config) ScaleNames() []string {
	names := make([]string, 0, len(c.Scales))
	for name := range c.Scales {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type manifestFile struct {
	Libraries []benchmark.Library `yaml:"libraries"`
}

// LoadManifest reads a YAML library manifest. Unknown keys are rejected so
// a misspelt field does not silently fall back to a default.
func LoadManifest(path string) ([]benchmark.Library, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	var m manifestFile
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	if len(m.Libraries) == 0 {
		return nil, fmt.Errorf("manifest %s declares no libraries", path)
	}
	return m.Libraries, nil
}

// DefaultLibraries is the suite run when nothing else is configured: three
// interpreted parsers each in its own environment, and the natively built
// baseline reader.
func DefaultLibraries() []benchmark.Library {
	isolated := func(name, label, format string) benchmark.Library {
		return benchmark.Library{
			Name:        name,
			Label:       label,
			Kind:        benchmark.KindIsolated,
			EntryPoint:  filepath.Join("benchmarks", "python", "bench_"+name+".py"),
			Environment: filepath.Join("benchmarks", "python", ".venv_"+name),
			Language:    "Python",
			Format:      format,
		}
	}
	return []benchmark.Library{
		isolated("vcdvcd", "vcdvcd (Python VCD)", "VCD"),
		isolated("pylibfst", "pylibfst (Python FST)", "FST"),
		isolated("pywellen", "pywellen (Python VCD+FST)", "VCD+FST"),
		{
			Name:     "baseline",
			Label:    "wavebench-baseline (Go raw read)",
			Kind:     benchmark.KindBuild,
			Language: "Go",
			Format:   "mixed",
			Build: benchmark.BuildStep{
				Command:  []string{"go", "build", "-o", filepath.Join("bin", "wavebench-baseline"), "./cmd/wavebench-baseline"},
				Artifact: filepath.Join("bin", "wavebench-baseline"),
			},
		},
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
