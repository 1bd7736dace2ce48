package benchmark

import "time"

// TargetKind selects how a library's benchmark program is executed.
type TargetKind string

const (
	// KindIsolated runs an entry point with the interpreter of its own
	// environment directory.
	KindIsolated TargetKind = "isolated"
	// KindContainer runs an entry point inside a container image.
	KindContainer TargetKind = "container"
	// KindBuild builds an artifact first and runs it directly, reading one
	// result per output line.
	KindBuild TargetKind = "build"
)

// Library describes one implementation under test.
type Library struct {
	Name        string     `mapstructure:"name" yaml:"name" json:"name"`
	Label       string     `mapstructure:"label" yaml:"label" json:"label,omitempty"`
	Kind        TargetKind `mapstructure:"kind" yaml:"kind" json:"kind"`
	EntryPoint  string     `mapstructure:"entry_point" yaml:"entry_point" json:"entry_point,omitempty"`
	Environment string     `mapstructure:"environment" yaml:"environment" json:"environment,omitempty"`
	Interpreter string     `mapstructure:"interpreter" yaml:"interpreter" json:"interpreter,omitempty"`
	Image       string     `mapstructure:"image" yaml:"image" json:"image,omitempty"`
	Language    string     `mapstructure:"language" yaml:"language" json:"language,omitempty"`
	Format      string     `mapstructure:"format" yaml:"format" json:"format,omitempty"`
	Build       BuildStep  `mapstructure:"build" yaml:"build" json:"build,omitempty"`
}

// BuildStep is the compile step of a KindBuild library.
type BuildStep struct {
	Command  []string      `mapstructure:"command" yaml:"command" json:"command,omitempty"`
	Dir      string        `mapstructure:"dir" yaml:"dir" json:"dir,omitempty"`
	Artifact string        `mapstructure:"artifact" yaml:"artifact" json:"artifact,omitempty"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout,omitempty"`
}

// PayloadFile is the name of the file the library's results are saved to in
// the results directory. Build libraries save their raw result lines under a
// "_bench" suffix.
func (l Library) PayloadFile() string {
	stem := ArtifactName(l.Name)
	if l.Kind == KindBuild {
		stem += "_bench"
	}
	return stem + ".json"
}

// DisplayName returns the label if set, else the name.
func (l Library) DisplayName() string {
	if l.Label != "" {
		return l.Label
	}
	return l.Name
}
