package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. WAVEBENCH_SCALE.
const EnvPrefix = "WAVEBENCH"

// Load initializes the configuration from file and environment variables.
// A missing wavebench.yaml is not an error; an explicit cfgFile that cannot
// be read is.
func Load(cfgFile string) error {
	// .env is optional
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("wavebench")
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	SetDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
		return nil
	}
	fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	return nil
}

// SetDefaults registers the built-in defaults.
func SetDefaults() {
	viper.SetDefault("scale", "small")
	for name, s := range defaultScales {
		viper.SetDefault("scales."+name+".timeout", s.Timeout)
		viper.SetDefault("scales."+name+".master_timeout", s.MasterTimeout)
		viper.SetDefault("scales."+name+".repetitions", s.Repetitions)
	}
	viper.SetDefault("timeout", 0)
	viper.SetDefault("repetitions", 0)

	viper.SetDefault("paths.data_dir", "data")
	viper.SetDefault("paths.results_dir", "results")
	viper.SetDefault("paths.report", "")
	viper.SetDefault("paths.charts_dir", "")

	viper.SetDefault("store.type", "sqlite")
	viper.SetDefault("store.dsn", "")

	viper.SetDefault("metrics.addr", "")
	viper.SetDefault("metrics.pushgateway_url", "")

	viper.SetDefault("docker.pull", false)

	// Slack is on by default only when a bot token is present
	viper.SetDefault("notifications.slack.enabled", os.Getenv("SLACK_BOT_USER_TOKEN") != "")
	viper.SetDefault("notifications.slack.webhook_url", "")
	viper.SetDefault("notifications.slack.channel", "#benchmarks")

	viper.SetDefault("verbose", false)
	viper.SetDefault("log_file", "")
}
