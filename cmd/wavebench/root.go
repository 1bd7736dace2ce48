package main

import (
	"errors"
	"fmt"
	"os"

	"wavebench/internal/config"
	"wavebench/internal/db"
	"wavebench/internal/docker"
	"wavebench/internal/notify"
	"wavebench/internal/telemetry"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ErrNoResults is returned when a batch or report has no records at all.
var ErrNoResults = errors.New("no benchmark records found")

var exit = os.Exit
var cfgFile string

// Collaborators that tests replace.
var (
	appFs        = afero.NewOsFs()
	newStoreFunc = func(c config.Store) (db.Store, error) {
		return db.NewStore(db.StoreConfig{Type: c.Type, ConnectionString: c.DSN})
	}
	newDockerClientFunc = docker.NewClient
	newNotifierFunc     = notify.New
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wavebench",
	Short: "Benchmark VCD and FST waveform parsers side by side",
	Long: `wavebench runs every configured waveform-parser benchmark program in its
own environment, normalizes what they report into one record shape, and
writes a markdown comparison report with an overall ranking.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./wavebench.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().String("log-file", "", "Also append JSON logs to this file")
	rootCmd.PersistentFlags().String("data-dir", "", "Directory with the waveform input files")
	rootCmd.PersistentFlags().String("results-dir", "", "Directory for payloads, combined results and the report")
}

func bindFlags() {
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("log_file", rootCmd.PersistentFlags().Lookup("log-file"))
	viper.BindPFlag("paths.data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	viper.BindPFlag("paths.results_dir", rootCmd.PersistentFlags().Lookup("results-dir"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	bindFlags()
	if err := config.Load(cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exit(1)
	}
	telemetry.InitLogger(viper.GetBool("verbose"), viper.GetString("log_file"))
}

// loadConfig resolves and validates the configuration of one command.
func loadConfig(manifest string) (*config.Config, error) {
	cfg, err := config.FromViper(manifest)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
