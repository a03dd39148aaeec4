package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/crudcheck/internal/common"
)

var (
	// Command-line flags
	configFiles []string // Multiple --config flags supported, later files override earlier ones
	overrides   common.FlagOverrides

	// Global state
	config *common.Config
	logger arbor.ILogger
)

// errScenariosFailed makes the process exit non-zero without a usage dump
var errScenariosFailed = errors.New("one or more scenarios failed")

var rootCmd = &cobra.Command{
	Use:               "crudcheck",
	Short:             "Browser-driven CRUD checks for the contact list application",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringArrayVarP(&configFiles, "config", "c", nil, "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flags.StringVar(&overrides.BaseURL, "base-url", "", "Application base URL (overrides config)")
	flags.StringVar(&overrides.ResultsDir, "results-dir", "", "Directory for logs, screenshots and result files (overrides config)")
	flags.StringVar(&overrides.LogLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	flags.BoolVar(&overrides.Headful, "headful", false, "Show the browser window")

	rootCmd.AddCommand(runCmd, apiCmd, testappCmd, versionCmd)
}

// setup runs before every subcommand.
// Order: config (defaults -> files -> env) -> CLI overrides -> logger -> banner
func setup(cmd *cobra.Command, args []string) error {
	if cmd == versionCmd {
		return nil
	}

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("crudcheck.toml"); err == nil {
			configFiles = append(configFiles, "crudcheck.toml")
		} else if _, err := os.Stat("deployments/local/crudcheck.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/crudcheck.toml")
		}
	}

	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	common.ApplyFlagOverrides(config, overrides)

	if err := config.Validate(); err != nil {
		return err
	}

	logger = common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	logger.Debug().
		Strs("config_files", configFiles).
		Str("base_url", config.App.BaseURL).
		Str("api_url", config.ResolvedAPIURL()).
		Str("results_dir", config.Output.ResultsDir).
		Bool("headless", config.Browser.Headless).
		Str("log_level", config.Logging.Level).
		Msg("Resolved configuration")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errScenariosFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
