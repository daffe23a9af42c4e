// Package main provides the CLI entry point for scenariotool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"scenariotool/internal/config"
	"scenariotool/internal/logging"
	"scenariotool/internal/output"
)

// version is overridden at build time via -ldflags.
var version = "dev"

var (
	configPath string
	verbose    bool
	debug      bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "scenariotool",
	Short: "Maintenance tooling for ATC simulator scenario files",
	Long: `scenariotool maintains simulator scenario files.

It rewrites legacy _CTR controller identifiers to their standardized
display names using the facility reference document, splits simulator
lint output into per-category error lists, and keeps an audit trail of
every replacement so runs can be undone.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(debug)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath, "Path to configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(replaceCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(splitlintCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(undoCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(statsCmd)
}

// loadConfig reads the configuration file named by --config. A missing
// file at the default path yields the built-in defaults.
func loadConfig() (*config.Configuration, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// newOutput builds the user-facing output handle honoring --verbose.
func newOutput() *output.Output {
	outCfg := output.DefaultConfig()
	outCfg.Verbose = verbose
	return output.New(outCfg)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
