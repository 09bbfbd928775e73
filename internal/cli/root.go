// Package cli implements the islandcalc command-line interface using Cobra.
// Each subcommand maps to one calculator capability (play, stake, tables,
// price) or to the HTTP server (serve).
package cli

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/islandcalc/islandcalc/internal/daemon"
)

var (
	configPath  string
	economyPath string
	logLevel    string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.islandcalc/config.toml)")
	rootCmd.PersistentFlags().StringVar(&economyPath, "economy", "", "Economy YAML overriding the built-in tables")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
}

var rootCmd = &cobra.Command{
	Use:   "islandcalc",
	Short: "islandcalc: estimate ISLAND token earnings",
	Long: `islandcalc projects daily, cycle and yearly ISLAND earnings from play
intensity, staked amount and palm boosts, and tracks staking reward tiers.

Run 'islandcalc serve' to expose the calculator as a JSON API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies the global flag overrides,
// then configures logging from the result.
func loadConfig() (daemon.Config, error) {
	cfg, err := daemon.LoadConfig(configPath)
	if err != nil {
		return cfg, err
	}
	if economyPath != "" {
		cfg.Economy.File = economyPath
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := setupLogging(cfg.Logging); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func setupLogging(lc daemon.LoggingConfig) error {
	level, err := log.ParseLevel(lc.Level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(level)
	log.SetOutput(os.Stderr)
	if lc.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}
