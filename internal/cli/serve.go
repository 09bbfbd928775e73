package cli

import (
	"github.com/spf13/cobra"

	"github.com/islandcalc/islandcalc/internal/daemon"
)

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to listen on (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().BoolVar(&serveOffline, "offline", false, "Never call the price feed")
	serveCmd.Flags().StringVar(&serveRefresh, "refresh", "", "Cron spec for scheduled price refresh (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

var (
	serveHost    string
	servePort    int
	serveOffline bool
	serveRefresh string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the islandcalc API server",
	Long: `Start the calculator JSON API at localhost:8787.

Sessions live in memory and expire when idle. The ISLAND price is refreshed
on the configured cron schedule and logged to the local quote log.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if serveHost != "" {
		cfg.API.Host = serveHost
	}
	if servePort > 0 {
		cfg.API.Port = servePort
	}
	if serveOffline {
		cfg.PriceFeed.Enabled = false
	}
	if serveRefresh != "" {
		cfg.PriceFeed.RefreshCron = serveRefresh
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	d, err := daemon.NewWithConfig(cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	return d.Serve(cmd.Context())
}
