package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Oraida14/analisis-eficiencia-energetica/internal/config"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/logging"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "telemetria",
		Short: "Telemetry poller and dashboard for tanks, sites and wells",
		Long: `telemetria polls the water network's telemetry endpoints and keeps a
set of screens up to date:

  • tank pages with labels, level gauge, alerts and history chart
  • the network view with flow totals and site indicators
  • per-well detail pages with status and day/night averages

Screens are served by an embedded dashboard and streamed to browsers
over WebSocket.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(runCmd())
	root.AddCommand(onceCmd())
	root.AddCommand(chartCmd())
	root.AddCommand(averagesCmd())
	root.AddCommand(energyCmd())
	root.AddCommand(configCmd())
	root.AddCommand(versionCmd())
	return root
}

// loadConfig reads and validates the configuration and builds the logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, logging.New(cfg.Logging, verbose), nil
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "telemetria %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Sources:\n")
			fmt.Fprintf(out, "  API:               %s\n", cfg.Sources.APIBaseURL)
			fmt.Fprintf(out, "  Data:              %s\n", cfg.Sources.DataBaseURL)
			fmt.Fprintf(out, "  Status:            %s\n", cfg.Sources.StatusBaseURL)
			fmt.Fprintf(out, "\nTanks:\n")
			for _, t := range cfg.Tanks {
				band, _ := cfg.Band(t.Name)
				fmt.Fprintf(out, "  %-16s every %s, history every %s, low %.2f high %.2f\n",
					t.Name, t.Interval, t.HistoryInterval, band.LowLevel, band.HighLevel)
			}
			fmt.Fprintf(out, "\nSites:\n")
			fmt.Fprintf(out, "  Interval:          %s\n", cfg.Sites.Interval)
			fmt.Fprintf(out, "  Inflow:            %v\n", cfg.Sites.Inflow)
			fmt.Fprintf(out, "  Outflow:           %v\n", cfg.Sites.Outflow)
			fmt.Fprintf(out, "\nWells:\n")
			fmt.Fprintf(out, "  Interval:          %s\n", cfg.Wells.Interval)
			fmt.Fprintf(out, "  Sites:             %v\n", cfg.Wells.Sites)
			fmt.Fprintf(out, "\nDashboard:\n")
			fmt.Fprintf(out, "  Enabled:           %v\n", cfg.Dashboard.Enabled)
			fmt.Fprintf(out, "  Port:              %d\n", cfg.Dashboard.Port)
			fmt.Fprintf(out, "  Location:          %s\n", cfg.Dashboard.Location)
			fmt.Fprintf(out, "\nStorage:\n")
			fmt.Fprintf(out, "  Type:              %s\n", cfg.Storage.Type)
			fmt.Fprintf(out, "  Output Path:       %s\n", cfg.Storage.OutputPath)
			fmt.Fprintf(out, "\nMetrics:\n")
			fmt.Fprintf(out, "  Enabled:           %v\n", cfg.Metrics.Enabled)
			fmt.Fprintf(out, "  Path:              %s\n", cfg.Metrics.Path)
			return nil
		},
	}
}
