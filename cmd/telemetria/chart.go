package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Oraida14/analisis-eficiencia-energetica/internal/fetcher"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/monitor"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/render"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/types"
)

var chartOutput string

// chartCmd creates the "chart" subcommand.
func chartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chart <tank>",
		Short: "Fetch a tank's level history and write the chart as PNG",
		Args:  cobra.ExactArgs(1),
		RunE:  runChart,
	}
	cmd.Flags().StringVarP(&chartOutput, "output", "o", "", "output file (default <tank>.png)")
	return cmd
}

func runChart(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	tank, ok := cfg.Tank(args[0])
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrUnknownScreen, monitor.TankScreen(args[0]))
	}

	httpFetcher := fetcher.NewHTTPFetcher(&cfg.Fetcher, logger)
	defer httpFetcher.Close()

	job := monitor.NewHistoryJob(cfg, tank, &render.Recorder{}, monitor.Deps{
		Fetcher: httpFetcher,
		Logger:  logger,
	})
	if err := job.Run(context.Background()); err != nil {
		return err
	}

	png, _ := job.Holder().PNG()
	if png == nil {
		return fmt.Errorf("%w: history of %s", types.ErrNoData, tank.Name)
	}

	path := chartOutput
	if path == "" {
		path = tank.Name + ".png"
	}
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}

	drawn, points := job.Holder().Info()
	fmt.Fprintf(cmd.OutOrStdout(), "\n✅ Chart written to %s\n", path)
	fmt.Fprintf(cmd.OutOrStdout(), "   Points: %d\n", points)
	fmt.Fprintf(cmd.OutOrStdout(), "   Drawn:  %s\n", drawn.Format("2006-01-02 15:04:05"))
	return nil
}
