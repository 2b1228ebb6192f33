package main

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Oraida14/analisis-eficiencia-energetica/internal/fetcher"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/monitor"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/render"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/types"
)

// averagesCmd creates the "averages" subcommand.
func averagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "averages <site>",
		Short: "Print a well's day and night hourly averages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if !slices.ContainsFunc(cfg.Wells.Sites, func(s string) bool { return strings.EqualFold(s, args[0]) }) {
				return fmt.Errorf("%w: %s", types.ErrUnknownSite, args[0])
			}
			httpFetcher := fetcher.NewHTTPFetcher(&cfg.Fetcher, logger)
			defer httpFetcher.Close()

			job := monitor.NewAveragesJob(cfg, args[0], &render.Recorder{}, monitor.Deps{
				Fetcher: httpFetcher,
				Logger:  logger,
			})
			dn, err := job.Averages(context.Background())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n📊 %s\n", args[0])
			fmt.Fprintf(out, "   Gasto:    %s\n", dn.Flow)
			fmt.Fprintf(out, "   Presión:  %s\n", dn.Pressure)
			fmt.Fprintf(out, "   Nivel:    %s\n", dn.Level)
			return nil
		},
	}
}
