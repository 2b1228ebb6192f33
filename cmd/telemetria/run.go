package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Oraida14/analisis-eficiencia-energetica/internal/config"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/dashboard"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/fetcher"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/monitor"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/observability"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/pipeline"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/render"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/storage"
)

var (
	runPort       int
	runStorage    string
	runOutputPath string
)

// runCmd creates the "run" subcommand.
func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Poll every screen and serve the dashboard",
		Long:  "Start every screen job on its own schedule and serve the pages, state API and live stream until interrupted.",
		Args:  cobra.NoArgs,
		RunE:  runRun,
	}

	cmd.Flags().IntVarP(&runPort, "port", "p", 0, "dashboard port (overrides config)")
	cmd.Flags().StringVar(&runStorage, "storage", "", "archive type: none, jsonl, csv, mongodb")
	cmd.Flags().StringVarP(&runOutputPath, "output", "o", "", "archive output directory")

	return cmd
}

func applyRunOverrides(cfg *config.Config) {
	if runPort > 0 {
		cfg.Dashboard.Port = runPort
	}
	if runStorage != "" {
		cfg.Storage.Type = strings.ToLower(runStorage)
	}
	if runOutputPath != "" {
		cfg.Storage.OutputPath = runOutputPath
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	applyRunOverrides(cfg)
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	loc, err := cfg.Dashboard.Zone()
	if err != nil {
		return fmt.Errorf("dashboard location: %w", err)
	}

	metrics := observability.NewMetrics(logger)

	store, err := storage.New(cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}
	defer store.Close()

	httpFetcher := fetcher.NewHTTPFetcher(&cfg.Fetcher, logger)
	defer httpFetcher.Close()

	dash, err := dashboard.NewDashboard(cfg, metrics, logger)
	if err != nil {
		return fmt.Errorf("create dashboard: %w", err)
	}

	surface := dash.Surface
	if cfg.Browser.Enabled {
		browser, err := render.NewBrowserSurface(cfg.Browser, logger)
		if err != nil {
			return fmt.Errorf("start browser: %w", err)
		}
		defer browser.Close()
		surface = func(screen string) render.Surface {
			s := dash.Surface(screen)
			if screen == cfg.Browser.Screen {
				return render.NewMultiSurface(s, browser)
			}
			return s
		}
	}

	jobs := monitor.Build(cfg, surface, monitor.Deps{
		Fetcher:  httpFetcher,
		Pipeline: pipeline.FromConfig(cfg.Pipeline, logger),
		Metrics:  metrics,
		Storage:  store,
		Notifier: monitor.NewNotifier(cfg.Notify, logger),
		Location: loc,
		Logger:   logger,
	})
	dash.Register(jobs...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Dashboard.Enabled {
		if err := dash.Start(ctx); err != nil {
			return err
		}
	}

	scheduler := monitor.NewScheduler(logger)
	for _, j := range jobs {
		scheduler.Add(j)
	}

	logger.Info("telemetria starting",
		"jobs", scheduler.Len(),
		"dashboard", cfg.Dashboard.Enabled,
		"port", cfg.Dashboard.Port,
		"storage", store.Name(),
	)

	start := time.Now()
	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	logger.Info("received signal, shutting down...")
	scheduler.Stop()

	stats := metrics.Snapshot()
	fmt.Fprintf(cmd.OutOrStdout(), "\n✅ Stopped after %s\n", time.Since(start).Round(time.Second))
	fmt.Fprintf(cmd.OutOrStdout(), "   Polls:     %v total, %v without data\n", stats["polls_total"], stats["polls_degraded"])
	fmt.Fprintf(cmd.OutOrStdout(), "   Writes:    %v element updates\n", stats["render_writes"])
	fmt.Fprintf(cmd.OutOrStdout(), "   Archived:  %v readings (%s)\n", stats["records_stored"], store.Name())
	return nil
}
