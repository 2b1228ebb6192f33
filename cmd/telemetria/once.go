package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Oraida14/analisis-eficiencia-energetica/internal/config"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/dashboard"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/fetcher"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/monitor"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/observability"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/pipeline"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/render"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/storage"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/types"
)

var onceScreen string

// onceCmd creates the "once" subcommand.
func onceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "once",
		Short: "Poll every screen once and print the rendered labels",
		Args:  cobra.NoArgs,
		RunE:  runOnce,
	}
	cmd.Flags().StringVarP(&onceScreen, "screen", "s", "", "only poll this screen (e.g. tanque/lajas, sitios)")
	return cmd
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dash, jobs, cleanup, err := setupOnce(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if onceScreen != "" {
		var selected []monitor.ScreenJob
		for _, j := range jobs {
			if j.Screen() == onceScreen {
				selected = append(selected, j)
			}
		}
		if len(selected) == 0 {
			return fmt.Errorf("%w: %s", types.ErrUnknownScreen, onceScreen)
		}
		jobs = selected
	}

	for _, j := range jobs {
		if err := j.Run(ctx); err != nil {
			logger.Warn("job failed", "job", j.Name(), "error", err)
		}
	}

	return printScreens(cmd.OutOrStdout(), dash, jobs)
}

// setupOnce wires the jobs against the dashboard pages without serving them.
func setupOnce(cfg *config.Config, logger *slog.Logger) (*dashboard.Dashboard, []monitor.ScreenJob, func(), error) {
	loc, err := cfg.Dashboard.Zone()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("dashboard location: %w", err)
	}
	dash, err := dashboard.NewDashboard(cfg, nil, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create dashboard: %w", err)
	}
	store, err := storage.New(cfg.Storage, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create storage: %w", err)
	}
	httpFetcher := fetcher.NewHTTPFetcher(&cfg.Fetcher, logger)

	jobs := monitor.Build(cfg, dash.Surface, monitor.Deps{
		Fetcher:  httpFetcher,
		Pipeline: pipeline.FromConfig(cfg.Pipeline, logger),
		Metrics:  observability.NewMetrics(logger),
		Storage:  store,
		Notifier: monitor.NewNotifier(cfg.Notify, logger),
		Location: loc,
		Logger:   logger,
	})
	dash.Register(jobs...)

	cleanup := func() {
		httpFetcher.Close()
		store.Close()
	}
	return dash, jobs, cleanup, nil
}

// printScreens writes the labels each screen's page now shows.
func printScreens(out io.Writer, dash *dashboard.Dashboard, jobs []monitor.ScreenJob) error {
	byScreen := make(map[string][]monitor.ScreenJob)
	var screens []string
	for _, j := range jobs {
		if _, ok := byScreen[j.Screen()]; !ok {
			screens = append(screens, j.Screen())
		}
		byScreen[j.Screen()] = append(byScreen[j.Screen()], j)
	}
	sort.Strings(screens)

	for _, screen := range screens {
		page, ok := dash.Page(screen)
		if !ok {
			continue
		}
		var ids []string
		degraded := false
		for _, j := range byScreen[screen] {
			st := j.State()
			degraded = degraded || st.Degraded
			for id := range st.Texts() {
				ids = append(ids, id)
			}
		}
		sort.Strings(ids)

		html, err := page.HTML()
		if err != nil {
			return err
		}
		labels, err := render.ReadLabels(html, ids)
		if err != nil {
			return err
		}

		status := "ok"
		if degraded {
			status = "sin datos"
		}
		fmt.Fprintf(out, "\n📟 %s (%s)\n", screen, status)
		for _, id := range ids {
			if text, ok := labels[id]; ok {
				fmt.Fprintf(out, "   %-20s %s\n", id, text)
			}
		}
	}
	fmt.Fprintf(out, "\n✅ Polled %d jobs on %d screens\n", len(jobs), len(screens))
	return nil
}
