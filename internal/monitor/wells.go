package monitor

import (
	"context"
	"strings"
	"time"

	"github.com/Oraida14/analisis-eficiencia-energetica/internal/config"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/render"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/telemetry"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/well"
)

// WellURL returns the detailed status endpoint of a well.
func WellURL(base, site string) string {
	return endpoint(base, "datos-resumidos-detallados-new", site)
}

// AveragesURL returns the hourly averages file of a well.
func AveragesURL(base, site string) string {
	return endpoint(base, "templates", "datos_new", site+"_promedios_horarios.csv")
}

// WellJob polls a well's detailed status and drives its page.
type WellJob struct {
	*screenJob
	site   string
	source string
}

// NewWellJob creates the job of one well page.
func NewWellJob(cfg *config.Config, site string, surface render.Surface, d Deps) *WellJob {
	site = strings.ToLower(site)
	screen := WellScreen(site)
	renderer := render.NewRenderer(screen, surface, nil, well.NewScreen(site), d.location(), d.Logger)
	return &WellJob{
		screenJob: newScreenJob(screen, screen, cfg.Wells.Interval, renderer, d),
		site:      site,
		source:    WellURL(cfg.Sources.StatusBaseURL, site),
	}
}

// Run polls once. A failed fetch shows the well as unreachable.
func (j *WellJob) Run(ctx context.Context) error {
	res, err := j.poll(ctx, false)
	if err != nil {
		return err
	}
	return res.Err
}

// Refresh polls on request.
func (j *WellJob) Refresh(ctx context.Context) (render.Result, error) {
	return j.poll(ctx, true)
}

func (j *WellJob) poll(ctx context.Context, manual bool) (render.Result, error) {
	start := time.Now()
	rec, err := j.fetch(ctx)
	elapsed := time.Since(start)
	if ctx.Err() != nil {
		return render.Result{}, ctx.Err()
	}

	if err != nil {
		j.logger.Warn("no data", "error", err)
		if manual {
			j.observe(render.Result{}, true, elapsed)
			return render.Result{}, err
		}
		_, _, res := j.render(nil, false)
		j.observe(res, true, elapsed)
		return res, nil
	}

	_, _, res := j.render(rec, manual)
	j.observe(res, false, elapsed)
	if res.Changed {
		j.archive(ctx, rec)
	}
	return res, nil
}

func (j *WellJob) fetch(ctx context.Context) (*telemetry.Record, error) {
	body, err := fetchBody(ctx, j.deps.Fetcher, j.source)
	if err != nil {
		return nil, err
	}
	rec, err := telemetry.ParseObject(j.site, j.source, body)
	if err != nil {
		return nil, telemetry.NoData(j.source, err)
	}
	return j.normalize(j.source, rec)
}

// AveragesJob writes a well's day and night averages card.
type AveragesJob struct {
	*screenJob
	site   string
	source string
}

// NewAveragesJob creates the averages job of one well page.
func NewAveragesJob(cfg *config.Config, site string, surface render.Surface, d Deps) *AveragesJob {
	site = strings.ToLower(site)
	name := "promedios/" + site
	renderer := render.NewRenderer(name, surface, nil, nil, d.location(), d.Logger)
	return &AveragesJob{
		screenJob: newScreenJob(name, WellScreen(site), cfg.Wells.Interval, renderer, d),
		site:      site,
		source:    AveragesURL(cfg.Sources.DataBaseURL, site),
	}
}

// Averages fetches and buckets the hourly file.
func (j *AveragesJob) Averages(ctx context.Context) (telemetry.DayNight, error) {
	body, err := fetchBody(ctx, j.deps.Fetcher, j.source)
	if err != nil {
		return telemetry.DayNight{}, err
	}
	rows, err := telemetry.ParseHourly(j.source, body)
	if err != nil {
		return telemetry.DayNight{}, telemetry.NoData(j.source, err)
	}
	return telemetry.Averages(rows), nil
}

// Run refreshes the card. A failed fetch keeps the previous values.
func (j *AveragesJob) Run(ctx context.Context) error {
	start := time.Now()
	dn, err := j.Averages(ctx)
	elapsed := time.Since(start)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		j.logger.Warn("averages unavailable", "error", err)
		j.observe(render.Result{}, true, elapsed)
		return nil
	}

	res := j.apply(well.AverageOps(dn))
	res.Changed = res.Writes > 0
	j.observe(res, false, elapsed)
	return res.Err
}
