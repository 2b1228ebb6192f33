package monitor

import (
	"context"
	"time"

	"github.com/Oraida14/analisis-eficiencia-energetica/internal/chart"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/config"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/level"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/render"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/telemetry"
)

// TankURL returns the summary endpoint of a tank.
func TankURL(base, tank string) string {
	return endpoint(base, "datos-resumidos", tank)
}

// HistoryURL returns the level history endpoint of a tank.
func HistoryURL(base, tank string) string {
	return endpoint(base, "historial", tank)
}

// TankJob polls a tank summary and drives its page: labels, gauge and
// level alerts.
type TankJob struct {
	*screenJob
	tank   config.TankConfig
	gauge  *level.Screen
	source string
}

// NewTankJob creates the job of one tank page.
func NewTankJob(cfg *config.Config, tank config.TankConfig, surface render.Surface, d Deps) *TankJob {
	band, _ := cfg.Band(tank.Name)
	gauge := level.NewScreen(tank, band)
	screen := TankScreen(tank.Name)
	renderer := render.NewRenderer(screen, surface, tank.Bindings, gauge, d.location(), d.Logger)
	return &TankJob{
		screenJob: newScreenJob(screen, screen, tank.Interval, renderer, d),
		tank:      tank,
		gauge:     gauge,
		source:    TankURL(cfg.Sources.APIBaseURL, tank.Name),
	}
}

// Run polls once. A failed fetch renders the degraded state.
func (j *TankJob) Run(ctx context.Context) error {
	res, err := j.poll(ctx, false)
	if err != nil {
		return err
	}
	return res.Err
}

// Refresh polls on request. A failed fetch leaves the page untouched and
// is returned.
func (j *TankJob) Refresh(ctx context.Context) (render.Result, error) {
	return j.poll(ctx, true)
}

func (j *TankJob) fetch(ctx context.Context) (*telemetry.Record, error) {
	body, err := fetchBody(ctx, j.deps.Fetcher, j.source)
	if err != nil {
		return nil, err
	}
	rec, err := telemetry.ParseObject(j.tank.Name, j.source, body)
	if err != nil {
		return nil, telemetry.NoData(j.source, err)
	}
	return j.normalize(j.source, rec)
}

func (j *TankJob) poll(ctx context.Context, manual bool) (render.Result, error) {
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

	prev, next, res := j.render(rec, manual)
	j.observe(res, false, elapsed)

	v := rec.Number(j.gauge.Field)
	j.deps.Metrics.SetTankLevel(j.tank.Name, v)
	if res.Changed {
		j.archive(ctx, rec)
	}
	if next.Level != prev.Level {
		j.transition(ctx, prev.Level, next.Level, v)
	}
	return res, nil
}

// transition reports a move into the low or high band.
func (j *TankJob) transition(ctx context.Context, from, to string, v float64) {
	st := level.ParseState(to)
	if st != level.Low && st != level.High {
		return
	}
	_, msg, _ := level.Style(st)
	j.deps.Metrics.LevelAlert(j.tank.Name, to)
	j.deps.Notifier.Notify(ctx, Alert{
		Tank:      j.tank.Name,
		State:     to,
		Previous:  from,
		Level:     v,
		Message:   msg,
		Timestamp: time.Now(),
	})
}

// HistoryJob redraws a tank's level chart and points the page's chart
// element at the new image.
type HistoryJob struct {
	*screenJob
	tank   string
	holder *chart.Holder
	source string
	loc    *time.Location
}

// NewHistoryJob creates the chart job of one tank.
func NewHistoryJob(cfg *config.Config, tank config.TankConfig, surface render.Surface, d Deps) *HistoryJob {
	title := tank.Title
	if title == "" {
		title = tank.Name
	}
	name := "historial/" + tank.Name
	renderer := render.NewRenderer(name, surface, nil, nil, d.location(), d.Logger)
	return &HistoryJob{
		screenJob: newScreenJob(name, TankScreen(tank.Name), tank.HistoryInterval, renderer, d),
		tank:      tank.Name,
		holder:    chart.NewHolder(title, d.location()),
		source:    HistoryURL(cfg.Sources.APIBaseURL, tank.Name),
		loc:       d.location(),
	}
}

// Tank returns the tank name.
func (j *HistoryJob) Tank() string { return j.tank }

// Holder returns the chart holder.
func (j *HistoryJob) Holder() *chart.Holder { return j.holder }

// Run fetches the history and redraws the chart. An empty or failed
// history keeps the previous chart.
func (j *HistoryJob) Run(ctx context.Context) error {
	start := time.Now()
	body, err := fetchBody(ctx, j.deps.Fetcher, j.source)
	elapsed := time.Since(start)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		j.logger.Warn("history unavailable", "error", err)
		j.observe(render.Result{}, true, elapsed)
		return nil
	}

	points, err := telemetry.ParseHistory(j.source, body, j.loc)
	if err != nil {
		j.logger.Warn("history unreadable", "error", err)
		j.observe(render.Result{}, true, elapsed)
		return nil
	}

	redrawn, err := j.holder.Redraw(points)
	if err != nil {
		return err
	}
	if !redrawn {
		j.logger.Debug("empty history, chart kept")
		j.observe(render.Result{}, false, elapsed)
		return nil
	}

	_, version := j.holder.PNG()
	res := j.apply([]render.Op{render.Attr(chart.ElementChart, "src", chart.Src(j.tank, version))})
	res.Changed = true
	j.observe(res, false, elapsed)
	j.deps.Metrics.ChartRedrawn(j.tank)
	return res.Err
}
