package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Oraida14/analisis-eficiencia-energetica/internal/config"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/fetcher"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/observability"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/pipeline"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/render"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/sites"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/storage"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/telemetry"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/types"
)

// SitesScreen is the name of the network view.
const SitesScreen = "sitios"

// TankScreen returns the screen name of a tank page.
func TankScreen(tank string) string { return "tanque/" + tank }

// WellScreen returns the screen name of a well page.
func WellScreen(site string) string { return "pozo/" + strings.ToLower(site) }

// Deps are the collaborators shared by the screen jobs. Metrics, Storage
// and Notifier may be nil.
type Deps struct {
	Fetcher  fetcher.Fetcher
	Pipeline *pipeline.Pipeline
	Metrics  *observability.Metrics
	Storage  storage.Storage
	Notifier *Notifier
	Location *time.Location
	Logger   *slog.Logger
}

func (d Deps) location() *time.Location {
	if d.Location == nil {
		return time.Local
	}
	return d.Location
}

// ScreenJob is a job that renders into a named screen and owns that
// screen's render state.
type ScreenJob interface {
	Job
	Screen() string
	State() render.State
}

// Refresher is a screen job that also serves user-requested updates. A
// failed fetch is returned instead of being rendered.
type Refresher interface {
	ScreenJob
	Refresh(ctx context.Context) (render.Result, error)
}

// screenJob holds what every job keeps: its renderer and the state the
// renderer threads through, guarded by mu since ticks may overlap.
type screenJob struct {
	name     string
	screen   string
	interval time.Duration
	renderer *render.Renderer
	deps     Deps
	logger   *slog.Logger

	mu    sync.Mutex
	state render.State
}

func newScreenJob(name, screen string, interval time.Duration, renderer *render.Renderer, d Deps) *screenJob {
	return &screenJob{
		name:     name,
		screen:   screen,
		interval: interval,
		renderer: renderer,
		deps:     d,
		logger:   d.Logger.With("component", "job", "job", name),
	}
}

func (j *screenJob) Name() string            { return j.name }
func (j *screenJob) Screen() string          { return j.screen }
func (j *screenJob) Interval() time.Duration { return j.interval }

// State returns the job's current render state.
func (j *screenJob) State() render.State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// render applies rec, or the degraded state when rec is nil, and returns
// the state before and after.
func (j *screenJob) render(rec *telemetry.Record, manual bool) (prev, next render.State, res render.Result) {
	j.mu.Lock()
	defer j.mu.Unlock()

	prev = j.state
	switch {
	case rec == nil:
		j.state, res = j.renderer.RenderDegraded(j.state)
	case manual:
		j.state, res = j.renderer.Refresh(j.state, rec)
	default:
		j.state, res = j.renderer.Render(j.state, rec)
	}
	return prev, j.state, res
}

// apply writes ops that are not already on the surface.
func (j *screenJob) apply(ops []render.Op) render.Result {
	j.mu.Lock()
	defer j.mu.Unlock()
	var res render.Result
	j.state, res = j.renderer.Apply(j.state, ops)
	return res
}

func (j *screenJob) observe(res render.Result, degraded bool, elapsed time.Duration) {
	outcome := observability.OutcomeUnchanged
	switch {
	case degraded:
		outcome = observability.OutcomeDegraded
	case res.Changed:
		outcome = observability.OutcomeChanged
	}
	j.deps.Metrics.ObservePoll(j.name, outcome, elapsed)
	j.deps.Metrics.AddWrites(j.name, res.Writes)
}

// archive stores accepted readings. Failures are counted and logged.
func (j *screenJob) archive(ctx context.Context, records ...*telemetry.Record) {
	if j.deps.Storage == nil || len(records) == 0 {
		return
	}
	if err := j.deps.Storage.Store(ctx, records); err != nil {
		j.deps.Metrics.StorageFailed()
		j.logger.Warn("archive failed", "error", err)
		return
	}
	j.deps.Metrics.Stored(len(records))
}

// normalize runs rec through the pipeline.
func (j *screenJob) normalize(source string, rec *telemetry.Record) (*telemetry.Record, error) {
	if j.deps.Pipeline == nil {
		return rec, nil
	}
	out, err := j.deps.Pipeline.Process(rec)
	if err != nil {
		return nil, telemetry.NoData(source, err)
	}
	if out == nil {
		return nil, telemetry.NoData(source, fmt.Errorf("record for %s dropped", rec.Site))
	}
	return out, nil
}

// fetchBody retrieves target. Any failure is reported as no data.
func fetchBody(ctx context.Context, f fetcher.Fetcher, target string) ([]byte, error) {
	req, err := types.NewRequest(target)
	if err != nil {
		return nil, telemetry.NoData(target, err)
	}
	resp, err := f.Fetch(ctx, req)
	if err != nil {
		return nil, telemetry.NoData(target, err)
	}
	return resp.Body, nil
}

func endpoint(base string, parts ...string) string {
	return strings.TrimRight(base, "/") + "/" + strings.Join(parts, "/")
}

// Build creates every screen job cfg describes. surface returns the surface
// a screen renders into.
func Build(cfg *config.Config, surface func(screen string) render.Surface, d Deps) []ScreenJob {
	var jobs []ScreenJob
	for _, tank := range cfg.Tanks {
		s := surface(TankScreen(tank.Name))
		jobs = append(jobs, NewTankJob(cfg, tank, s, d), NewHistoryJob(cfg, tank, s, d))
	}
	if len(sites.Names(cfg.Sites)) > 0 {
		jobs = append(jobs, NewSitesJob(cfg, surface(SitesScreen), d))
	}
	for _, site := range cfg.Wells.Sites {
		s := surface(WellScreen(site))
		jobs = append(jobs, NewWellJob(cfg, site, s, d), NewAveragesJob(cfg, site, s, d))
	}
	return jobs
}
