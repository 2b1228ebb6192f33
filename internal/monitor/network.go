package monitor

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/Oraida14/analisis-eficiencia-energetica/internal/config"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/render"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/sites"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/telemetry"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/types"
)

// SitesJob polls every site's snapshot and drives the network view.
type SitesJob struct {
	*screenJob
	cfg       *config.Config
	collector *sites.Collector
	names     []string
}

// NewSitesJob creates the network view job.
func NewSitesJob(cfg *config.Config, surface render.Surface, d Deps) *SitesJob {
	renderer := render.NewRenderer(SitesScreen, surface, cfg.Sites.Bindings, sites.NewScreen(cfg), d.location(), d.Logger)
	return &SitesJob{
		screenJob: newScreenJob(SitesScreen, SitesScreen, cfg.Sites.Interval, renderer, d),
		cfg:       cfg,
		collector: sites.NewCollector(d.Fetcher, d.Pipeline, cfg.Sources.DataBaseURL, d.Logger),
		names:     sites.Names(cfg.Sites),
	}
}

// Run polls once. Sites that fail show as unavailable; the others render
// normally.
func (j *SitesJob) Run(ctx context.Context) error {
	res, err := j.poll(ctx, false)
	if err != nil {
		return err
	}
	return res.Err
}

// Refresh polls on request. It fails only when no site answered.
func (j *SitesJob) Refresh(ctx context.Context) (render.Result, error) {
	return j.poll(ctx, true)
}

func (j *SitesJob) poll(ctx context.Context, manual bool) (render.Result, error) {
	start := time.Now()
	collected := j.collector.Collect(ctx, j.names)
	elapsed := time.Since(start)
	if ctx.Err() != nil {
		return render.Result{}, ctx.Err()
	}

	allFailed := len(collected.Failed) == len(j.names)
	if allFailed && manual {
		j.observe(render.Result{}, true, elapsed)
		return render.Result{}, j.failure(collected)
	}

	// with no site answering the view shows no connection instead of an
	// empty update
	var rec *telemetry.Record
	if !allFailed {
		rec = telemetry.Merge(SitesScreen, collected.Records)
	}
	_, _, res := j.render(rec, manual)
	j.observe(res, allFailed, elapsed)

	for _, ind := range sites.Indicators(j.cfg, collected.Records) {
		flow := math.NaN()
		if r, ok := collected.Records[ind.Site]; ok {
			flow = r.Number(telemetry.FieldFlow)
		}
		j.deps.Metrics.SetSite(ind.Site, flow, ind.Status == sites.Alarm)
	}

	if res.Changed {
		var ok []*telemetry.Record
		for _, site := range j.names {
			if _, failed := collected.Failed[site]; failed {
				continue
			}
			if r, found := collected.Records[site]; found {
				ok = append(ok, r)
			}
		}
		j.archive(ctx, ok...)
	}
	return res, nil
}

func (j *SitesJob) failure(collected sites.Result) error {
	errs := make([]error, 0, len(collected.Failed))
	for _, site := range j.names {
		if err, ok := collected.Failed[site]; ok {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return types.ErrNoData
	}
	return errors.Join(errs...)
}
