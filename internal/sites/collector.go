package sites

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Oraida14/analisis-eficiencia-energetica/internal/fetcher"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/pipeline"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/telemetry"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/types"
)

// SnapshotURL returns the CSV snapshot endpoint of site.
func SnapshotURL(baseURL, site string) string {
	return strings.TrimRight(baseURL, "/") + "/datos-individuales/" + url.PathEscape(site) + ".csv"
}

// Collector fetches the CSV snapshot of several sites concurrently.
type Collector struct {
	fetcher  fetcher.Fetcher
	pipeline *pipeline.Pipeline
	baseURL  string
	logger   *slog.Logger
}

// NewCollector creates a Collector reading from baseURL.
func NewCollector(f fetcher.Fetcher, p *pipeline.Pipeline, baseURL string, logger *slog.Logger) *Collector {
	return &Collector{
		fetcher:  f,
		pipeline: p,
		baseURL:  baseURL,
		logger:   logger.With("component", "sites_collector"),
	}
}

// Result is the outcome of one collection round.
type Result struct {
	Records map[string]*telemetry.Record
	Failed  map[string]error
}

// Collect fetches every site. A site that fails yields a record holding
// only its name and its error is reported in Failed; a failure never
// aborts the other fetches.
func (c *Collector) Collect(ctx context.Context, names []string) Result {
	res := Result{
		Records: make(map[string]*telemetry.Record, len(names)),
		Failed:  make(map[string]error),
	}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, site := range names {
		g.Go(func() error {
			rec, err := c.Fetch(gctx, site)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				c.logger.Warn("site unavailable", "site", site, "error", err)
				res.Failed[site] = err
				rec = telemetry.NewRecord(site)
			}
			res.Records[strings.ToLower(rec.Site)] = rec
			return nil
		})
	}
	_ = g.Wait()

	return res
}

// Fetch retrieves and normalizes one site's snapshot.
func (c *Collector) Fetch(ctx context.Context, site string) (*telemetry.Record, error) {
	target := SnapshotURL(c.baseURL, site)
	req, err := types.NewRequest(target)
	if err != nil {
		return nil, err
	}

	resp, err := c.fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, telemetry.NoData(target, err)
	}

	rec, err := telemetry.ParseSnapshot(site, target, resp.Body)
	if err != nil {
		return nil, telemetry.NoData(target, err)
	}

	if c.pipeline != nil {
		rec, err = c.pipeline.Process(rec)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, telemetry.NoData(target, fmt.Errorf("record for %s dropped", site))
		}
	}
	return rec, nil
}
