package sites

import (
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/config"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/render"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/telemetry"
)

// Screen writes the flow totals and indicator classes of the network view.
// It expects a composite record built with telemetry.Merge.
type Screen struct {
	cfg *config.Config
}

// NewScreen creates the network view screen.
func NewScreen(cfg *config.Config) *Screen {
	return &Screen{cfg: cfg}
}

// Split expands a composite record into per-site records.
func Split(rec *telemetry.Record, names []string) map[string]*telemetry.Record {
	out := make(map[string]*telemetry.Record, len(names))
	for _, site := range names {
		out[site] = rec.Sub(site)
	}
	return out
}

func (s *Screen) Ops(rec *telemetry.Record, st *render.State) []render.Op {
	sc := s.cfg.Sites
	records := Split(rec, Names(sc))

	in, out := Totals(records, sc.Inflow, sc.Outflow)
	ops := []render.Op{
		render.Text(sc.InflowElement, FormatTotal(in)),
		render.Text(sc.OutflowElement, FormatTotal(out)),
	}
	for _, ind := range Indicators(s.cfg, records) {
		add, remove := ind.Status.Classes()
		ops = append(ops, render.Class(ind.Element, add, remove))
	}
	return ops
}

// DegradedOps raises every indicator.
func (s *Screen) DegradedOps(st *render.State) []render.Op {
	var ops []render.Op
	for _, site := range sortedKeys(s.cfg.Sites.Indicators) {
		add, remove := Alarm.Classes()
		ops = append(ops, render.Class(s.cfg.Sites.Indicators[site], add, remove))
	}
	return ops
}
