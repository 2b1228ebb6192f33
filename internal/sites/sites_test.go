package sites

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/Oraida14/analisis-eficiencia-energetica/internal/config"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/fetcher"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/pipeline"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/render"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/telemetry"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func record(site string, flow, pressure any) *telemetry.Record {
	rec := telemetry.NewRecord(site)
	if flow != nil {
		rec.Set(telemetry.FieldFlow, flow)
	}
	if pressure != nil {
		rec.Set(telemetry.FieldPressure, pressure)
	}
	return rec
}

func TestTotals(t *testing.T) {
	records := map[string]*telemetry.Record{
		"p263":   record("p263", 10.0, 8.0),
		"p25":    record("p25", 5.0, 8.0),
		"reb62":  record("reb62", 3.0, 12.0),
		"reb62a": record("reb62a", 2.0, 12.0),
	}
	in, out := Totals(records, []string{"p263", "p25"}, []string{"reb62", "reb62a"})
	if in != 15 || out != 5 {
		t.Errorf("totals = %v/%v, want 15/5", in, out)
	}
	if got := FormatTotal(in); got != " 15.00 L/s" {
		t.Errorf("FormatTotal = %q", got)
	}
}

func TestTotalsSkipNonNumeric(t *testing.T) {
	records := map[string]*telemetry.Record{
		"p263": record("p263", "sin dato", nil),
		"p25":  record("p25", "4.5", nil),
	}
	in, _ := Totals(records, []string{"p263", "p25", "missing"}, nil)
	if in != 4.5 {
		t.Errorf("inflow = %v, want 4.5", in)
	}
}

func TestClassify(t *testing.T) {
	band := config.Band{MinFlow: 30, MaxFlow: 52, MinPressure: 5, MaxPressure: 15}
	tests := []struct {
		name     string
		hasBand  bool
		flow     float64
		pressure float64
		want     Status
	}{
		{"in band", true, 40, 10, OK},
		{"no band", false, 40, 10, Alarm},
		{"nan flow", true, math.NaN(), 10, Alarm},
		{"nan pressure", true, 40, math.NaN(), Alarm},
		{"flow high", true, 60, 10, Alarm},
		{"pressure low", true, 40, 2, Alarm},
		{"boundaries", true, 30, 15, OK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(band, tt.hasBand, tt.flow, tt.pressure); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestZeroFlowIsAlarmEvenInBand(t *testing.T) {
	band := config.Band{MinFlow: 0, MaxFlow: 45, MinPressure: 10, MaxPressure: 40}
	if got := Classify(band, true, 0, 20); got != Alarm {
		t.Errorf("zero flow should alarm, got %s", got)
	}
}

func TestIndicatorsP263ZeroFlow(t *testing.T) {
	cfg := config.DefaultConfig()
	records := map[string]*telemetry.Record{
		"p263": record("p263", 0.0, 10.0),
		"p25":  record("p25", 20.0, 10.0),
	}
	got := make(map[string]Indicator)
	for _, ind := range Indicators(cfg, records) {
		got[ind.Site] = ind
	}

	p263 := got["p263"]
	if p263.Element != "circle-263" || p263.Status != Alarm {
		t.Errorf("p263 indicator = %+v", p263)
	}
	add, remove := p263.Status.Classes()
	if strings.Join(add, " ") != "red blink" || strings.Join(remove, " ") != "green" {
		t.Errorf("alarm classes add=%v remove=%v", add, remove)
	}
	if got["p25"].Status != OK {
		t.Errorf("p25 should be ok: %+v", got["p25"])
	}
	if got["reb62"].Status != Alarm {
		t.Errorf("site without data should alarm: %+v", got["reb62"])
	}
}

func TestNames(t *testing.T) {
	names := Names(config.DefaultConfig().Sites)
	want := []string{"p263", "reb62", "p25", "reb62a", "tanque3cantos"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("names = %v, want %v", names, want)
	}
}

func TestCollect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/datos-individuales/p263.csv":
			fmt.Fprint(w, "sitio,Gasto_Instantaneo,Presion_Instantanea\nP263, 41.5 ,9\n")
		case "/datos-individuales/p25.csv":
			fmt.Fprint(w, "sitio,Gasto_Instantaneo\n")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	fcfg := config.DefaultConfig().Fetcher
	fcfg.RequestTimeout = 2 * time.Second
	f := fetcher.NewHTTPFetcher(&fcfg, testLogger)
	c := NewCollector(f, pipeline.Default(testLogger), srv.URL, testLogger)

	res := c.Collect(context.Background(), []string{"p263", "p25", "reb62"})
	if len(res.Records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(res.Records))
	}
	if got := res.Records["p263"].Number(telemetry.FieldFlow); got != 41.5 {
		t.Errorf("p263 flow = %v", got)
	}
	for _, site := range []string{"p25", "reb62"} {
		rec := res.Records[site]
		if rec == nil || rec.Len() != 0 || rec.Site != site {
			t.Errorf("%s: expected name-only record, got %+v", site, rec)
		}
		if res.Failed[site] == nil {
			t.Errorf("%s: expected failure", site)
		}
	}
}

func TestScreenOps(t *testing.T) {
	cfg := config.DefaultConfig()
	merged := telemetry.Merge("sitios", map[string]*telemetry.Record{
		"p263":   record("p263", 10.0, 8.0),
		"p25":    record("p25", 5.0, 8.0),
		"reb62":  record("reb62", 3.0, 12.0),
		"reb62a": record("reb62a", 2.0, 12.0),
	})

	rec := &render.Recorder{}
	r := render.NewRenderer("sitios", rec, cfg.Sites.Bindings, NewScreen(cfg), time.UTC, testLogger)
	state, res := r.Render(render.State{}, merged)
	if res.Err != nil {
		t.Fatal(res.Err)
	}

	for id, want := range map[string]string{
		"ultimo8":  " 15.00 L/s",
		"ultimo10": " 5.00 L/s",
		"ultimo4":  "Q= 10.00 L/s",
		"ultimo3":  "8.00 psi",
		"ultimo7":  "Nivel: N/A",
		"ultimo17": "Gasto de Entrada",
	} {
		if got, _ := state.Text(id); got != want {
			t.Errorf("%s = %q, want %q", id, got, want)
		}
	}

	var p263Alarm bool
	for _, op := range rec.Ops() {
		if op.Kind == render.OpClass && op.ID == "circle-263" && strings.Join(op.Add, " ") == "red blink" {
			p263Alarm = true
		}
	}
	if !p263Alarm {
		t.Error("p263 flow 10 is below its band and should alarm")
	}
}
