package level

import (
	"errors"
	"log/slog"
	"math"
	"os"
	"testing"
	"time"

	"github.com/Oraida14/analisis-eficiencia-energetica/internal/render"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/telemetry"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestClassify(t *testing.T) {
	th := Thresholds{Low: 1.30, High: 3.70}
	tests := []struct {
		v    float64
		want State
	}{
		{1.29, Low},
		{1.30, Normal},
		{2.5, Normal},
		{3.70, Normal},
		{3.71, High},
		{math.NaN(), Unknown},
	}
	for _, tt := range tests {
		if got := Classify(tt.v, th); got != tt.want {
			t.Errorf("Classify(%v) = %s, want %s", tt.v, got, tt.want)
		}
	}
}

func TestClassifyPerTank(t *testing.T) {
	lajas := Thresholds{Low: 2.0, High: 4.5}
	if got := Classify(1.5, lajas); got != Low {
		t.Errorf("expected low for lajas, got %s", got)
	}
	if got := Classify(4.0, lajas); got != Normal {
		t.Errorf("expected normal for lajas, got %s", got)
	}
}

func TestComputeClampsAndScales(t *testing.T) {
	th := Thresholds{Low: 1.30, High: 3.70}

	g := Compute(2.5, th, 5, 46)
	if g.Height != "23.00vh" {
		t.Errorf("height = %s", g.Height)
	}
	if g.Arrow != "Nivel: 2.50 m" {
		t.Errorf("arrow = %s", g.Arrow)
	}
	if g.Color != ColorNormal || g.Visible {
		t.Errorf("unexpected normal styling: %+v", g)
	}

	g = Compute(7.2, th, 5, 46)
	if g.Level != 5 || g.Height != "46.00vh" || g.State != High {
		t.Errorf("over-range not clamped: %+v", g)
	}
	if g.Alert != "Nivel Alto" || !g.Visible || g.Color != ColorHigh {
		t.Errorf("unexpected high styling: %+v", g)
	}
	if g.Arrow != "Nivel: 7.20 m" {
		t.Errorf("arrow should show the raw reading, got %s", g.Arrow)
	}
	if g = Compute(6.2, th, 5, 46); g.Arrow != "Nivel: 6.20 m" || g.Level != 5 {
		t.Errorf("unexpected gauge for 6.2: %+v", g)
	}

	g = Compute(-1, th, 5, 46)
	if g.Level != 0 || g.Height != "0.00vh" || g.State != Low || g.Alert != "Nivel Bajo" {
		t.Errorf("negative not clamped: %+v", g)
	}
}

func TestComputeNaN(t *testing.T) {
	g := Compute(math.NaN(), Thresholds{Low: 1, High: 2}, 0, 0)
	if g.State != Unknown || g.Arrow != "Nivel: N/A" || g.Height != "0.00vh" {
		t.Errorf("unexpected gauge for NaN: %+v", g)
	}
}

func TestScreenEdgeTriggered(t *testing.T) {
	s := &Screen{Field: "nivel", Thresholds: Thresholds{Low: 1.30, High: 3.70}, MaxLevel: 5, GaugeHeight: 46}
	rec := &render.Recorder{}
	r := render.NewRenderer("tanque3cantos", rec, nil, s, time.UTC, testLogger)

	state, _ := r.Render(render.State{}, reading(1.0))
	if state.Level != "low" {
		t.Fatalf("level = %q", state.Level)
	}
	if got, _ := rec.LastText(ElementAlertText); got != "Nivel Bajo" {
		t.Errorf("alert text = %q", got)
	}

	// still low: only geometry changes, no restyling
	rec.Reset()
	state, _ = r.Render(state, reading(1.1))
	for _, op := range rec.Ops() {
		if op.Name == "background-color" || op.ID == ElementAlert || op.ID == ElementAlertText {
			t.Errorf("styling rewritten without a transition: %+v", op)
		}
	}

	rec.Reset()
	state, _ = r.Render(state, reading(2.0))
	if state.Level != "normal" {
		t.Fatalf("level = %q", state.Level)
	}
	var hidden, recolored bool
	for _, op := range rec.Ops() {
		if op.ID == ElementAlert && op.Name == "display" && op.Value == "none" {
			hidden = true
		}
		if op.ID == ElementCylinder && op.Name == "background-color" && op.Value == ColorNormal {
			recolored = true
		}
	}
	if !hidden || !recolored {
		t.Errorf("normal transition ops missing: %v", rec.Ops())
	}

	rec.Reset()
	state, _ = r.Render(state, reading(4.2))
	if state.Level != "high" || ParseState(state.Level) != High {
		t.Errorf("level = %q", state.Level)
	}
	if got, _ := rec.LastText(ElementAlertText); got != "Nivel Alto" {
		t.Errorf("alert text = %q", got)
	}
	if got, _ := rec.LastText(ElementArrow); got != "Nivel: 4.20 m" {
		t.Errorf("arrow = %q", got)
	}
}

// flakySurface rejects the first cylinder recolor.
type flakySurface struct {
	*render.Recorder
	failed bool
}

func (f *flakySurface) SetStyle(id, prop, value string) error {
	if id == ElementCylinder && prop == "background-color" && !f.failed {
		f.failed = true
		return errors.New("element not attached")
	}
	return f.Recorder.SetStyle(id, prop, value)
}

func TestScreenRetriesRejectedStyling(t *testing.T) {
	s := &Screen{Field: "nivel", Thresholds: Thresholds{Low: 1.30, High: 3.70}, MaxLevel: 5, GaugeHeight: 46}
	surface := &flakySurface{Recorder: &render.Recorder{}}
	r := render.NewRenderer("tanque3cantos", surface, nil, s, time.UTC, testLogger)

	state, res := r.Render(render.State{}, reading(1.0))
	if res.Err == nil {
		t.Fatal("expected the rejected recolor to be reported")
	}
	if state.Level != "low" {
		t.Fatalf("level = %q", state.Level)
	}

	// same classification, new reading: the recolor is written this time
	surface.Reset()
	state, res = r.Render(state, reading(1.1))
	if res.Err != nil {
		t.Fatalf("render: %v", res.Err)
	}
	var recolored bool
	for _, op := range surface.Ops() {
		if op.ID == ElementCylinder && op.Name == "background-color" && op.Value == ColorLow {
			recolored = true
		}
		if op.ID == ElementAlertText {
			t.Errorf("accepted alert text rewritten: %+v", op)
		}
	}
	if !recolored {
		t.Errorf("rejected recolor not retried: %v", surface.Ops())
	}
}

func reading(v float64) *telemetry.Record {
	rec := telemetry.NewRecord("tanque3cantos")
	rec.Set("nivel", v)
	return rec
}
