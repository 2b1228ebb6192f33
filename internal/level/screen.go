package level

import (
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/config"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/render"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/telemetry"
)

// Screen drives the cylinder gauge of a tank page.
type Screen struct {
	Field       string
	Thresholds  Thresholds
	MaxLevel    float64
	GaugeHeight float64
}

// NewScreen builds the gauge screen of a tank from its configuration.
func NewScreen(tank config.TankConfig, band config.Band) *Screen {
	return &Screen{
		Field:       telemetry.FieldLevel,
		Thresholds:  Thresholds{Low: band.LowLevel, High: band.HighLevel},
		MaxLevel:    tank.MaxLevel,
		GaugeHeight: tank.GaugeHeight,
	}
}

// Ops sizes the cylinder, recolors it and toggles the alert banner. The
// styling ops repeat on every render; the renderer only writes those that
// differ from what the surface last accepted, so the surface is touched on
// classification changes and a rejected write is retried next time.
func (s *Screen) Ops(rec *telemetry.Record, st *render.State) []render.Op {
	g := Compute(rec.Number(s.Field), s.Thresholds, s.MaxLevel, s.GaugeHeight)

	ops := []render.Op{
		render.Style(ElementCylinder, "height", g.Height),
		render.Style(ElementArrow, "bottom", g.Height),
		render.Text(ElementArrow, g.Arrow),
	}
	if g.State == Unknown {
		return ops
	}

	st.Level = g.State.String()
	display := "none"
	if g.Visible {
		display = "block"
	}
	ops = append(ops,
		render.Style(ElementCylinder, "background-color", g.Color),
		render.Style(ElementAlert, "display", display),
	)
	if g.Alert != "" {
		ops = append(ops, render.Text(ElementAlertText, g.Alert))
	}
	return ops
}

// DegradedOps leaves the gauge as last drawn.
func (s *Screen) DegradedOps(st *render.State) []render.Op {
	return nil
}

// ParseState maps a State name back to its value.
func ParseState(name string) State {
	switch name {
	case "low":
		return Low
	case "normal":
		return Normal
	case "high":
		return High
	default:
		return Unknown
	}
}
