package well

import (
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/render"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/telemetry"
)

// Screen renders a well page.
type Screen struct {
	Site string
}

// NewScreen creates the screen of site.
func NewScreen(site string) *Screen {
	return &Screen{Site: site}
}

func (s *Screen) Ops(rec *telemetry.Record, st *render.State) []render.Op {
	return Ops(Derive(s.Site, rec))
}

func (s *Screen) DegradedOps(st *render.State) []render.Op {
	return Ops(Degraded(s.Site))
}

// Ops converts a view into element operations.
func Ops(v View) []render.Op {
	ops := []render.Op{
		render.Text(ElementTitle, Title(v.Site)),
		render.Text(ElementFlow, v.Flow),
		render.Text(ElementPressure, v.Pressure),
		render.Text(ElementUpdated, v.Updated),
		render.Text(ElementStatus, v.Status),
		render.Attr(ElementLight, "src", v.Light),
		render.Attr(ElementFlowIn, "src", v.FlowIn),
		render.Attr(ElementFlowOut, "src", v.FlowOut),
		render.Style(ElementMotor, "display", display(v.MotorVisible, "inline-block")),
		render.Style(ElementOrbital, "display", display(v.OrbitalVisible, "block")),
		render.Style(ElementWarning, "display", display(v.WarningVisible, "block")),
	}
	if v.Pump != "" {
		ops = append(ops, render.Attr(ElementPump, "src", v.Pump))
	}
	if v.Motor != "" {
		ops = append(ops, render.Attr(ElementMotor, "src", v.Motor))
	}
	return ops
}

// AverageOps writes the day/night averages card.
func AverageOps(dn telemetry.DayNight) []render.Op {
	return []render.Op{
		render.Text(ElementAvgFlow, dn.Flow.String()),
		render.Text(ElementAvgPressure, dn.Pressure.String()),
		render.Text(ElementAvgLevel, dn.Level.String()),
		render.Text(ElementAvgCaption, "Promedios Diurno / Nocturno"),
	}
}
