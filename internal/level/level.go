// Package level classifies tank levels and computes the cylinder gauge.
package level

import (
	"fmt"
	"math"
)

// State is the three-state level classification.
type State int

const (
	Unknown State = iota
	Low
	Normal
	High
)

func (s State) String() string {
	switch s {
	case Low:
		return "low"
	case Normal:
		return "normal"
	case High:
		return "high"
	default:
		return "unknown"
	}
}

// Fill colors of the cylinder per state.
const (
	ColorLow    = "rgba(255, 17, 0, 0.6)"
	ColorHigh   = "rgba(255, 0, 0, 0.6)"
	ColorNormal = "rgba(81, 255, 0, 0.84)"
)

// Element ids on the tank page.
const (
	ElementCylinder  = "cilindroNivel"
	ElementAlert     = "alertaNivel"
	ElementAlertText = "textoAlerta"
	ElementArrow     = "flechaNivel"
)

// DefaultMaxLevel and DefaultGaugeHeight are used when a tank leaves them unset.
const (
	DefaultMaxLevel    = 5.0
	DefaultGaugeHeight = 46.0 // vh
)

// Thresholds is the low/high pair of one tank.
type Thresholds struct {
	Low  float64
	High float64
}

// Classify returns Low when v < low, High when v > high, Normal otherwise.
// Both boundaries belong to Normal. NaN is Unknown.
func Classify(v float64, t Thresholds) State {
	switch {
	case math.IsNaN(v):
		return Unknown
	case v < t.Low:
		return Low
	case v > t.High:
		return High
	default:
		return Normal
	}
}

// Clamp restricts v to [0, max].
func Clamp(v, max float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// Gauge describes the rendered cylinder.
type Gauge struct {
	Level   float64 // clamped level
	State   State
	Height  string // CSS height, e.g. "23.00vh"
	Arrow   string // arrow label, e.g. "Nivel: 2.50 m"
	Color   string
	Alert   string // alert banner text, empty when hidden
	Visible bool   // alert banner visibility
}

// Compute clamps the reading, classifies it and derives the gauge geometry
// and styling.
func Compute(v float64, t Thresholds, maxLevel, gaugeHeight float64) Gauge {
	if maxLevel <= 0 {
		maxLevel = DefaultMaxLevel
	}
	if gaugeHeight <= 0 {
		gaugeHeight = DefaultGaugeHeight
	}

	clamped := Clamp(v, maxLevel)
	g := Gauge{
		Level:  clamped,
		Height: fmt.Sprintf("%.2fvh", clamped/maxLevel*gaugeHeight),
		Arrow:  fmt.Sprintf("Nivel: %.2f m", v),
	}
	if math.IsNaN(v) {
		g.State = Unknown
		g.Arrow = "Nivel: N/A"
		return g
	}

	g.State = Classify(clamped, t)
	g.Color, g.Alert, g.Visible = Style(g.State)
	return g
}

// Style returns the fill color, alert text and banner visibility for s.
func Style(s State) (color, alert string, visible bool) {
	switch s {
	case Low:
		return ColorLow, "Nivel Bajo", true
	case High:
		return ColorHigh, "Nivel Alto", true
	default:
		return ColorNormal, "", false
	}
}
