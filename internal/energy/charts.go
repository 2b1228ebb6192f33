package energy

import (
	"errors"
	"fmt"
	"io"
	"math"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Chart names, as used in file names and URLs.
const (
	ChartConsumption  = "consumo"
	ChartPowerFactor  = "factor-potencia"
	ChartLoadFactor   = "factor-carga"
	ChartDistribution = "distribucion"
)

// Charts lists every chart of a report.
var Charts = []string{ChartConsumption, ChartPowerFactor, ChartLoadFactor, ChartDistribution}

// ErrUnknownChart is returned for a chart name not in Charts.
var ErrUnknownChart = errors.New("unknown chart")

// ErrNotEnoughData is returned when a chart has nothing worth drawing.
var ErrNotEnoughData = errors.New("not enough data to chart")

const (
	chartWidth  = 800
	chartHeight = 320
)

var (
	blue       = drawing.ColorFromHex("2E86C1")
	darkBlue   = drawing.ColorFromHex("1A5276")
	navy       = drawing.ColorFromHex("0A3D62")
	red        = drawing.ColorFromHex("E74C3C")
	orange     = drawing.ColorFromHex("F39C12")
	gridColor  = drawing.ColorFromHex("F0F0F0")
	limitStyle = []float64{5, 5}
)

// RenderChart draws the named chart of r as a PNG.
func RenderChart(w io.Writer, name string, r *Report) error {
	switch name {
	case ChartConsumption:
		return lineChart(w, "Consumo Total (KWh)", r.History, billedTotal, blue, nil)
	case ChartPowerFactor:
		return lineChart(w, "Factor de Potencia (%)", r.History, powerFactor, red,
			&limit{value: PowerFactorLimit, label: "Límite recomendado", color: red})
	case ChartLoadFactor:
		return lineChart(w, "Factor de Carga (%)", r.History, loadFactor, orange,
			&limit{value: LoadFactorMinimum, label: "Límite mínimo recomendado", color: orange})
	case ChartDistribution:
		return distributionChart(w, r.Base, r.Inter, r.Peak)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownChart, name)
	}
}

type limit struct {
	value float64
	label string
	color drawing.Color
}

// lineChart draws one value per month. Like the history analyses it needs
// at least two months.
func lineChart(w io.Writer, name string, history []Month, field func(Month) float64, color drawing.Color, lim *limit) error {
	if len(history) < 2 {
		return ErrNotEnoughData
	}
	xs := make([]float64, len(history))
	ys := make([]float64, len(history))
	ticks := make([]gochart.Tick, len(history))
	maxY := 0.0
	for i, m := range history {
		xs[i], ys[i] = float64(i), field(m)
		ticks[i] = gochart.Tick{Value: float64(i), Label: m.Name}
		maxY = math.Max(maxY, ys[i])
	}
	if lim != nil {
		maxY = math.Max(maxY, lim.value)
	}
	if maxY <= 0 {
		maxY = 1
	}

	grid := gochart.Style{StrokeColor: gridColor, StrokeWidth: 1}
	series := []gochart.Series{
		gochart.ContinuousSeries{
			Name:    name,
			XValues: xs,
			YValues: ys,
			Style: gochart.Style{
				StrokeColor: color,
				StrokeWidth: 2,
				DotColor:    color,
				DotWidth:    4,
			},
		},
	}
	if lim != nil {
		series = append(series, gochart.ContinuousSeries{
			Name:    lim.label,
			XValues: []float64{0, float64(len(history) - 1)},
			YValues: []float64{lim.value, lim.value},
			Style: gochart.Style{
				StrokeColor:     lim.color,
				StrokeWidth:     1,
				StrokeDashArray: limitStyle,
			},
		})
	}

	ch := gochart.Chart{
		Width:      chartWidth,
		Height:     chartHeight,
		Background: gochart.Style{Padding: gochart.Box{Top: 24, Left: 16, Right: 16, Bottom: 16}},
		XAxis: gochart.XAxis{
			Name:           "Mes",
			Ticks:          ticks,
			Range:          &gochart.ContinuousRange{Min: 0, Max: float64(len(history) - 1)},
			GridMajorStyle: grid,
		},
		YAxis: gochart.YAxis{
			Name:           name,
			Range:          &gochart.ContinuousRange{Min: 0, Max: maxY * 1.1},
			GridMajorStyle: grid,
		},
		Series: series,
	}
	ch.Elements = []gochart.Renderable{gochart.Legend(&ch)}

	if err := ch.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render %s chart: %w", name, err)
	}
	return nil
}

// distributionChart draws the current month's consumption per block,
// labelled with its share.
func distributionChart(w io.Writer, base, inter, peak float64) error {
	if base+inter+peak <= 0 {
		return ErrNotEnoughData
	}
	pb, pi, pp := Shares(base, inter, peak)
	bar := func(v, share float64, label string, color drawing.Color) gochart.Value {
		return gochart.Value{
			Value: v,
			Label: fmt.Sprintf("%s %.1f%%", label, share),
			Style: gochart.Style{FillColor: color, StrokeColor: color},
		}
	}
	ch := gochart.BarChart{
		Width:    chartWidth,
		Height:   chartHeight,
		BarWidth: 120,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16},
		},
		YAxis: gochart.YAxis{
			Name:  "KWh",
			Range: &gochart.ContinuousRange{Min: 0, Max: math.Max(base, math.Max(inter, peak)) * 1.1},
		},
		Bars: []gochart.Value{
			bar(base, pb, "Base", blue),
			bar(inter, pi, "Intermedio", darkBlue),
			bar(peak, pp, "Punta", navy),
		},
	}
	if err := ch.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render distribution chart: %w", err)
	}
	return nil
}
