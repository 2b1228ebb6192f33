// Package chart draws the level history of a tank as a PNG line chart.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/Oraida14/analisis-eficiencia-energetica/internal/telemetry"
)

// ElementChart is the id of the chart image on the tank page.
const ElementChart = "graficaNivel"

// MaxTicks bounds the number of time labels on the x axis.
const MaxTicks = 10

// Default image size in pixels.
const (
	DefaultWidth  = 800
	DefaultHeight = 300
)

var (
	lineColor = drawing.Color{R: 0, G: 110, B: 255, A: 255}
	fillColor = drawing.Color{R: 0, G: 110, B: 255, A: 77}
	gridColor = drawing.Color{R: 0, G: 110, B: 255, A: 51}
)

// ErrNoPoints is returned when a history has nothing to draw.
var ErrNoPoints = errors.New("history has no plottable points")

// Series is the plottable form of a history: one HH:MM label per sample.
type Series struct {
	Labels []string
	Values []float64
}

// Len returns the number of samples.
func (s Series) Len() int { return len(s.Values) }

// Label formats a sample time as HH:MM in loc.
func Label(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("15:04")
}

// Build converts history points into a series, dropping samples without a
// level.
func Build(points []telemetry.Point, loc *time.Location) Series {
	var s Series
	for _, p := range points {
		if math.IsNaN(p.Level) || math.IsInf(p.Level, 0) {
			continue
		}
		s.Labels = append(s.Labels, Label(p.At, loc))
		s.Values = append(s.Values, p.Level)
	}
	return s
}

// RenderPNG draws s as a filled line chart with a zero-based y axis.
func RenderPNG(w io.Writer, title string, s Series, width, height int) error {
	if s.Len() == 0 {
		return ErrNoPoints
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}

	xs := make([]float64, s.Len())
	maxY := 0.0
	for i, v := range s.Values {
		xs[i] = float64(i)
		maxY = math.Max(maxY, v)
	}
	if maxY <= 0 {
		maxY = 1
	}

	step := max(1, (s.Len()+MaxTicks-1)/MaxTicks)
	var ticks []gochart.Tick
	for i := 0; i < s.Len(); i += step {
		ticks = append(ticks, gochart.Tick{Value: float64(i), Label: s.Labels[i]})
	}

	gridStyle := gochart.Style{StrokeColor: gridColor, StrokeWidth: 1}
	ch := gochart.Chart{
		Title:      title,
		Width:      width,
		Height:     height,
		Background: gochart.Style{Padding: gochart.Box{Top: 24, Left: 16, Right: 16, Bottom: 16}},
		XAxis: gochart.XAxis{
			Ticks:          ticks,
			Range:          &gochart.ContinuousRange{Min: 0, Max: math.Max(1, float64(s.Len()-1))},
			Style:          gochart.Style{FontColor: lineColor, TextRotationDegrees: 45},
			GridMajorStyle: gridStyle,
		},
		YAxis: gochart.YAxis{
			Name:           "Nivel (m)",
			Range:          &gochart.ContinuousRange{Min: 0, Max: maxY * 1.1},
			Style:          gochart.Style{FontColor: lineColor},
			GridMajorStyle: gridStyle,
		},
		Series: []gochart.Series{
			gochart.ContinuousSeries{
				Name:    "Nivel (m)",
				XValues: xs,
				YValues: s.Values,
				Style: gochart.Style{
					StrokeColor: lineColor,
					StrokeWidth: 2,
					FillColor:   fillColor,
				},
			},
		},
	}
	ch.Elements = []gochart.Renderable{gochart.Legend(&ch)}

	if err := ch.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

// Holder keeps the most recent chart of one tank. Every redraw replaces the
// previous image entirely.
type Holder struct {
	mu      sync.RWMutex
	title   string
	loc     *time.Location
	png     []byte
	version uint64
	drawnAt time.Time
	points  int
}

// NewHolder creates an empty holder.
func NewHolder(title string, loc *time.Location) *Holder {
	return &Holder{title: title, loc: loc}
}

// Redraw replaces the chart with one built from points. An empty history
// keeps the previous chart and reports false.
func (h *Holder) Redraw(points []telemetry.Point) (bool, error) {
	s := Build(points, h.loc)
	if s.Len() == 0 {
		return false, nil
	}

	var buf bytes.Buffer
	if err := RenderPNG(&buf, h.title, s, DefaultWidth, DefaultHeight); err != nil {
		return false, err
	}

	h.mu.Lock()
	h.png = buf.Bytes()
	h.version++
	h.drawnAt = time.Now()
	h.points = s.Len()
	h.mu.Unlock()
	return true, nil
}

// PNG returns the current image and its version; nil before the first draw.
func (h *Holder) PNG() ([]byte, uint64) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.png, h.version
}

// Info reports when the chart was last drawn and from how many samples.
func (h *Holder) Info() (time.Time, int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.drawnAt, h.points
}

// Src returns the image URL for a version, so browsers reload on change.
func Src(tank string, version uint64) string {
	return fmt.Sprintf("/chart/%s.png?v=%d", tank, version)
}
