// Package sites aggregates the per-site CSV snapshots of the network view:
// flow totals per group and the band indicator of each site.
package sites

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Oraida14/analisis-eficiencia-energetica/internal/config"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/telemetry"
)

// Status is the indicator state of a site.
type Status int

const (
	OK Status = iota
	Alarm
)

func (s Status) String() string {
	if s == OK {
		return "ok"
	}
	return "alarm"
}

// Indicator CSS classes.
const (
	ClassGreen = "green"
	ClassRed   = "red"
	ClassBlink = "blink"
)

// Classes returns the classes to add and remove for s.
func (s Status) Classes() (add, remove []string) {
	if s == OK {
		return []string{ClassGreen}, []string{ClassRed, ClassBlink}
	}
	return []string{ClassRed, ClassBlink}, []string{ClassGreen}
}

// Classify checks a reading against a site band. A missing band, a NaN
// reading, any value outside the band, or a flow of exactly zero is an
// alarm.
func Classify(band config.Band, hasBand bool, flow, pressure float64) Status {
	switch {
	case !hasBand:
		return Alarm
	case math.IsNaN(flow) || math.IsNaN(pressure):
		return Alarm
	case flow < band.MinFlow || flow > band.MaxFlow:
		return Alarm
	case pressure < band.MinPressure || pressure > band.MaxPressure:
		return Alarm
	case flow == 0:
		return Alarm
	default:
		return OK
	}
}

// Indicator is the classified state of one site's indicator element.
type Indicator struct {
	Site    string
	Element string
	Status  Status
}

// Indicators classifies every site that has an indicator element.
func Indicators(cfg *config.Config, records map[string]*telemetry.Record) []Indicator {
	out := make([]Indicator, 0, len(cfg.Sites.Indicators))
	for _, site := range sortedKeys(cfg.Sites.Indicators) {
		element := cfg.Sites.Indicators[site]
		flow, pressure := math.NaN(), math.NaN()
		if rec, ok := records[strings.ToLower(site)]; ok {
			flow = rec.Number(telemetry.FieldFlow)
			pressure = rec.Number(telemetry.FieldPressure)
		}
		band, ok := cfg.Band(site)
		out = append(out, Indicator{
			Site:    site,
			Element: element,
			Status:  Classify(band, ok, flow, pressure),
		})
	}
	return out
}

// Totals sums the flow of the inflow and outflow groups, skipping
// non-numeric readings.
func Totals(records map[string]*telemetry.Record, inflow, outflow []string) (in, out float64) {
	return sumFlow(records, inflow), sumFlow(records, outflow)
}

func sumFlow(records map[string]*telemetry.Record, group []string) float64 {
	var total float64
	for _, site := range group {
		rec, ok := records[strings.ToLower(site)]
		if !ok {
			continue
		}
		if v := rec.Number(telemetry.FieldFlow); !math.IsNaN(v) {
			total += v
		}
	}
	return total
}

// FormatTotal renders a group total as written to the totals elements.
func FormatTotal(v float64) string {
	return fmt.Sprintf(" %.2f L/s", v)
}

// Names returns the distinct sites referenced by the screen's bindings,
// groups and indicators, lower-cased and in first-seen order.
func Names(sc config.SitesConfig) []string {
	seen := make(map[string]bool)
	var names []string
	add := func(site string) {
		site = strings.ToLower(strings.TrimSpace(site))
		if site == "" || seen[site] {
			return
		}
		seen[site] = true
		names = append(names, site)
	}
	for _, b := range sc.Bindings {
		add(b.Site)
	}
	for _, s := range sc.Inflow {
		add(s)
	}
	for _, s := range sc.Outflow {
		add(s)
	}
	for _, s := range sortedKeys(sc.Indicators) {
		add(s)
	}
	return names
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
