package telemetry

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/Oraida14/analisis-eficiencia-energetica/internal/types"
)

// DayStartHour and NightStartHour bound the daytime bucket [06:00, 18:00).
const (
	DayStartHour   = 6
	NightStartHour = 18
)

func readCSV(source string, body []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &types.ParseError{URL: source, Format: "csv", Err: err}
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ParseSnapshot decodes a per-site CSV snapshot: a header line followed by
// the latest reading. Values are keyed by trimmed header and trimmed.
func ParseSnapshot(site, source string, body []byte) (*Record, error) {
	rows, err := readCSV(source, body)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, &types.ParseError{URL: source, Format: "csv", Err: types.ErrNoData}
	}

	header, latest := rows[0], rows[len(rows)-1]
	rec := NewRecord(site)
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" || i >= len(latest) {
			continue
		}
		rec.Set(name, strings.TrimSpace(latest[i]))
	}
	return rec, nil
}

// HourlyRow is one line of the hourly averages file.
type HourlyRow struct {
	Hour     int
	Flow     float64
	Pressure float64
	Level    float64
}

// Daytime reports whether the row falls in the day bucket.
func (h HourlyRow) Daytime() bool {
	return h.Hour >= DayStartHour && h.Hour < NightStartHour
}

// ParseHourly decodes the hourly averages CSV. Rows shorter than the header
// are skipped.
func ParseHourly(source string, body []byte) ([]HourlyRow, error) {
	rows, err := readCSV(source, body)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &types.ParseError{URL: source, Format: "csv", Err: types.ErrEmptyResponse}
	}

	index := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		index[strings.TrimSpace(name)] = i
	}
	if _, ok := index[FieldHour]; !ok {
		return nil, &types.ParseError{URL: source, Format: "csv", Err: errors.New("missing column " + FieldHour)}
	}

	column := func(row []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	out := make([]HourlyRow, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) < len(rows[0]) {
			continue
		}
		out = append(out, HourlyRow{
			Hour:     parseHour(column(row, FieldHour)),
			Flow:     toFloat(column(row, FieldFlow)),
			Pressure: toFloat(column(row, FieldPressure)),
			Level:    toFloat(column(row, FieldLevel1)),
		})
	}
	return out, nil
}

// parseHour reads the hour of an "HH:MM[:SS]" value. Unreadable values
// return -1, which lands in the night bucket.
func parseHour(s string) int {
	h, _, _ := strings.Cut(s, ":")
	n, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil {
		return -1
	}
	return n
}

// Split accumulates a day/night pair of averages.
type Split struct {
	DaySum       float64
	NightSum     float64
	DaySamples   int
	NightSamples int
}

// DayAverage returns the daytime mean and whether any sample contributed.
func (s Split) DayAverage() (float64, bool) {
	if s.DaySamples == 0 {
		return math.NaN(), false
	}
	return s.DaySum / float64(s.DaySamples), true
}

// NightAverage returns the nighttime mean and whether any sample contributed.
func (s Split) NightAverage() (float64, bool) {
	if s.NightSamples == 0 {
		return math.NaN(), false
	}
	return s.NightSum / float64(s.NightSamples), true
}

// String renders the pair as shown on the well screen.
func (s Split) String() string {
	return "Diurno: " + average(s.DayAverage()) + " | Nocturno: " + average(s.NightAverage())
}

func average(v float64, ok bool) string {
	if !ok {
		return "--"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// DayNight holds the day/night averages of a well.
type DayNight struct {
	Flow     Split
	Pressure Split
	Level    Split
}

// Averages buckets rows by hour and accumulates the day and night sums.
// NaN samples are left out of both buckets.
func Averages(rows []HourlyRow) DayNight {
	var dn DayNight
	for _, r := range rows {
		day := r.Daytime()
		dn.Flow.add(r.Flow, day)
		dn.Pressure.add(r.Pressure, day)
		dn.Level.add(r.Level, day)
	}
	return dn
}

func (s *Split) add(v float64, day bool) {
	if math.IsNaN(v) {
		return
	}
	if day {
		s.DaySum += v
		s.DaySamples++
		return
	}
	s.NightSum += v
	s.NightSamples++
}
