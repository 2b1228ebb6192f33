package telemetry

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// NotAvailable is shown for missing or non-numeric readings.
const NotAvailable = "N/A"

// FormatValue renders a field value for display: numbers with two decimals,
// other text verbatim, and N/A for missing, null, empty or NaN values.
func FormatValue(v any, ok bool) string {
	if !ok || v == nil {
		return NotAvailable
	}

	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return NotAvailable
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return s
		}
		return formatFloat(f)
	case bool:
		return strconv.FormatBool(val)
	default:
		return formatFloat(toFloat(val))
	}
}

// FormatNumber renders f with two decimals, or N/A for NaN and Inf.
func FormatNumber(f float64) string {
	return formatFloat(f)
}

func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return NotAvailable
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// Label assembles the text of a bound element. The unit is appended only to
// real values so an unavailable reading always ends in N/A.
func Label(prefix, value, unit string) string {
	if value == NotAvailable || unit == "" {
		return prefix + value
	}
	return fmt.Sprintf("%s%s %s", prefix, value, unit)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseTimestamp parses the timestamp formats published by the endpoints.
// Values without a zone are read in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// FormatReadingTime renders a timestamp for the "last reading" label. An
// unparseable value is shown as published.
func FormatReadingTime(s string, loc *time.Location) string {
	t, err := ParseTimestamp(s, loc)
	if err != nil {
		return s
	}
	return t.Format("02/01/2006, 15:04:05")
}
