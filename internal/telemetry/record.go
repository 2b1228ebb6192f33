// Package telemetry holds the reading model shared by every screen and the
// decoders for the JSON and CSV payloads the field endpoints publish.
package telemetry

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Well-known field names.
const (
	FieldLevel      = "nivel"
	FieldInflow     = "entrada"
	FieldOutflow    = "salida"
	FieldTimestamp  = "timestamp"
	FieldFlow       = "Gasto_Instantaneo"
	FieldPressure   = "Presion_Instantanea"
	FieldLevel1     = "Nivel_1"
	FieldMotorState = "estado_motor"
	FieldLastData   = "ult_dato"
	FieldHour       = "hora"
	FieldDateTime   = "fecha_hora"
)

// Record is one reading: a set of named fields from a JSON object or a CSV
// row, tagged with the site or tank it came from.
type Record struct {
	Site      string
	Fields    map[string]any
	FetchedAt time.Time
}

// NewRecord creates an empty record for site.
func NewRecord(site string) *Record {
	return &Record{
		Site:      site,
		Fields:    make(map[string]any),
		FetchedAt: time.Now(),
	}
}

// Set sets a field value.
func (r *Record) Set(key string, value any) {
	r.Fields[key] = value
}

// Get retrieves a field value.
func (r *Record) Get(key string) (any, bool) {
	v, ok := r.Fields[key]
	return v, ok
}

// Has returns true if the field exists.
func (r *Record) Has(key string) bool {
	_, ok := r.Fields[key]
	return ok
}

// Len returns the number of fields.
func (r *Record) Len() int {
	return len(r.Fields)
}

// Keys returns the field names in sorted order.
func (r *Record) Keys() []string {
	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Number returns the field as a float, or NaN when it is missing or not
// numeric.
func (r *Record) Number(key string) float64 {
	v, ok := r.Fields[key]
	if !ok {
		return math.NaN()
	}
	return toFloat(v)
}

// String returns the field as text, or "" when missing.
func (r *Record) String(key string) string {
	v, ok := r.Fields[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Fingerprint returns a canonical serialization used to compare payloads by
// value. encoding/json sorts map keys, so equal field sets always match.
func (r *Record) Fingerprint() string {
	data, err := json.Marshal(struct {
		Site   string         `json:"site"`
		Fields map[string]any `json:"fields"`
	}{r.Site, r.Fields})
	if err != nil {
		// NaN and Inf cannot be marshalled; fall back to a sorted dump
		var b strings.Builder
		b.WriteString(r.Site)
		for _, k := range r.Keys() {
			fmt.Fprintf(&b, "|%s=%v", k, r.Fields[k])
		}
		return b.String()
	}
	return string(data)
}

// Clone creates a shallow copy of the record's field map.
func (r *Record) Clone() *Record {
	clone := &Record{
		Site:      r.Site,
		Fields:    make(map[string]any, len(r.Fields)),
		FetchedAt: r.FetchedAt,
	}
	for k, v := range r.Fields {
		clone.Fields[k] = v
	}
	return clone
}

func toFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case float32:
		return float64(val)
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

// Merge combines per-site records into one composite record named name.
// Each site's fields are nested under the site key, so the fingerprint of
// the composite changes whenever any site changes.
func Merge(name string, records map[string]*Record) *Record {
	rec := NewRecord(name)
	for site, r := range records {
		fields := make(map[string]any, len(r.Fields))
		for k, v := range r.Fields {
			fields[k] = v
		}
		rec.Fields[site] = fields
	}
	return rec
}

// Lookup resolves a field of the record itself, or of a nested site record
// when site names another site.
func (r *Record) Lookup(site, field string) (any, bool) {
	if site == "" || strings.EqualFold(site, r.Site) {
		v, ok := r.Fields[field]
		return v, ok
	}
	nested, ok := r.Fields[strings.ToLower(site)].(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := nested[field]
	return v, ok
}

// Sub returns the nested record of site, or an empty record when absent.
func (r *Record) Sub(site string) *Record {
	sub := NewRecord(site)
	sub.FetchedAt = r.FetchedAt
	if nested, ok := r.Fields[strings.ToLower(site)].(map[string]any); ok {
		sub.Fields = nested
	}
	return sub
}
