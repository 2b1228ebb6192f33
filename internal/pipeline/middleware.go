package pipeline

import (
	"strconv"
	"strings"

	"github.com/Oraida14/analisis-eficiencia-energetica/internal/telemetry"
)

// TrimMiddleware trims whitespace from all string fields.
type TrimMiddleware struct{}

func (m *TrimMiddleware) Name() string { return "trim" }

func (m *TrimMiddleware) Process(rec *telemetry.Record) (*telemetry.Record, error) {
	for key, val := range rec.Fields {
		if s, ok := val.(string); ok {
			rec.Set(key, strings.TrimSpace(s))
		}
	}
	return rec, nil
}

// SiteNormalizeMiddleware lower-cases the site name so lookups against the
// threshold map are case-insensitive ("REB62A" and "reb62a" are one site).
type SiteNormalizeMiddleware struct{}

func (m *SiteNormalizeMiddleware) Name() string { return "site_normalize" }

func (m *SiteNormalizeMiddleware) Process(rec *telemetry.Record) (*telemetry.Record, error) {
	rec.Site = strings.ToLower(strings.TrimSpace(rec.Site))
	return rec, nil
}

// NumericMiddleware converts numeric-looking strings to float64. Decimal
// commas are accepted. Values that do not parse are left as published so
// they are shown verbatim.
type NumericMiddleware struct {
	fields []string
}

func NewNumericMiddleware(fields ...string) *NumericMiddleware {
	return &NumericMiddleware{fields: fields}
}

func (m *NumericMiddleware) Name() string { return "numeric" }

func (m *NumericMiddleware) Process(rec *telemetry.Record) (*telemetry.Record, error) {
	for _, field := range m.fields {
		val, ok := rec.Get(field)
		if !ok {
			continue
		}
		s, ok := val.(string)
		if !ok || s == "" {
			continue
		}
		if f, ok := parseDecimal(s); ok {
			rec.Set(field, f)
		}
	}
	return rec, nil
}

func parseDecimal(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// FieldRenameMiddleware renames fields.
type FieldRenameMiddleware struct {
	Mapping map[string]string // old name -> new name
}

func (m *FieldRenameMiddleware) Name() string { return "field_rename" }

func (m *FieldRenameMiddleware) Process(rec *telemetry.Record) (*telemetry.Record, error) {
	for oldKey, newKey := range m.Mapping {
		if val, ok := rec.Get(oldKey); ok {
			rec.Set(newKey, val)
			delete(rec.Fields, oldKey)
		}
	}
	return rec, nil
}

// RequiredFieldsMiddleware drops records missing required fields. When Site
// is set only that site's records are checked.
type RequiredFieldsMiddleware struct {
	Site   string
	Fields []string
}

func (m *RequiredFieldsMiddleware) Name() string { return "required_fields" }

func (m *RequiredFieldsMiddleware) Process(rec *telemetry.Record) (*telemetry.Record, error) {
	if m.Site != "" && !strings.EqualFold(m.Site, rec.Site) {
		return rec, nil
	}
	for _, field := range m.Fields {
		if !rec.Has(field) {
			return nil, nil
		}
	}
	return rec, nil
}

// DefaultValueMiddleware sets default values for missing fields.
type DefaultValueMiddleware struct {
	Defaults map[string]any
}

func (m *DefaultValueMiddleware) Name() string { return "default_values" }

func (m *DefaultValueMiddleware) Process(rec *telemetry.Record) (*telemetry.Record, error) {
	for key, defaultVal := range m.Defaults {
		if !rec.Has(key) {
			rec.Set(key, defaultVal)
		}
	}
	return rec, nil
}
