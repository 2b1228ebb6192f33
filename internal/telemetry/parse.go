package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Oraida14/analisis-eficiencia-energetica/internal/types"
)

// ParseObject decodes a flat JSON object into a record for site.
func ParseObject(site, source string, body []byte) (*Record, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, &types.ParseError{URL: source, Format: "json", Err: types.ErrEmptyResponse}
	}

	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, &types.ParseError{URL: source, Format: "json", Err: err}
	}
	if fields == nil {
		return nil, &types.ParseError{URL: source, Format: "json", Err: types.ErrNoData}
	}

	rec := NewRecord(site)
	rec.Fields = fields
	return rec, nil
}

// Point is one sample of the level history.
type Point struct {
	Raw   string    `json:"fecha_hora"`
	At    time.Time `json:"-"`
	Level float64   `json:"-"`
}

type historyEntry struct {
	FechaHora string `json:"fecha_hora"`
	Nivel1    any    `json:"Nivel_1"`
}

// ParseHistory decodes a level history, either wrapped as
// {"historial": [...]} or as a bare array. Samples with an unreadable
// timestamp are skipped; a non-numeric level becomes NaN. The result is
// sorted by time.
func ParseHistory(source string, body []byte, loc *time.Location) ([]Point, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, &types.ParseError{URL: source, Format: "json", Err: types.ErrEmptyResponse}
	}

	var entries []historyEntry
	if body[0] == '[' {
		if err := json.Unmarshal(body, &entries); err != nil {
			return nil, &types.ParseError{URL: source, Format: "json", Err: err}
		}
	} else {
		var wrapped struct {
			Historial []historyEntry `json:"historial"`
		}
		if err := json.Unmarshal(body, &wrapped); err != nil {
			return nil, &types.ParseError{URL: source, Format: "json", Err: err}
		}
		entries = wrapped.Historial
	}

	points := make([]Point, 0, len(entries))
	for _, e := range entries {
		at, err := ParseTimestamp(e.FechaHora, loc)
		if err != nil {
			continue
		}
		level := math.NaN()
		if e.Nivel1 != nil {
			level = toFloat(e.Nivel1)
		}
		points = append(points, Point{Raw: e.FechaHora, At: at, Level: level})
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].At.Before(points[j].At)
	})
	return points, nil
}

// IsNoData reports whether err represents a failed or empty poll.
func IsNoData(err error) bool {
	if err == nil {
		return false
	}
	var fe *types.FetchError
	var pe *types.ParseError
	return errors.Is(err, types.ErrNoData) || errors.As(err, &fe) || errors.As(err, &pe)
}

// NoData wraps cause so callers can branch on types.ErrNoData.
func NoData(source string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%s: %w", source, types.ErrNoData)
	}
	return fmt.Errorf("%s: %w: %w", strings.TrimSpace(source), types.ErrNoData, cause)
}
