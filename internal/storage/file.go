package storage

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Oraida14/analisis-eficiencia-energetica/internal/telemetry"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/types"
)

func openAppend(path string) (*os.File, bool, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, false, fmt.Errorf("create output dir: %w", err)
	}
	info, err := os.Stat(path)
	existed := err == nil && info.Size() > 0
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, false, fmt.Errorf("open output file: %w", err)
	}
	return f, existed, nil
}

// --- JSONL Storage ---

// JSONLStorage appends readings as newline-delimited JSON.
type JSONLStorage struct {
	path   string
	file   *os.File
	enc    *json.Encoder
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewJSONLStorage opens (or creates) a JSONL archive.
func NewJSONLStorage(outputPath string, logger *slog.Logger) (*JSONLStorage, error) {
	f, _, err := openAppend(outputPath)
	if err != nil {
		return nil, &types.StorageError{Backend: "jsonl", Err: err}
	}

	return &JSONLStorage{
		path:   outputPath,
		file:   f,
		enc:    json.NewEncoder(f),
		logger: logger.With("component", "jsonl_storage"),
	}, nil
}

func (s *JSONLStorage) Name() string { return "jsonl" }

func (s *JSONLStorage) Store(_ context.Context, records []*telemetry.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		doc := entry(rec)
		for k, v := range doc {
			if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
				doc[k] = nil
			}
		}
		if err := s.enc.Encode(doc); err != nil {
			return &types.StorageError{Backend: "jsonl", Err: fmt.Errorf("encode JSONL: %w", err)}
		}
		s.count++
	}
	return nil
}

func (s *JSONLStorage) Close() error {
	s.logger.Info("JSONL archive closed", "path", s.path, "records", s.count)
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

// --- CSV Storage ---

var csvHeader = []string{"fetched_at", "site", "field", "value"}

// CSVStorage appends readings as CSV rows in long format: one row per field,
// so sites with different columns share one file.
type CSVStorage struct {
	path   string
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewCSVStorage opens (or creates) a CSV archive.
func NewCSVStorage(outputPath string, logger *slog.Logger) (*CSVStorage, error) {
	f, existed, err := openAppend(outputPath)
	if err != nil {
		return nil, &types.StorageError{Backend: "csv", Err: err}
	}

	s := &CSVStorage{
		path:   outputPath,
		file:   f,
		writer: csv.NewWriter(f),
		logger: logger.With("component", "csv_storage"),
	}
	if !existed {
		if err := s.writer.Write(csvHeader); err != nil {
			f.Close()
			return nil, &types.StorageError{Backend: "csv", Err: fmt.Errorf("write CSV header: %w", err)}
		}
		s.writer.Flush()
	}
	return s, nil
}

func (s *CSVStorage) Name() string { return "csv" }

func (s *CSVStorage) Store(_ context.Context, records []*telemetry.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		at := rec.FetchedAt.Format(time.RFC3339)
		for _, key := range rec.Keys() {
			v, _ := rec.Get(key)
			row := []string{at, rec.Site, key, fmt.Sprint(v)}
			if err := s.writer.Write(row); err != nil {
				return &types.StorageError{Backend: "csv", Err: fmt.Errorf("write CSV row: %w", err)}
			}
		}
		s.count++
	}

	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return &types.StorageError{Backend: "csv", Err: err}
	}
	return nil
}

func (s *CSVStorage) Close() error {
	s.logger.Info("CSV archive closed", "path", s.path, "records", s.count)
	if s.writer != nil {
		s.writer.Flush()
	}
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}
