// Package storage archives accepted readings.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/Oraida14/analisis-eficiencia-energetica/internal/config"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/telemetry"
)

// Storage is the interface for all storage backends.
type Storage interface {
	// Store persists a batch of readings.
	Store(ctx context.Context, records []*telemetry.Record) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// New creates the backend selected by cfg.
func New(cfg config.StorageConfig, logger *slog.Logger) (Storage, error) {
	switch cfg.Type {
	case "", "none":
		return NopStorage{}, nil
	case "jsonl":
		return NewJSONLStorage(filepath.Join(cfg.OutputPath, "lecturas.jsonl"), logger)
	case "csv":
		return NewCSVStorage(filepath.Join(cfg.OutputPath, "lecturas.csv"), logger)
	case "mongodb":
		return NewMongoStorage(cfg.MongoURI, cfg.Database, cfg.Collection, logger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// NopStorage discards everything.
type NopStorage struct{}

func (NopStorage) Name() string { return "none" }

func (NopStorage) Store(context.Context, []*telemetry.Record) error { return nil }

func (NopStorage) Close() error { return nil }

// entry flattens a record into a document with metadata keys.
func entry(rec *telemetry.Record) map[string]any {
	doc := make(map[string]any, len(rec.Fields)+2)
	for k, v := range rec.Fields {
		doc[k] = v
	}
	doc["_site"] = rec.Site
	doc["_fetched_at"] = rec.FetchedAt
	return doc
}
