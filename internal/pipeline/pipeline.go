package pipeline

import (
	"log/slog"

	"github.com/Oraida14/analisis-eficiencia-energetica/internal/config"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/telemetry"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/types"
)

// Middleware processes a record and returns the (possibly modified) record.
// Return nil to drop the record from the pipeline.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms a record. Return nil to drop the record.
	Process(rec *telemetry.Record) (*telemetry.Record, error)
}

// Pipeline chains middleware processors together.
type Pipeline struct {
	middlewares []Middleware
	logger      *slog.Logger
}

// New creates a new Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "pipeline"),
	}
}

// Default returns the normalization chain applied to every polled reading.
func Default(logger *slog.Logger) *Pipeline {
	return FromConfig(config.PipelineConfig{}, logger)
}

// FromConfig returns the default chain extended with the configured
// renames, fill-in values and required fields. Renames run before numeric
// conversion so renamed fields are converted too.
func FromConfig(cfg config.PipelineConfig, logger *slog.Logger) *Pipeline {
	p := New(logger)
	p.Use(&TrimMiddleware{})
	p.Use(&SiteNormalizeMiddleware{})
	if len(cfg.Rename) > 0 {
		mapping := make(map[string]string, len(cfg.Rename))
		for _, r := range cfg.Rename {
			mapping[r.From] = r.To
		}
		p.Use(&FieldRenameMiddleware{Mapping: mapping})
	}
	p.Use(NewNumericMiddleware(
		telemetry.FieldLevel,
		telemetry.FieldInflow,
		telemetry.FieldOutflow,
		telemetry.FieldFlow,
		telemetry.FieldPressure,
		telemetry.FieldLevel1,
		telemetry.FieldMotorState,
	))
	if len(cfg.Defaults) > 0 {
		defaults := make(map[string]any, len(cfg.Defaults))
		for _, d := range cfg.Defaults {
			defaults[d.Field] = d.Value
		}
		p.Use(&DefaultValueMiddleware{Defaults: defaults})
	}
	for _, r := range cfg.Required {
		p.Use(&RequiredFieldsMiddleware{Site: r.Site, Fields: r.Fields})
	}
	return p
}

// Use adds a middleware to the pipeline chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// Process runs the record through all middleware in order.
func (p *Pipeline) Process(rec *telemetry.Record) (*telemetry.Record, error) {
	current := rec

	for _, mw := range p.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			return nil, &types.PipelineError{
				Stage: mw.Name(),
				Site:  rec.Site,
				Err:   err,
			}
		}
		if result == nil {
			p.logger.Debug("record dropped", "stage", mw.Name(), "site", rec.Site)
			return nil, nil
		}
		current = result
	}

	return current, nil
}

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}
