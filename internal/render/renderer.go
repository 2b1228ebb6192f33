package render

import (
	"errors"
	"log/slog"
	"time"

	"github.com/Oraida14/analisis-eficiencia-energetica/internal/config"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/telemetry"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/types"
)

// Notices shown after a render.
const (
	NoticeUpdated       = "✅ Datos actualizados"
	NoticeManualUpdated = "✅ Datos actualizados manualmente"
	NoticeNoChanges     = "ℹ️ No hubo cambios en los datos"
)

// ElementReadingTime is the element showing when the data was read.
const ElementReadingTime = "fechaDatos"

// ImageClosed is the image shown when a device is off or unreachable.
const ImageClosed = "/static/img/cerrado.gif"

// Screen contributes screen-specific operations beyond the label bindings.
// Ops may update st.Level to carry an edge-triggered classification.
type Screen interface {
	Ops(rec *telemetry.Record, st *State) []Op
	DegradedOps(st *State) []Op
}

// Result summarizes one render pass.
type Result struct {
	Changed bool   // the reading differed from the snapshot
	Writes  int    // operations applied to the surface
	Notice  string // notice emitted, if any
	Err     error  // surface errors, joined
}

// Renderer writes readings into a surface through a fixed set of bindings.
type Renderer struct {
	name     string
	surface  Surface
	bindings []config.Binding
	screen   Screen
	loc      *time.Location
	logger   *slog.Logger
}

// NewRenderer creates a renderer. screen may be nil for label-only pages.
func NewRenderer(name string, surface Surface, bindings []config.Binding, screen Screen, loc *time.Location, logger *slog.Logger) *Renderer {
	if loc == nil {
		loc = time.Local
	}
	return &Renderer{
		name:     name,
		surface:  surface,
		bindings: bindings,
		screen:   screen,
		loc:      loc,
		logger:   logger.With("component", "renderer", "screen", name),
	}
}

// Name returns the screen name.
func (r *Renderer) Name() string { return r.name }

// Surface returns the surface the renderer writes to.
func (r *Renderer) Surface() Surface { return r.surface }

// Render applies a reading. When the reading equals the state's snapshot
// the surface is not touched at all.
func (r *Renderer) Render(state State, rec *telemetry.Record) (State, Result) {
	return r.render(state, rec, NoticeUpdated, "")
}

// Refresh is Render for a user-requested update: it always reports whether
// anything changed through a notice.
func (r *Renderer) Refresh(state State, rec *telemetry.Record) (State, Result) {
	return r.render(state, rec, NoticeManualUpdated, NoticeNoChanges)
}

func (r *Renderer) render(state State, rec *telemetry.Record, changedNotice, sameNotice string) (State, Result) {
	if rec == nil {
		return r.RenderDegraded(state)
	}

	fp := rec.Fingerprint()
	if fp == state.Snapshot && !state.Degraded {
		res := Result{}
		if sameNotice != "" {
			res.Notice = sameNotice
			res.Err = r.surface.Notify(sameNotice)
		}
		return state, res
	}

	next := state.clone()
	ops := r.bindingOps(rec)
	if ts := rec.String(telemetry.FieldTimestamp); ts != "" {
		ops = append(ops, Text(ElementReadingTime, "Última lectura: "+telemetry.FormatReadingTime(ts, r.loc)))
	}
	if r.screen != nil {
		ops = append(ops, r.screen.Ops(rec, &next)...)
	}

	next, res := r.apply(next, ops)
	next.Snapshot = fp
	next.Degraded = false
	res.Changed = true

	res.Notice = changedNotice
	if err := r.surface.Notify(changedNotice); err != nil {
		res.Err = errors.Join(res.Err, err)
	}

	r.logger.Debug("rendered", "writes", res.Writes, "site", rec.Site)
	return next, res
}

// RenderDegraded shows the no-connection state and clears the snapshot so
// the next good reading renders fully. Repeating it writes nothing.
func (r *Renderer) RenderDegraded(state State) (State, Result) {
	next := state.clone()

	var ops []Op
	for _, b := range r.bindings {
		if b.Field == "" {
			ops = append(ops, Text(b.Element, b.Prefix))
			continue
		}
		text := b.Degraded
		if text == "" {
			text = telemetry.Label(b.Prefix, telemetry.NotAvailable, b.Unit)
		}
		ops = append(ops, Text(b.Element, text))
	}
	if r.screen != nil {
		ops = append(ops, r.screen.DegradedOps(&next)...)
	}

	next, res := r.apply(next, ops)
	next.Snapshot = ""
	next.Degraded = true
	if res.Writes > 0 {
		r.logger.Debug("rendered degraded state", "writes", res.Writes)
	}
	return next, res
}

// Apply writes arbitrary operations, skipping those the state says are
// already rendered.
func (r *Renderer) Apply(state State, ops []Op) (State, Result) {
	return r.apply(state.clone(), ops)
}

func (r *Renderer) apply(next State, ops []Op) (State, Result) {
	var res Result
	var errs []error
	for _, op := range ops {
		if op.Kind == OpNotify {
			if err := Apply(r.surface, op); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		if !next.changed(op) {
			continue
		}
		if err := Apply(r.surface, op); err != nil {
			errs = append(errs, &types.RenderError{Surface: r.name, Element: op.ID, Err: err})
			continue
		}
		next.written[op.slot()] = op
		res.Writes++
	}
	res.Err = errors.Join(errs...)
	return next, res
}

func (r *Renderer) bindingOps(rec *telemetry.Record) []Op {
	ops := make([]Op, 0, len(r.bindings))
	for _, b := range r.bindings {
		if b.Field == "" {
			ops = append(ops, Text(b.Element, b.Prefix))
			continue
		}
		v, ok := rec.Lookup(b.Site, b.Field)
		ops = append(ops, Text(b.Element, telemetry.Label(b.Prefix, telemetry.FormatValue(v, ok), b.Unit)))
	}
	return ops
}
