// Package render turns readings into element updates and applies them to
// one or more surfaces: a server-side document, connected browsers, or a
// live browser page.
package render

import (
	"errors"
	"strings"
	"sync"
)

// OpKind identifies an element operation.
type OpKind string

const (
	OpText   OpKind = "text"
	OpStyle  OpKind = "style"
	OpAttr   OpKind = "attr"
	OpClass  OpKind = "class"
	OpNotify OpKind = "notify"
)

// Op is one element update. It is also the wire format of the WebSocket
// stream.
type Op struct {
	Kind   OpKind   `json:"op"`
	ID     string   `json:"id,omitempty"`
	Name   string   `json:"name,omitempty"` // style property or attribute name
	Value  string   `json:"value,omitempty"`
	Add    []string `json:"add,omitempty"`
	Remove []string `json:"remove,omitempty"`
}

// Text sets the text content of an element.
func Text(id, value string) Op { return Op{Kind: OpText, ID: id, Value: value} }

// Style sets one inline style property.
func Style(id, prop, value string) Op { return Op{Kind: OpStyle, ID: id, Name: prop, Value: value} }

// Attr sets an attribute.
func Attr(id, name, value string) Op { return Op{Kind: OpAttr, ID: id, Name: name, Value: value} }

// Class adds and removes CSS classes.
func Class(id string, add, remove []string) Op {
	return Op{Kind: OpClass, ID: id, Add: add, Remove: remove}
}

// Notice shows a transient notification.
func Notice(msg string) Op { return Op{Kind: OpNotify, Value: msg} }

// slot identifies what an op writes, for change detection.
type slot struct {
	kind OpKind
	id   string
	name string
}

func (o Op) slot() slot {
	return slot{kind: o.Kind, id: o.ID, name: o.Name}
}

func (o Op) value() string {
	if o.Kind == OpClass {
		return "+" + strings.Join(o.Add, " ") + " -" + strings.Join(o.Remove, " ")
	}
	return o.Value
}

// Surface is a page whose elements can be updated by id. Updates to
// unknown ids are ignored. Implementations must be safe for concurrent use.
type Surface interface {
	SetText(id, text string) error
	SetStyle(id, prop, value string) error
	SetAttr(id, name, value string) error
	SetClass(id string, add, remove []string) error
	Notify(msg string) error
}

// Apply performs op on s.
func Apply(s Surface, op Op) error {
	switch op.Kind {
	case OpText:
		return s.SetText(op.ID, op.Value)
	case OpStyle:
		return s.SetStyle(op.ID, op.Name, op.Value)
	case OpAttr:
		return s.SetAttr(op.ID, op.Name, op.Value)
	case OpClass:
		return s.SetClass(op.ID, op.Add, op.Remove)
	case OpNotify:
		return s.Notify(op.Value)
	default:
		return errors.New("unknown op " + string(op.Kind))
	}
}

// MultiSurface fans every update out to several surfaces.
type MultiSurface struct {
	surfaces []Surface
}

// NewMultiSurface creates a fan-out surface.
func NewMultiSurface(surfaces ...Surface) *MultiSurface {
	return &MultiSurface{surfaces: surfaces}
}

func (m *MultiSurface) each(fn func(Surface) error) error {
	var errs []error
	for _, s := range m.surfaces {
		if err := fn(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSurface) SetText(id, text string) error {
	return m.each(func(s Surface) error { return s.SetText(id, text) })
}

func (m *MultiSurface) SetStyle(id, prop, value string) error {
	return m.each(func(s Surface) error { return s.SetStyle(id, prop, value) })
}

func (m *MultiSurface) SetAttr(id, name, value string) error {
	return m.each(func(s Surface) error { return s.SetAttr(id, name, value) })
}

func (m *MultiSurface) SetClass(id string, add, remove []string) error {
	return m.each(func(s Surface) error { return s.SetClass(id, add, remove) })
}

func (m *MultiSurface) Notify(msg string) error {
	return m.each(func(s Surface) error { return s.Notify(msg) })
}

// Recorder is a Surface that records every operation it receives.
type Recorder struct {
	mu  sync.Mutex
	ops []Op
}

func (r *Recorder) record(op Op) error {
	r.mu.Lock()
	r.ops = append(r.ops, op)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) SetText(id, text string) error { return r.record(Text(id, text)) }

func (r *Recorder) SetStyle(id, prop, value string) error { return r.record(Style(id, prop, value)) }

func (r *Recorder) SetAttr(id, name, value string) error { return r.record(Attr(id, name, value)) }

func (r *Recorder) SetClass(id string, add, remove []string) error {
	return r.record(Class(id, add, remove))
}

func (r *Recorder) Notify(msg string) error { return r.record(Notice(msg)) }

// Ops returns a copy of the recorded operations.
func (r *Recorder) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Op(nil), r.ops...)
}

// Reset discards the recorded operations.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.ops = nil
	r.mu.Unlock()
}

// LastText returns the most recent text written to id.
func (r *Recorder) LastText(id string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.ops) - 1; i >= 0; i-- {
		if r.ops[i].Kind == OpText && r.ops[i].ID == id {
			return r.ops[i].Value, true
		}
	}
	return "", false
}
