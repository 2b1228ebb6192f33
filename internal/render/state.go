package render

import "sort"

// State is what a screen last rendered: the fingerprint of the accepted
// reading, the level classification, and the last op written to every
// element slot. The renderer takes a State and returns the next one; the
// caller owns it.
type State struct {
	Snapshot string
	Level    string
	Degraded bool

	written map[slot]Op
}

// clone returns a copy whose written map can be modified independently.
func (s State) clone() State {
	next := s
	next.written = make(map[slot]Op, len(s.written))
	for k, v := range s.written {
		next.written[k] = v
	}
	return next
}

// changed reports whether op would alter what the state says is rendered.
func (s State) changed(op Op) bool {
	prev, ok := s.written[op.slot()]
	return !ok || prev.value() != op.value()
}

// Text returns the last text rendered into element id.
func (s State) Text(id string) (string, bool) {
	op, ok := s.written[slot{kind: OpText, id: id}]
	return op.Value, ok
}

// Texts returns every element text held by the state.
func (s State) Texts() map[string]string {
	out := make(map[string]string)
	for k, op := range s.written {
		if k.kind == OpText {
			out[k.id] = op.Value
		}
	}
	return out
}

// Ops replays the state as a list of operations ordered by element id,
// used to bring a newly attached surface up to date.
func (s State) Ops() []Op {
	ops := make([]Op, 0, len(s.written))
	for _, op := range s.written {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool {
		if ops[i].ID != ops[j].ID {
			return ops[i].ID < ops[j].ID
		}
		if ops[i].Kind != ops[j].Kind {
			return ops[i].Kind < ops[j].Kind
		}
		return ops[i].Name < ops[j].Name
	})
	return ops
}
