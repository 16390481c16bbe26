package workflow

import "maps"

// Action is the label a node's finalize phase returns to pick its successor.
type Action string

// DefaultAction is used when finalize produces no label.
const DefaultAction Action = "default"

// normalize maps the empty label to DefaultAction.
func (a Action) normalize() Action {
	if a == "" {
		return DefaultAction
	}
	return a
}

// Params is a node's small key-value configuration.
type Params map[string]any

// Clone returns a shallow copy. Cloning nil yields an empty set.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	maps.Copy(out, p)
	return out
}

// Merge returns a new set holding p overlaid by overlay.
func (p Params) Merge(overlay Params) Params {
	out := p.Clone()
	maps.Copy(out, overlay)
	return out
}

// ParamOr returns params[key] when present and of type T, else def.
func ParamOr[T any](params Params, key string, def T) T {
	if v, ok := params[key].(T); ok {
		return v
	}
	return def
}
