package workflow

import (
	"maps"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Vertex is anything that can be wired into a transition graph.
type Vertex interface {
	// Name identifies the vertex in logs, events and errors.
	Name() string
	// Then sets the successor for DefaultAction and returns next for chaining.
	Then(next Vertex) Vertex
	// On starts a labeled edge; complete it with Edge.Then.
	On(action Action) *Edge
	// Successor returns the vertex registered for action.
	Successor(action Action) (Vertex, bool)
	// Successors returns a copy of all edges.
	Successors() map[Action]Vertex
	// Params returns a copy of the default parameter set.
	Params() Params
	// SetParams replaces the default parameter set.
	SetParams(params Params)
}

// Edge is a pending labeled transition.
type Edge struct {
	from   *base
	action Action
}

// Then completes the edge and returns next for chaining.
func (e *Edge) Then(next Vertex) Vertex {
	e.from.connect(e.action, next)
	return next
}

// Termination reasons reported when a traversal stops.
const (
	TerminationNoSuccessors    = "no_successors"
	TerminationUnmatchedAction = "unmatched_action"
)

// base carries the graph structure and configuration every variant embeds.
// Edges and default params are written at construction time and only read
// during runs.
type base struct {
	name      string
	kind      string
	anonymous bool
	settings  settings

	mu     sync.RWMutex
	edges  map[Action]Vertex
	params Params
}

func (b *base) init(kind, name string, opts []Option) {
	if name == "" {
		name = kind + "-" + uuid.NewString()[:8]
		b.anonymous = true
	}
	b.name = name
	b.kind = kind
	b.settings = newSettings(opts)
	b.edges = make(map[Action]Vertex)
	b.params = b.settings.params
}

func (b *base) Name() string { return b.name }

// metricLabel is the name used as a metric label. Generated names collapse
// to the vertex kind so that graphs built per request keep a bounded label set.
func (b *base) metricLabel() string {
	if b.anonymous {
		return b.kind
	}
	return b.name
}

func (b *base) Then(next Vertex) Vertex {
	b.connect(DefaultAction, next)
	return next
}

func (b *base) On(action Action) *Edge {
	return &Edge{from: b, action: action.normalize()}
}

func (b *base) Successor(action Action) (Vertex, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.edges[action.normalize()]
	return v, ok
}

func (b *base) Successors() map[Action]Vertex {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return maps.Clone(b.edges)
}

func (b *base) Params() Params {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.params.Clone()
}

func (b *base) SetParams(params Params) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.params = params.Clone()
}

// effectiveParams overlays the caller's params on the vertex defaults.
func (b *base) effectiveParams(overlay Params) Params {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.params.Merge(overlay)
}

func (b *base) connect(action Action, next Vertex) {
	b.mu.Lock()
	prev, exists := b.edges[action]
	b.edges[action] = next
	b.mu.Unlock()

	if exists && prev != next {
		prevName := "<nil>"
		if prev != nil {
			prevName = prev.Name()
		}
		nextName := "<nil>"
		if next != nil {
			nextName = next.Name()
		}
		b.logger().Warn("overwriting successor",
			zap.String("action", string(action)),
			zap.String("previous", prevName),
			zap.String("next", nextName))
	}
}

func (b *base) logger() *zap.Logger {
	l := b.settings.logger
	if l == nil {
		l = zap.L()
	}
	return l.With(zap.String("component", b.kind), zap.String("name", b.name))
}

// resolve picks the successor of v for action. When there is none, the
// returned reason tells a vertex without edges apart from an action that
// matched none of the existing edges.
func resolve(v Vertex, action Action) (Vertex, string) {
	action = action.normalize()
	if next, ok := v.Successor(action); ok && next != nil {
		return next, ""
	}
	if len(v.Successors()) == 0 {
		return nil, TerminationNoSuccessors
	}
	return nil, TerminationUnmatchedAction
}
