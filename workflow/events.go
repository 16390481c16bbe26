package workflow

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/BaSui01/nodeflow/types"
)

// EventType defines the type of a run event.
type EventType string

const (
	// EventFlowStart is emitted when a flow begins a traversal.
	EventFlowStart EventType = "flow_start"
	// EventNodeStart is emitted before a node's prepare phase.
	EventNodeStart EventType = "node_start"
	// EventNodeRetry is emitted before every repeated execute attempt.
	EventNodeRetry EventType = "node_retry"
	// EventNodeFallback is emitted when a fallback absorbs an execute failure.
	EventNodeFallback EventType = "node_fallback"
	// EventNodeComplete is emitted after finalize returns.
	EventNodeComplete EventType = "node_complete"
	// EventNodeError is emitted when a node aborts the run.
	EventNodeError EventType = "node_error"
	// EventFlowTerminated is emitted when traversal stops for lack of a
	// successor; Reason tells why.
	EventFlowTerminated EventType = "flow_terminated"
	// EventFlowComplete is emitted when a flow returns, with Err set on failure.
	EventFlowComplete EventType = "flow_complete"
)

// Event carries information about one step of a run.
type Event struct {
	Type      EventType     `json:"type"`
	RunID     string        `json:"run_id,omitempty"`
	Flow      string        `json:"flow,omitempty"`
	Node      string        `json:"node,omitempty"`
	Action    Action        `json:"action,omitempty"`
	Attempt   int           `json:"attempt,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	Err       error         `json:"-"`
	Timestamp time.Time     `json:"timestamp"`

	// Invocation identifies one node lifecycle. All node_* events of the
	// same visit share it, so interleaved visits of one node stay apart.
	Invocation uint64 `json:"invocation,omitempty"`
	// NodeLabel and FlowLabel are bounded-cardinality names for metrics:
	// the vertex name, or its kind when the name was generated.
	NodeLabel string `json:"-"`
	FlowLabel string `json:"-"`
}

// NodeMetricLabel returns NodeLabel, falling back to Node.
func (ev Event) NodeMetricLabel() string {
	if ev.NodeLabel != "" {
		return ev.NodeLabel
	}
	return ev.Node
}

// FlowMetricLabel returns FlowLabel, falling back to Flow.
func (ev Event) FlowMetricLabel() string {
	if ev.FlowLabel != "" {
		return ev.FlowLabel
	}
	return ev.Flow
}

// Emitter receives run events. It is called synchronously on the goroutine
// running the node, so it must not block.
type Emitter func(Event)

type emitterKey struct{}

// WithEmitter stores an Emitter in the context. An emitter already present
// keeps receiving events.
func WithEmitter(ctx context.Context, emit Emitter) context.Context {
	if emit == nil {
		return ctx
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if prev, ok := emitterFromContext(ctx); ok {
		emit = ComposeEmitters(prev, emit)
	}
	return context.WithValue(ctx, emitterKey{}, emit)
}

// ComposeEmitters fans every event out to all non-nil emitters in order.
func ComposeEmitters(emitters ...Emitter) Emitter {
	list := make([]Emitter, 0, len(emitters))
	for _, e := range emitters {
		if e != nil {
			list = append(list, e)
		}
	}
	return func(ev Event) {
		for _, e := range list {
			e(ev)
		}
	}
}

func emitterFromContext(ctx context.Context) (Emitter, bool) {
	if ctx == nil {
		return nil, false
	}
	emit, ok := ctx.Value(emitterKey{}).(Emitter)
	return emit, ok && emit != nil
}

func emit(ctx context.Context, ev Event) {
	e, ok := emitterFromContext(ctx)
	if !ok {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	f := flowFrom(ctx)
	if ev.Flow == "" {
		ev.Flow = f.name
	}
	if ev.FlowLabel == "" && ev.Flow == f.name {
		ev.FlowLabel = f.label
	}
	if ev.RunID == "" {
		ev.RunID, _ = types.RunID(ctx)
	}
	if strings.HasPrefix(string(ev.Type), "node_") {
		if inv, ok := ctx.Value(invocationKey{}).(invocation); ok {
			if ev.Invocation == 0 {
				ev.Invocation = inv.id
			}
			if ev.NodeLabel == "" {
				ev.NodeLabel = inv.label
			}
		}
	}
	e(ev)
}

type flowKey struct{}

type flowInfo struct {
	name  string
	label string
}

func withFlow(ctx context.Context, name, label string) context.Context {
	return context.WithValue(ctx, flowKey{}, flowInfo{name: name, label: label})
}

func flowFrom(ctx context.Context) flowInfo {
	f, _ := ctx.Value(flowKey{}).(flowInfo)
	return f
}

// currentFlow returns the name of the innermost flow running ctx.
func currentFlow(ctx context.Context) string {
	return flowFrom(ctx).name
}

var invocationSeq atomic.Uint64

type invocationKey struct{}

type invocation struct {
	id    uint64
	label string
}

// withInvocation marks ctx as running a new lifecycle of b.
func withInvocation(ctx context.Context, b *base) context.Context {
	return context.WithValue(ctx, invocationKey{}, invocation{
		id:    invocationSeq.Add(1),
		label: b.metricLabel(),
	})
}
