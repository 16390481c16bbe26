package workflow

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/nodeflow/types"
)

// stepFunc runs a single vertex of a traversal.
type stepFunc func(ctx context.Context, v Vertex, shared *Shared, params Params) (Action, error)

// traversal is the graph-walking core shared by synchronous and
// asynchronous flows.
type traversal struct {
	base
	start Vertex
}

// Start returns the vertex every traversal begins at.
func (t *traversal) Start() Vertex { return t.start }

// run wraps body with run ID assignment, tracing, flow events and the
// flow's own parameter overlay.
func (t *traversal) run(
	ctx context.Context,
	shared *Shared,
	params Params,
	body func(ctx context.Context, params Params) (Action, error),
) (action Action, err error) {
	if _, ok := types.RunID(ctx); !ok {
		ctx = types.WithRunID(ctx, uuid.NewString())
	}
	parent := currentFlow(ctx)
	ctx, span := startSpan(ctx, &t.base)
	ctx = withFlow(ctx, t.name, t.metricLabel())

	started := time.Now()
	emit(ctx, Event{Type: EventFlowStart, Flow: t.name})
	defer func() {
		endSpan(span, action, err)
		emit(ctx, Event{
			Type:     EventFlowComplete,
			Flow:     t.name,
			Action:   action,
			Duration: time.Since(started),
			Err:      err,
		})
		if err != nil && parent == "" {
			runID, _ := types.RunID(ctx)
			t.logger().Error("flow aborted", zap.String("run_id", runID), zap.Error(err))
		}
	}()

	return body(ctx, t.effectiveParams(params))
}

// traverse walks the graph from the start vertex until an action has no
// successor, returning that action.
func (t *traversal) traverse(ctx context.Context, shared *Shared, params Params, step stepFunc) (Action, error) {
	if t.start == nil {
		return "", types.NewError(types.ErrInvalidGraph, "flow has no start vertex").WithNode(t.name)
	}
	log := t.logger()
	maxSteps := t.settings.maxSteps
	cur := t.start
	steps := 0

	for {
		if err := ctx.Err(); err != nil {
			return "", cancelledError(cur.Name(), err)
		}
		if maxSteps > 0 && steps >= maxSteps {
			return "", types.NewError(types.ErrMaxSteps, fmt.Sprintf("flow exceeded %d steps", maxSteps)).
				WithNode(cur.Name())
		}
		steps++

		log.Debug("running vertex", zap.String("vertex", cur.Name()), zap.Int("step", steps))
		action, err := step(ctx, cur, shared, params)
		if err != nil {
			return "", err
		}
		action = action.normalize()

		next, reason := resolve(cur, action)
		if next != nil {
			cur = next
			continue
		}

		fields := []zap.Field{
			zap.String("vertex", cur.Name()),
			zap.String("action", string(action)),
			zap.String("reason", reason),
			zap.Int("steps", steps),
		}
		if reason == TerminationUnmatchedAction {
			log.Warn("no successor for action, ending flow", fields...)
		} else {
			log.Debug("flow reached terminal vertex", fields...)
		}
		emit(ctx, Event{
			Type:   EventFlowTerminated,
			Flow:   t.name,
			Node:   cur.Name(),
			Action: action,
			Reason: reason,
		})
		return action, nil
	}
}

// flowBody applies the flow hooks around a traversal.
func (t *traversal) flowBody(shared *Shared, step stepFunc) func(ctx context.Context, params Params) (Action, error) {
	return func(ctx context.Context, params Params) (Action, error) {
		hooks := t.settings.flowHooks
		if hooks.Prepare != nil {
			if err := hooks.Prepare(ctx, shared, params); err != nil {
				return "", preparationError(ctx, t.name, err)
			}
		}
		last, err := t.traverse(ctx, shared, params, step)
		if err != nil {
			return "", err
		}
		if hooks.Finalize == nil {
			return last, nil
		}
		action, err := hooks.Finalize(ctx, shared, last)
		if err != nil {
			return "", finalizeError(ctx, t.name, err)
		}
		return action.normalize(), nil
	}
}

// Flow is a synchronous orchestrator. It is itself a Runnable and can be
// nested in other flows.
type Flow struct {
	traversal
}

// NewFlow creates a flow starting at start.
func NewFlow(name string, start Vertex, opts ...Option) *Flow {
	f := &Flow{}
	f.init("flow", name, opts)
	f.start = start
	return f
}

// Run validates the graph, then traverses it once against shared and
// returns the last action.
func (f *Flow) Run(ctx context.Context, shared *Shared, params Params) (Action, error) {
	if err := f.Validate(); err != nil {
		return "", err
	}
	return f.run(ctx, shared, params, f.flowBody(shared, runSync))
}

// Validate rejects graphs that a synchronous flow cannot run: a missing
// start vertex or any reachable vertex, nested flows included, that is not
// Runnable.
func (f *Flow) Validate() error {
	return validateGraph(f.name, f.start, false, make(map[visit]bool))
}

func runSync(ctx context.Context, v Vertex, shared *Shared, params Params) (Action, error) {
	r, ok := v.(Runnable)
	if !ok {
		return "", incompatibleError(v)
	}
	return r.Run(ctx, shared, params)
}

func incompatibleError(v Vertex) error {
	return types.NewError(types.ErrIncompatibleNode,
		fmt.Sprintf("%T cannot run in a synchronous flow", v)).WithNode(v.Name())
}

type nestedFlow interface {
	Start() Vertex
}

// visit is a vertex checked under one scheduling mode. The same vertex may
// be reachable from both an asynchronous flow and a nested synchronous one.
type visit struct {
	vertex Vertex
	async  bool
}

func validateGraph(owner string, start Vertex, async bool, seen map[visit]bool) error {
	if start == nil {
		return types.NewError(types.ErrInvalidGraph, "flow has no start vertex").WithNode(owner)
	}

	var walk func(v Vertex) error
	walk = func(v Vertex) error {
		key := visit{vertex: v, async: async}
		if v == nil || seen[key] {
			return nil
		}
		seen[key] = true

		_, isSync := v.(Runnable)
		_, isAsync := v.(AsyncRunnable)
		switch {
		case !async && !isSync:
			return incompatibleError(v)
		case async && !isSync && !isAsync:
			return types.NewError(types.ErrIncompatibleNode,
				fmt.Sprintf("%T is neither Runnable nor AsyncRunnable", v)).WithNode(v.Name())
		}

		if nested, ok := v.(nestedFlow); ok {
			if err := validateGraph(v.Name(), nested.Start(), isAsync && !isSync, seen); err != nil {
				return err
			}
		}

		edges := v.Successors()
		for _, action := range slices.Sorted(maps.Keys(edges)) {
			if err := walk(edges[action]); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(start)
}
