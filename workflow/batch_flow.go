package workflow

import (
	"context"
)

// BatchFlow runs its whole graph once per parameter set returned by the
// batch prepare hook, sequentially and against the same Shared, so later
// traversals see the writes of earlier ones.
type BatchFlow struct {
	Flow
}

// NewBatchFlow creates a batch flow. Install the batch hooks with
// WithBatchFlowHooks; without a prepare hook no traversal runs.
func NewBatchFlow(name string, start Vertex, opts ...Option) *BatchFlow {
	f := &BatchFlow{}
	f.init("batch_flow", name, opts)
	f.start = start
	return f
}

// Run traverses the graph once per batch and returns the result of the
// finalize hook, or the last traversal's action when there is none.
func (f *BatchFlow) Run(ctx context.Context, shared *Shared, params Params) (Action, error) {
	if err := f.Validate(); err != nil {
		return "", err
	}
	return f.run(ctx, shared, params, func(ctx context.Context, params Params) (Action, error) {
		batches, err := prepareBatches(ctx, &f.traversal, shared, params)
		if err != nil {
			return "", err
		}
		actions := make([]Action, len(batches))
		for i, batch := range batches {
			actions[i], err = f.traverse(ctx, shared, params.Merge(batch), runSync)
			if err != nil {
				return "", err
			}
		}
		return finalizeBatches(ctx, &f.traversal, shared, batches, actions)
	})
}

func prepareBatches(ctx context.Context, t *traversal, shared *Shared, params Params) ([]Params, error) {
	hook := t.settings.batchHooks.Prepare
	if hook == nil {
		return nil, nil
	}
	batches, err := hook(ctx, shared, params)
	if err != nil {
		return nil, preparationError(ctx, t.name, err)
	}
	return batches, nil
}

func finalizeBatches(ctx context.Context, t *traversal, shared *Shared, batches []Params, actions []Action) (Action, error) {
	hook := t.settings.batchHooks.Finalize
	if hook == nil {
		if len(actions) == 0 {
			return DefaultAction, nil
		}
		return actions[len(actions)-1], nil
	}
	action, err := hook(ctx, shared, batches, actions)
	if err != nil {
		return "", finalizeError(ctx, t.name, err)
	}
	return action.normalize(), nil
}
