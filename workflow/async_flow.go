package workflow

import (
	"context"
)

// AsyncFlow is the asynchronous orchestrator. It accepts both synchronous
// and asynchronous vertices; synchronous ones run to completion without
// yielding the scheduler.
type AsyncFlow struct {
	traversal
}

// NewAsyncFlow creates an asynchronous flow starting at start.
func NewAsyncFlow(name string, start Vertex, opts ...Option) *AsyncFlow {
	f := &AsyncFlow{}
	f.init("async_flow", name, opts)
	f.start = start
	return f
}

// RunAsync validates the graph, joins or starts a scheduler and traverses
// the graph once.
func (f *AsyncFlow) RunAsync(ctx context.Context, shared *Shared, params Params) (Action, error) {
	if err := f.Validate(); err != nil {
		return "", err
	}
	ctx, release, err := enterScheduler(ctx)
	if err != nil {
		return "", cancelledError(f.name, err)
	}
	defer release()

	return f.run(ctx, shared, params, f.flowBody(shared, runAsyncStep))
}

// Validate rejects a missing start vertex and vertices that are neither
// Runnable nor AsyncRunnable. Nested synchronous flows are still checked
// for asynchronous vertices.
func (f *AsyncFlow) Validate() error {
	return validateGraph(f.name, f.start, true, make(map[visit]bool))
}

func runAsyncStep(ctx context.Context, v Vertex, shared *Shared, params Params) (Action, error) {
	if r, ok := v.(AsyncRunnable); ok {
		return r.RunAsync(ctx, shared, params)
	}
	if r, ok := v.(Runnable); ok {
		return r.Run(detachScheduler(ctx), shared, params)
	}
	return "", incompatibleError(v)
}

// AsyncBatchFlow runs its graph once per batch parameter set, one traversal
// after another, against the same Shared.
type AsyncBatchFlow struct {
	AsyncFlow
}

// NewAsyncBatchFlow creates a sequential asynchronous batch flow.
func NewAsyncBatchFlow(name string, start Vertex, opts ...Option) *AsyncBatchFlow {
	f := &AsyncBatchFlow{}
	f.init("async_batch_flow", name, opts)
	f.start = start
	return f
}

// RunAsync traverses the graph once per batch in order.
func (f *AsyncBatchFlow) RunAsync(ctx context.Context, shared *Shared, params Params) (Action, error) {
	if err := f.Validate(); err != nil {
		return "", err
	}
	ctx, release, err := enterScheduler(ctx)
	if err != nil {
		return "", cancelledError(f.name, err)
	}
	defer release()

	return f.run(ctx, shared, params, func(ctx context.Context, params Params) (Action, error) {
		batches, err := prepareBatches(ctx, &f.traversal, shared, params)
		if err != nil {
			return "", err
		}
		actions := make([]Action, len(batches))
		for i, batch := range batches {
			actions[i], err = f.traverse(ctx, shared, params.Merge(batch), runAsyncStep)
			if err != nil {
				return "", err
			}
		}
		return finalizeBatches(ctx, &f.traversal, shared, batches, actions)
	})
}

// AsyncParallelBatchFlow launches one traversal per batch concurrently and
// joins them before the finalize hook. Traversals share the same Shared and
// interleave only at suspension points.
type AsyncParallelBatchFlow struct {
	AsyncFlow
}

// NewAsyncParallelBatchFlow creates a parallel asynchronous batch flow.
// WithConcurrency and WithRateLimiter bound the fan-out.
func NewAsyncParallelBatchFlow(name string, start Vertex, opts ...Option) *AsyncParallelBatchFlow {
	f := &AsyncParallelBatchFlow{}
	f.init("async_parallel_batch_flow", name, opts)
	f.start = start
	return f
}

// RunAsync traverses the graph once per batch concurrently. The actions
// handed to the finalize hook follow batch order.
func (f *AsyncParallelBatchFlow) RunAsync(ctx context.Context, shared *Shared, params Params) (Action, error) {
	if err := f.Validate(); err != nil {
		return "", err
	}
	ctx, release, err := enterScheduler(ctx)
	if err != nil {
		return "", cancelledError(f.name, err)
	}
	defer release()

	return f.run(ctx, shared, params, func(ctx context.Context, params Params) (Action, error) {
		batches, err := prepareBatches(ctx, &f.traversal, shared, params)
		if err != nil {
			return "", err
		}
		actions := make([]Action, len(batches))
		err = fanOut(ctx, &f.base, len(batches), func(ctx context.Context, i int) error {
			action, err := f.traverse(ctx, shared, params.Merge(batches[i]), runAsyncStep)
			if err != nil {
				return err
			}
			actions[i] = action
			return nil
		})
		if err != nil {
			return "", err
		}
		return finalizeBatches(ctx, &f.traversal, shared, batches, actions)
	})
}
