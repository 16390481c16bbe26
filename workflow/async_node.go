package workflow

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// AsyncNode is the asynchronous unit of work. Its phases run under the
// cooperative scheduler; retry delays suspend instead of blocking.
type AsyncNode struct {
	base
	handler AsyncHandler
}

// NewAsyncNode creates an asynchronous node driven by handler.
func NewAsyncNode(name string, handler AsyncHandler, opts ...Option) *AsyncNode {
	if handler == nil {
		handler = AsyncHandlerFuncs{}
	}
	n := &AsyncNode{handler: handler}
	n.init("async_node", name, opts)
	return n
}

// RunAsync executes the lifecycle, joining the caller's scheduler or
// starting one when called on its own.
func (n *AsyncNode) RunAsync(ctx context.Context, shared *Shared, params Params) (Action, error) {
	ctx, release, err := enterScheduler(ctx)
	if err != nil {
		return "", cancelledError(n.name, err)
	}
	defer release()

	return invoke(ctx, &n.base, func(ctx context.Context) (Action, error) {
		prep, err := n.handler.PrepareAsync(ctx, shared, n.effectiveParams(params))
		if err != nil {
			return "", preparationError(ctx, n.name, err)
		}

		var fallback func(context.Context, error) (any, error)
		if fb, ok := n.handler.(AsyncFallbacker); ok {
			fallback = func(ctx context.Context, err error) (any, error) {
				return fb.FallbackAsync(ctx, prep, err)
			}
		}
		result, err := executeWithRetry(ctx, &n.base, asyncWait,
			func(ctx context.Context) (any, error) { return n.handler.ExecuteAsync(ctx, prep) },
			fallback)
		if err != nil {
			return "", err
		}

		action, err := n.handler.FinalizeAsync(ctx, shared, prep, result)
		if err != nil {
			return "", finalizeError(ctx, n.name, err)
		}
		return action, nil
	})
}

// batchCore is shared by the sequential and parallel asynchronous batch
// nodes.
type batchCore struct {
	base
	handler AsyncBatchHandler
}

func (n *batchCore) executeItem(ctx context.Context, item any) (any, error) {
	var fallback func(context.Context, error) (any, error)
	if fb, ok := n.handler.(AsyncItemFallbacker); ok {
		fallback = func(ctx context.Context, err error) (any, error) {
			return fb.FallbackItemAsync(ctx, item, err)
		}
	}
	return executeWithRetry(ctx, &n.base, asyncWait,
		func(ctx context.Context) (any, error) { return n.handler.ExecuteItemAsync(ctx, item) },
		fallback)
}

func (n *batchCore) runAsync(
	ctx context.Context,
	shared *Shared,
	params Params,
	executeAll func(ctx context.Context, items []any) ([]any, error),
) (Action, error) {
	ctx, release, err := enterScheduler(ctx)
	if err != nil {
		return "", cancelledError(n.name, err)
	}
	defer release()

	return invoke(ctx, &n.base, func(ctx context.Context) (Action, error) {
		items, err := n.handler.PrepareAsync(ctx, shared, n.effectiveParams(params))
		if err != nil {
			return "", preparationError(ctx, n.name, err)
		}
		results, err := executeAll(ctx, items)
		if err != nil {
			return "", err
		}
		action, err := n.handler.FinalizeAsync(ctx, shared, items, results)
		if err != nil {
			return "", finalizeError(ctx, n.name, err)
		}
		return action, nil
	})
}

// AsyncBatchNode executes its items one after another.
type AsyncBatchNode struct {
	batchCore
}

// NewAsyncBatchNode creates a sequential asynchronous batch node.
func NewAsyncBatchNode(name string, handler AsyncBatchHandler, opts ...Option) *AsyncBatchNode {
	if handler == nil {
		handler = AsyncBatchHandlerFuncs{}
	}
	n := &AsyncBatchNode{}
	n.handler = handler
	n.init("async_batch_node", name, opts)
	return n
}

// RunAsync prepares the items, executes them in order and finalizes.
func (n *AsyncBatchNode) RunAsync(ctx context.Context, shared *Shared, params Params) (Action, error) {
	return n.runAsync(ctx, shared, params, func(ctx context.Context, items []any) ([]any, error) {
		results := make([]any, len(items))
		for i, item := range items {
			r, err := n.executeItem(ctx, item)
			if err != nil {
				return nil, err
			}
			results[i] = r
		}
		return results, nil
	})
}

// AsyncParallelBatchNode launches all items at once and joins them before
// finalize. Items interleave only at their suspension points; results keep
// item order whatever the completion order.
type AsyncParallelBatchNode struct {
	batchCore
}

// NewAsyncParallelBatchNode creates a parallel asynchronous batch node.
// WithConcurrency and WithRateLimiter bound the fan-out.
func NewAsyncParallelBatchNode(name string, handler AsyncBatchHandler, opts ...Option) *AsyncParallelBatchNode {
	if handler == nil {
		handler = AsyncBatchHandlerFuncs{}
	}
	n := &AsyncParallelBatchNode{}
	n.handler = handler
	n.init("async_parallel_batch_node", name, opts)
	return n
}

// RunAsync prepares the items, executes them concurrently and finalizes
// with the results in item order.
func (n *AsyncParallelBatchNode) RunAsync(ctx context.Context, shared *Shared, params Params) (Action, error) {
	return n.runAsync(ctx, shared, params, func(ctx context.Context, items []any) ([]any, error) {
		results := make([]any, len(items))
		err := fanOut(ctx, &n.base, len(items), func(ctx context.Context, i int) error {
			r, err := n.executeItem(ctx, items[i])
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
		if err != nil {
			return nil, err
		}
		return results, nil
	})
}

// fanOut runs task for every index in 0..n-1 as a scheduler task and waits
// for all of them. The caller is suspended for the whole join. Each task
// waits on the rate limiter without the baton, then holds the baton
// except at its own suspension points. The first error cancels the rest.
func fanOut(ctx context.Context, b *base, n int, task func(ctx context.Context, i int) error) error {
	if n == 0 {
		return nil
	}
	limit := b.settings.concurrency
	limiter := b.settings.limiter

	err := Suspend(ctx, func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)
		if limit > 0 {
			g.SetLimit(limit)
		}
		for i := range n {
			g.Go(func() error {
				if limiter != nil {
					if err := limiter.Wait(gctx); err != nil {
						return cancelledError(b.name, err)
					}
				}
				tctx, release, err := enterScheduler(gctx)
				if err != nil {
					return err
				}
				defer release()
				return task(tctx, i)
			})
		}
		return g.Wait()
	})
	if err != nil && isContextError(err) && ctx.Err() != nil {
		return cancelledError(b.name, err)
	}
	return err
}
