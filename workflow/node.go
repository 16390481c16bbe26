package workflow

import "context"

// Node is the synchronous unit of work.
type Node struct {
	base
	handler Handler
}

// NewNode creates a node driven by handler. An empty name is replaced by a
// generated one.
func NewNode(name string, handler Handler, opts ...Option) *Node {
	if handler == nil {
		handler = HandlerFuncs{}
	}
	n := &Node{handler: handler}
	n.init("node", name, opts)
	return n
}

// Run executes prepare, execute with retry, and finalize in order.
func (n *Node) Run(ctx context.Context, shared *Shared, params Params) (Action, error) {
	return invoke(ctx, &n.base, func(ctx context.Context) (Action, error) {
		prep, err := n.handler.Prepare(ctx, shared, n.effectiveParams(params))
		if err != nil {
			return "", preparationError(ctx, n.name, err)
		}

		var fallback func(context.Context, error) (any, error)
		if fb, ok := n.handler.(Fallbacker); ok {
			fallback = func(ctx context.Context, err error) (any, error) {
				return fb.Fallback(ctx, prep, err)
			}
		}
		result, err := executeWithRetry(ctx, &n.base, blockingWait,
			func(ctx context.Context) (any, error) { return n.handler.Execute(ctx, prep) },
			fallback)
		if err != nil {
			return "", err
		}

		action, err := n.handler.Finalize(ctx, shared, prep, result)
		if err != nil {
			return "", finalizeError(ctx, n.name, err)
		}
		return action, nil
	})
}

// BatchNode runs its execute phase once per prepared item, sequentially.
// Retry and fallback apply to each item on its own.
type BatchNode struct {
	base
	handler BatchHandler
}

// NewBatchNode creates a sequential batch node.
func NewBatchNode(name string, handler BatchHandler, opts ...Option) *BatchNode {
	if handler == nil {
		handler = BatchHandlerFuncs{}
	}
	n := &BatchNode{handler: handler}
	n.init("batch_node", name, opts)
	return n
}

// Run prepares the items, executes each in order and finalizes with the
// results in item order.
func (n *BatchNode) Run(ctx context.Context, shared *Shared, params Params) (Action, error) {
	return invoke(ctx, &n.base, func(ctx context.Context) (Action, error) {
		items, err := n.handler.Prepare(ctx, shared, n.effectiveParams(params))
		if err != nil {
			return "", preparationError(ctx, n.name, err)
		}

		fb, hasFallback := n.handler.(ItemFallbacker)
		results := make([]any, len(items))
		for i, item := range items {
			var fallback func(context.Context, error) (any, error)
			if hasFallback {
				fallback = func(ctx context.Context, err error) (any, error) {
					return fb.FallbackItem(ctx, item, err)
				}
			}
			results[i], err = executeWithRetry(ctx, &n.base, blockingWait,
				func(ctx context.Context) (any, error) { return n.handler.ExecuteItem(ctx, item) },
				fallback)
			if err != nil {
				return "", err
			}
		}

		action, err := n.handler.Finalize(ctx, shared, items, results)
		if err != nil {
			return "", finalizeError(ctx, n.name, err)
		}
		return action, nil
	})
}
