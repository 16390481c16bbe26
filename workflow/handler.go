package workflow

import "context"

// Handler holds the three lifecycle phases of a synchronous node.
//
// Prepare may only read shared. Execute sees nothing but the prepared value
// and may be retried. Finalize is the only phase allowed to write shared and
// returns the action that selects the successor.
type Handler interface {
	Prepare(ctx context.Context, shared *Shared, params Params) (any, error)
	Execute(ctx context.Context, prep any) (any, error)
	Finalize(ctx context.Context, shared *Shared, prep, result any) (Action, error)
}

// Fallbacker is implemented by handlers that can recover from an execute
// failure after every attempt is spent. Returning ErrNoFallback declines.
type Fallbacker interface {
	Fallback(ctx context.Context, prep any, err error) (any, error)
}

// HandlerFuncs adapts plain functions to Handler and Fallbacker.
// Missing phases are pass-through: Prepare and Execute return nil and
// Finalize returns DefaultAction.
type HandlerFuncs struct {
	PrepareFunc  func(ctx context.Context, shared *Shared, params Params) (any, error)
	ExecuteFunc  func(ctx context.Context, prep any) (any, error)
	FinalizeFunc func(ctx context.Context, shared *Shared, prep, result any) (Action, error)
	FallbackFunc func(ctx context.Context, prep any, err error) (any, error)
}

func (h HandlerFuncs) Prepare(ctx context.Context, shared *Shared, params Params) (any, error) {
	if h.PrepareFunc == nil {
		return nil, nil
	}
	return h.PrepareFunc(ctx, shared, params)
}

func (h HandlerFuncs) Execute(ctx context.Context, prep any) (any, error) {
	if h.ExecuteFunc == nil {
		return nil, nil
	}
	return h.ExecuteFunc(ctx, prep)
}

func (h HandlerFuncs) Finalize(ctx context.Context, shared *Shared, prep, result any) (Action, error) {
	if h.FinalizeFunc == nil {
		return DefaultAction, nil
	}
	return h.FinalizeFunc(ctx, shared, prep, result)
}

func (h HandlerFuncs) Fallback(ctx context.Context, prep any, err error) (any, error) {
	if h.FallbackFunc == nil {
		return nil, ErrNoFallback
	}
	return h.FallbackFunc(ctx, prep, err)
}

// BatchHandler is the batch form of Handler: Prepare yields the items,
// ExecuteItem runs once per item and Finalize receives the results in item
// order.
type BatchHandler interface {
	Prepare(ctx context.Context, shared *Shared, params Params) ([]any, error)
	ExecuteItem(ctx context.Context, item any) (any, error)
	Finalize(ctx context.Context, shared *Shared, items, results []any) (Action, error)
}

// ItemFallbacker recovers a single failed item of a batch.
type ItemFallbacker interface {
	FallbackItem(ctx context.Context, item any, err error) (any, error)
}

// BatchHandlerFuncs adapts plain functions to BatchHandler and ItemFallbacker.
type BatchHandlerFuncs struct {
	PrepareFunc      func(ctx context.Context, shared *Shared, params Params) ([]any, error)
	ExecuteItemFunc  func(ctx context.Context, item any) (any, error)
	FinalizeFunc     func(ctx context.Context, shared *Shared, items, results []any) (Action, error)
	FallbackItemFunc func(ctx context.Context, item any, err error) (any, error)
}

func (h BatchHandlerFuncs) Prepare(ctx context.Context, shared *Shared, params Params) ([]any, error) {
	if h.PrepareFunc == nil {
		return nil, nil
	}
	return h.PrepareFunc(ctx, shared, params)
}

func (h BatchHandlerFuncs) ExecuteItem(ctx context.Context, item any) (any, error) {
	if h.ExecuteItemFunc == nil {
		return nil, nil
	}
	return h.ExecuteItemFunc(ctx, item)
}

func (h BatchHandlerFuncs) Finalize(ctx context.Context, shared *Shared, items, results []any) (Action, error) {
	if h.FinalizeFunc == nil {
		return DefaultAction, nil
	}
	return h.FinalizeFunc(ctx, shared, items, results)
}

func (h BatchHandlerFuncs) FallbackItem(ctx context.Context, item any, err error) (any, error) {
	if h.FallbackItemFunc == nil {
		return nil, ErrNoFallback
	}
	return h.FallbackItemFunc(ctx, item, err)
}

// AsyncHandler is the asynchronous form of Handler. Its phases run while
// holding the scheduler baton and yield it through Suspend, Sleep or
// Future.Await.
type AsyncHandler interface {
	PrepareAsync(ctx context.Context, shared *Shared, params Params) (any, error)
	ExecuteAsync(ctx context.Context, prep any) (any, error)
	FinalizeAsync(ctx context.Context, shared *Shared, prep, result any) (Action, error)
}

// AsyncFallbacker is the asynchronous form of Fallbacker.
type AsyncFallbacker interface {
	FallbackAsync(ctx context.Context, prep any, err error) (any, error)
}

// AsyncHandlerFuncs adapts plain functions to AsyncHandler and AsyncFallbacker.
type AsyncHandlerFuncs struct {
	PrepareFunc  func(ctx context.Context, shared *Shared, params Params) (any, error)
	ExecuteFunc  func(ctx context.Context, prep any) (any, error)
	FinalizeFunc func(ctx context.Context, shared *Shared, prep, result any) (Action, error)
	FallbackFunc func(ctx context.Context, prep any, err error) (any, error)
}

func (h AsyncHandlerFuncs) PrepareAsync(ctx context.Context, shared *Shared, params Params) (any, error) {
	if h.PrepareFunc == nil {
		return nil, nil
	}
	return h.PrepareFunc(ctx, shared, params)
}

func (h AsyncHandlerFuncs) ExecuteAsync(ctx context.Context, prep any) (any, error) {
	if h.ExecuteFunc == nil {
		return nil, nil
	}
	return h.ExecuteFunc(ctx, prep)
}

func (h AsyncHandlerFuncs) FinalizeAsync(ctx context.Context, shared *Shared, prep, result any) (Action, error) {
	if h.FinalizeFunc == nil {
		return DefaultAction, nil
	}
	return h.FinalizeFunc(ctx, shared, prep, result)
}

func (h AsyncHandlerFuncs) FallbackAsync(ctx context.Context, prep any, err error) (any, error) {
	if h.FallbackFunc == nil {
		return nil, ErrNoFallback
	}
	return h.FallbackFunc(ctx, prep, err)
}

// AsyncBatchHandler is the asynchronous form of BatchHandler.
type AsyncBatchHandler interface {
	PrepareAsync(ctx context.Context, shared *Shared, params Params) ([]any, error)
	ExecuteItemAsync(ctx context.Context, item any) (any, error)
	FinalizeAsync(ctx context.Context, shared *Shared, items, results []any) (Action, error)
}

// AsyncItemFallbacker is the asynchronous form of ItemFallbacker.
type AsyncItemFallbacker interface {
	FallbackItemAsync(ctx context.Context, item any, err error) (any, error)
}

// AsyncBatchHandlerFuncs adapts plain functions to AsyncBatchHandler and
// AsyncItemFallbacker.
type AsyncBatchHandlerFuncs struct {
	PrepareFunc      func(ctx context.Context, shared *Shared, params Params) ([]any, error)
	ExecuteItemFunc  func(ctx context.Context, item any) (any, error)
	FinalizeFunc     func(ctx context.Context, shared *Shared, items, results []any) (Action, error)
	FallbackItemFunc func(ctx context.Context, item any, err error) (any, error)
}

func (h AsyncBatchHandlerFuncs) PrepareAsync(ctx context.Context, shared *Shared, params Params) ([]any, error) {
	if h.PrepareFunc == nil {
		return nil, nil
	}
	return h.PrepareFunc(ctx, shared, params)
}

func (h AsyncBatchHandlerFuncs) ExecuteItemAsync(ctx context.Context, item any) (any, error) {
	if h.ExecuteItemFunc == nil {
		return nil, nil
	}
	return h.ExecuteItemFunc(ctx, item)
}

func (h AsyncBatchHandlerFuncs) FinalizeAsync(ctx context.Context, shared *Shared, items, results []any) (Action, error) {
	if h.FinalizeFunc == nil {
		return DefaultAction, nil
	}
	return h.FinalizeFunc(ctx, shared, items, results)
}

func (h AsyncBatchHandlerFuncs) FallbackItemAsync(ctx context.Context, item any, err error) (any, error) {
	if h.FallbackItemFunc == nil {
		return nil, ErrNoFallback
	}
	return h.FallbackItemFunc(ctx, item, err)
}

// FlowHooks are the optional prepare and finalize phases of a flow. The
// defaults pass through: Finalize returns the last action of the traversal.
type FlowHooks struct {
	Prepare  func(ctx context.Context, shared *Shared, params Params) error
	Finalize func(ctx context.Context, shared *Shared, last Action) (Action, error)
}

// BatchFlowHooks are the phases of a batch flow. Prepare returns one
// parameter set per traversal; Finalize receives them together with the
// action each traversal ended on.
type BatchFlowHooks struct {
	Prepare  func(ctx context.Context, shared *Shared, params Params) ([]Params, error)
	Finalize func(ctx context.Context, shared *Shared, batches []Params, actions []Action) (Action, error)
}
