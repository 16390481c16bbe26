package workflow

import (
	"context"
	"sync/atomic"

	"github.com/BaSui01/nodeflow/testutil"
)

// visitNode records its name on every run and finalizes with actions in
// turn, repeating the last one.
func visitNode(name string, rec *testutil.Recorder[string], actions ...Action) *Node {
	var calls atomic.Int64
	return NewNode(name, HandlerFuncs{
		FinalizeFunc: func(ctx context.Context, shared *Shared, prep, result any) (Action, error) {
			rec.Add(name)
			i := int(calls.Add(1)) - 1
			if len(actions) == 0 {
				return "", nil
			}
			if i >= len(actions) {
				i = len(actions) - 1
			}
			return actions[i], nil
		},
	})
}

// asyncVisitNode is the asynchronous form of visitNode. It suspends once
// before finalizing.
func asyncVisitNode(name string, rec *testutil.Recorder[string], action Action) *AsyncNode {
	return NewAsyncNode(name, AsyncHandlerFuncs{
		ExecuteFunc: func(ctx context.Context, prep any) (any, error) {
			return nil, Sleep(ctx, 0)
		},
		FinalizeFunc: func(ctx context.Context, shared *Shared, prep, result any) (Action, error) {
			rec.Add(name)
			return action, nil
		},
	})
}

// collectEvents returns a context whose emitter records every event.
func collectEvents(ctx context.Context) (context.Context, *testutil.Recorder[Event]) {
	rec := testutil.NewRecorder[Event]()
	return WithEmitter(ctx, rec.Add), rec
}

func eventTypes(events []Event) []EventType {
	out := make([]EventType, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}
