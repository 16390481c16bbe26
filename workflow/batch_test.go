package workflow

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/nodeflow/testutil"
)

func timesTen(ctx context.Context, item any) (any, error) {
	return item.(int) * 10, nil
}

func TestBatchNode_KeepsItemOrder(t *testing.T) {
	t.Parallel()

	var gotItems, gotResults []any
	n := NewBatchNode("batch", BatchHandlerFuncs{
		PrepareFunc: func(ctx context.Context, shared *Shared, params Params) ([]any, error) {
			return []any{3, 1, 2}, nil
		},
		ExecuteItemFunc: timesTen,
		FinalizeFunc: func(ctx context.Context, shared *Shared, items, results []any) (Action, error) {
			gotItems, gotResults = items, results
			return "", nil
		},
	})

	action, err := NewFlow("f", n).Run(testutil.TestContext(t), NewShared(nil), nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultAction, action)
	assert.Equal(t, []any{3, 1, 2}, gotItems)
	assert.Equal(t, []any{30, 10, 20}, gotResults)
}

func TestBatchNode_ItemFallback(t *testing.T) {
	t.Parallel()

	var gotResults []any
	n := NewBatchNode("batch", BatchHandlerFuncs{
		PrepareFunc: func(ctx context.Context, shared *Shared, params Params) ([]any, error) {
			return []any{1, 2, 3}, nil
		},
		ExecuteItemFunc: func(ctx context.Context, item any) (any, error) {
			if item.(int) == 2 {
				return nil, errors.New("two is cursed")
			}
			return item, nil
		},
		FallbackItemFunc: func(ctx context.Context, item any, err error) (any, error) {
			return -item.(int), nil
		},
		FinalizeFunc: func(ctx context.Context, shared *Shared, items, results []any) (Action, error) {
			gotResults = results
			return "", nil
		},
	}, WithRetry(2, 0))

	_, err := n.Run(testutil.TestContext(t), NewShared(nil), nil)
	require.NoError(t, err)
	assert.Equal(t, []any{1, -2, 3}, gotResults)
}

func TestBatchNode_ItemFailureAbortsRun(t *testing.T) {
	t.Parallel()

	var finalized bool
	n := NewBatchNode("batch", BatchHandlerFuncs{
		PrepareFunc: func(ctx context.Context, shared *Shared, params Params) ([]any, error) {
			return []any{1, 2}, nil
		},
		ExecuteItemFunc: func(ctx context.Context, item any) (any, error) {
			return nil, errors.New("nope")
		},
		FinalizeFunc: func(ctx context.Context, shared *Shared, items, results []any) (Action, error) {
			finalized = true
			return "", nil
		},
	})

	_, err := n.Run(testutil.TestContext(t), NewShared(nil), nil)
	require.Error(t, err)
	assert.True(t, IsExecutionError(err))
	assert.False(t, finalized)
}

func TestBatchFlow_RunsGraphPerBatchOnSameShared(t *testing.T) {
	t.Parallel()

	appendName := NewNode("append", HandlerFuncs{
		PrepareFunc: func(ctx context.Context, shared *Shared, params Params) (any, error) {
			seen := ValueOr(shared, "seen", []string(nil))
			return fmt.Sprintf("%s#%d", params["file"], len(seen)), nil
		},
		FinalizeFunc: func(ctx context.Context, shared *Shared, prep, result any) (Action, error) {
			seen := ValueOr(shared, "seen", []string(nil))
			shared.Set("seen", append(seen, prep.(string)))
			return Action("done-" + prep.(string)), nil
		},
	})

	var finalBatches []Params
	var finalActions []Action
	flow := NewBatchFlow("files", appendName,
		WithParams(Params{"owner": "flow"}),
		WithBatchFlowHooks(BatchFlowHooks{
			Prepare: func(ctx context.Context, shared *Shared, params Params) ([]Params, error) {
				assert.Equal(t, "flow", params["owner"])
				return []Params{{"file": "a"}, {"file": "b"}, {"file": "c"}}, nil
			},
			Finalize: func(ctx context.Context, shared *Shared, batches []Params, actions []Action) (Action, error) {
				finalBatches, finalActions = batches, actions
				return "all-done", nil
			},
		}))

	shared := NewShared(nil)
	action, err := flow.Run(testutil.TestContext(t), shared, nil)
	require.NoError(t, err)
	assert.Equal(t, Action("all-done"), action)
	assert.Equal(t, []string{"a#0", "b#1", "c#2"}, ValueOr(shared, "seen", []string(nil)),
		"later batches see earlier writes")
	assert.Len(t, finalBatches, 3)
	assert.Equal(t, []Action{"done-a#0", "done-b#1", "done-c#2"}, finalActions)
}

func TestBatchFlow_DefaultsWithoutHooks(t *testing.T) {
	t.Parallel()

	rec := testutil.NewRecorder[string]()
	flow := NewBatchFlow("empty", visitNode("n", rec))

	action, err := flow.Run(testutil.TestContext(t), NewShared(nil), nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultAction, action)
	assert.Zero(t, rec.Len(), "no batches means no traversal")
}

func TestBatchFlow_BatchParamsDoNotLeak(t *testing.T) {
	t.Parallel()

	seen := testutil.NewRecorder[Params]()
	probe := NewNode("probe", HandlerFuncs{
		PrepareFunc: func(ctx context.Context, shared *Shared, params Params) (any, error) {
			seen.Add(params)
			return nil, nil
		},
	})
	flow := NewBatchFlow("batches", probe, WithBatchFlowHooks(BatchFlowHooks{
		Prepare: func(ctx context.Context, shared *Shared, params Params) ([]Params, error) {
			return []Params{{"only_first": true}, {"second": true}}, nil
		},
	}))

	_, err := flow.Run(testutil.TestContext(t), NewShared(nil), nil)
	require.NoError(t, err)
	got := seen.Values()
	require.Len(t, got, 2)
	assert.Equal(t, Params{"only_first": true}, got[0])
	assert.Equal(t, Params{"second": true}, got[1])
}

func TestBatchFlow_NestedInFlow(t *testing.T) {
	t.Parallel()

	rec := testutil.NewRecorder[string]()
	batch := NewBatchFlow("batch", visitNode("item", rec), WithBatchFlowHooks(BatchFlowHooks{
		Prepare: func(ctx context.Context, shared *Shared, params Params) ([]Params, error) {
			return []Params{{}, {}}, nil
		},
	}))
	start := visitNode("start", rec)
	start.Then(batch).Then(visitNode("end", rec))

	_, err := NewFlow("outer", start).Run(testutil.TestContext(t), NewShared(nil), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "item", "item", "end"}, rec.Values())
}
