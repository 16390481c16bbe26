package workflow

import (
	"context"
	"errors"

	"github.com/BaSui01/nodeflow/types"
)

// ErrNoFallback is returned by a fallback that declines to handle an
// execute failure; the original error then aborts the run.
var ErrNoFallback = errors.New("workflow: no fallback")

// IsPreparationError reports whether a prepare phase failed.
func IsPreparationError(err error) bool { return types.IsCode(err, types.ErrPreparation) }

// IsExecutionError reports whether an execute phase failed without being
// absorbed by a fallback.
func IsExecutionError(err error) bool { return types.IsCode(err, types.ErrExecution) }

// IsFinalizeError reports whether a finalize phase failed.
func IsFinalizeError(err error) bool { return types.IsCode(err, types.ErrFinalize) }

// IsIncompatibleNodeError reports whether an async vertex was placed in a
// synchronous flow.
func IsIncompatibleNodeError(err error) bool { return types.IsCode(err, types.ErrIncompatibleNode) }

// IsInvalidGraphError reports whether a flow had no usable start vertex.
func IsInvalidGraphError(err error) bool { return types.IsCode(err, types.ErrInvalidGraph) }

// IsMaxStepsError reports whether a flow hit its step limit.
func IsMaxStepsError(err error) bool { return types.IsCode(err, types.ErrMaxSteps) }

// IsCancelledError reports whether a run stopped because its context ended.
func IsCancelledError(err error) bool { return types.IsCode(err, types.ErrCancelled) }

func preparationError(ctx context.Context, node string, cause error) error {
	if e := passthrough(ctx, node, cause); e != nil {
		return e
	}
	return types.NewError(types.ErrPreparation, "prepare failed").WithNode(node).WithCause(cause)
}

func executionError(ctx context.Context, node string, attempts int, cause error) error {
	if e := passthrough(ctx, node, cause); e != nil {
		return e
	}
	return types.NewError(types.ErrExecution, "execute failed").
		WithNode(node).
		WithAttempts(attempts).
		WithRetryable(!IsPermanent(cause)).
		WithCause(cause)
}

func finalizeError(ctx context.Context, node string, cause error) error {
	if e := passthrough(ctx, node, cause); e != nil {
		return e
	}
	return types.NewError(types.ErrFinalize, "finalize failed").WithNode(node).WithCause(cause)
}

func cancelledError(node string, cause error) error {
	return types.NewError(types.ErrCancelled, "run cancelled").WithNode(node).WithCause(cause)
}

// passthrough keeps errors that already carry a run-level code (raised by
// a nested flow) unchanged. Any other engine error, ErrInternal included, is
// wrapped by the caller like a plain error. Context errors count as
// cancellation only when the run's own context has ended.
func passthrough(ctx context.Context, node string, err error) error {
	var e *types.Error
	if errors.As(err, &e) && propagates(e.Code) {
		return err
	}
	if ctx.Err() != nil && isContextError(err) {
		return cancelledError(node, err)
	}
	return nil
}

// propagates reports whether errors with code travel through enclosing
// nodes and flows without another layer of wrapping.
func propagates(code types.ErrorCode) bool {
	switch code {
	case types.ErrPreparation, types.ErrExecution, types.ErrFinalize,
		types.ErrIncompatibleNode, types.ErrInvalidGraph, types.ErrMaxSteps,
		types.ErrCancelled:
		return true
	}
	return false
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
