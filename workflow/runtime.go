package workflow

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/BaSui01/nodeflow/workflow"

// Runnable is a vertex that runs synchronously. params is the parameter set
// handed down by the enclosing flow; it overlays the vertex defaults for
// this call only.
type Runnable interface {
	Vertex
	Run(ctx context.Context, shared *Shared, params Params) (Action, error)
}

// AsyncRunnable is a vertex whose lifecycle may suspend under the
// cooperative scheduler. It can only be placed in asynchronous flows.
type AsyncRunnable interface {
	Vertex
	RunAsync(ctx context.Context, shared *Shared, params Params) (Action, error)
}

func startSpan(ctx context.Context, b *base) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, "workflow."+b.kind,
		trace.WithAttributes(
			attribute.String("workflow.vertex", b.name),
			attribute.String("workflow.kind", b.kind),
			attribute.String("workflow.flow", currentFlow(ctx)),
		))
}

func endSpan(span trace.Span, action Action, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.String("workflow.action", string(action)))
	}
	span.End()
}

// invoke wraps one node lifecycle with a span and node events.
func invoke(ctx context.Context, b *base, lifecycle func(ctx context.Context) (Action, error)) (Action, error) {
	ctx = withInvocation(ctx, b)
	ctx, span := startSpan(ctx, b)
	start := time.Now()
	emit(ctx, Event{Type: EventNodeStart, Node: b.name})

	action, err := lifecycle(ctx)
	elapsed := time.Since(start)
	if err != nil {
		endSpan(span, "", err)
		emit(ctx, Event{Type: EventNodeError, Node: b.name, Duration: elapsed, Err: err})
		return "", err
	}

	action = action.normalize()
	endSpan(span, action, nil)
	emit(ctx, Event{Type: EventNodeComplete, Node: b.name, Action: action, Duration: elapsed})
	return action, nil
}

// executeWithRetry runs exec up to the policy's attempt count, waiting
// between attempts with wait, and hands the last failure to fallback.
// Cancellation is never retried and never reaches the fallback.
func executeWithRetry(
	ctx context.Context,
	b *base,
	wait waitFunc,
	exec func(ctx context.Context) (any, error),
	fallback func(ctx context.Context, err error) (any, error),
) (any, error) {
	policy := b.settings.retry
	var lastErr error
	attempts := 0

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, cancelledError(b.name, err)
		}
		if attempt > 1 {
			b.logger().Debug("retrying execute",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", policy.MaxAttempts),
				zap.Error(lastErr))
			emit(ctx, Event{Type: EventNodeRetry, Node: b.name, Attempt: attempt, Err: lastErr})
		}

		attempts = attempt
		result, err := exec(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, cancelledError(b.name, ctx.Err())
		}
		if IsPermanent(err) || attempt == policy.MaxAttempts {
			break
		}
		if werr := wait(ctx, policy.delayBefore(attempt)); werr != nil {
			return nil, cancelledError(b.name, werr)
		}
	}

	if fallback != nil {
		result, ferr := fallback(ctx, lastErr)
		switch {
		case ferr == nil:
			b.logger().Warn("execute failed, fallback used",
				zap.Int("attempts", attempts),
				zap.Error(lastErr))
			emit(ctx, Event{Type: EventNodeFallback, Node: b.name, Attempt: attempts, Err: lastErr})
			return result, nil
		case !errors.Is(ferr, ErrNoFallback):
			return nil, executionError(ctx, b.name, attempts, ferr)
		}
	}
	return nil, executionError(ctx, b.name, attempts, lastErr)
}
