package workflow

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/BaSui01/nodeflow/types"
)

// Scheduler is the cooperative executor of an asynchronous run. It owns a
// single baton: asynchronous lifecycle code only runs while holding it, so at
// most one node's code is active at any instant. Code gives the baton up
// only at explicit suspension points (Suspend, Sleep, Future.Await and the
// join of parallel batches).
type Scheduler struct {
	baton  *semaphore.Weighted
	active atomic.Int64
	peak   atomic.Int64
}

// NewScheduler creates an idle scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{baton: semaphore.NewWeighted(1)}
}

// Peak returns the highest number of baton holders observed at once.
func (s *Scheduler) Peak() int { return int(s.peak.Load()) }

func (s *Scheduler) acquire(ctx context.Context) error {
	if err := s.baton.Acquire(ctx, 1); err != nil {
		return err
	}
	n := s.active.Add(1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	return nil
}

func (s *Scheduler) release() {
	s.active.Add(-1)
	s.baton.Release(1)
}

type schedulerKey struct{}

type holdingKey struct{}

// WithScheduler makes asynchronous runs under ctx use s instead of a
// scheduler of their own.
func WithScheduler(ctx context.Context, s *Scheduler) context.Context {
	return context.WithValue(ctx, schedulerKey{}, s)
}

// SchedulerFrom returns the scheduler carried by ctx, if any.
func SchedulerFrom(ctx context.Context) *Scheduler {
	s, _ := ctx.Value(schedulerKey{}).(*Scheduler)
	return s
}

func holding(ctx context.Context) bool {
	held, _ := ctx.Value(holdingKey{}).(bool)
	return held
}

func withHolding(ctx context.Context, held bool) context.Context {
	return context.WithValue(ctx, holdingKey{}, held)
}

// detachScheduler hides the scheduler from synchronous code, which then
// never yields the baton held by its caller.
func detachScheduler(ctx context.Context) context.Context {
	return withHolding(WithScheduler(ctx, nil), false)
}

// enterScheduler makes sure the caller holds the baton of a scheduler. It is
// a no-op when ctx already holds one; otherwise it acquires the baton of the
// carried scheduler, or of a new one, and returns the release func.
func enterScheduler(ctx context.Context) (context.Context, func(), error) {
	s := SchedulerFrom(ctx)
	if s != nil && holding(ctx) {
		return ctx, func() {}, nil
	}
	if s == nil {
		s = NewScheduler()
		ctx = WithScheduler(ctx, s)
	}
	if err := s.acquire(ctx); err != nil {
		return ctx, nil, err
	}
	return withHolding(ctx, true), s.release, nil
}

// Suspend gives up the baton while fn runs and takes it back afterwards.
// Without a held baton fn simply runs. fn receives a context that does not
// hold the baton, so work it spawns can be scheduled in the meantime.
func Suspend(ctx context.Context, fn func(ctx context.Context) error) error {
	s := SchedulerFrom(ctx)
	if s == nil || !holding(ctx) {
		return fn(ctx)
	}

	s.release()
	err := fn(withHolding(ctx, false))
	// The baton must be reacquired even after cancellation, the caller's
	// deferred release depends on it.
	if aerr := s.acquire(context.WithoutCancel(ctx)); aerr != nil && err == nil {
		err = aerr
	}
	if err == nil {
		err = ctx.Err()
	}
	return err
}

// Sleep suspends the caller for d or until ctx ends.
func Sleep(ctx context.Context, d time.Duration) error {
	return Suspend(ctx, func(ctx context.Context) error {
		return blockingWait(ctx, d)
	})
}

// Future is the pending result of a task started with Spawn.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Spawn starts fn as a task of the scheduler carried by ctx. The task waits
// for the baton before running, so it makes progress only while other code
// is suspended. A panic in fn is returned as an error.
func Spawn[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	s := SchedulerFrom(ctx)

	go func() {
		defer close(f.done)
		tctx := ctx
		if s != nil {
			if err := s.acquire(ctx); err != nil {
				f.err = err
				return
			}
			defer s.release()
			tctx = withHolding(ctx, true)
		}
		defer func() {
			if r := recover(); r != nil {
				f.err = types.NewError(types.ErrInternal, fmt.Sprintf("task panicked: %v", r))
			}
		}()
		f.value, f.err = fn(tctx)
	}()
	return f
}

// Await suspends the caller until the task finishes or ctx ends.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	err := Suspend(ctx, func(ctx context.Context) error {
		select {
		case <-f.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return f.value, f.err
}

// Done is closed when the task has finished.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// asyncWait is the retry wait of asynchronous nodes.
func asyncWait(ctx context.Context, d time.Duration) error {
	return Sleep(ctx, d)
}
