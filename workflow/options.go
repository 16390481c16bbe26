package workflow

import (
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// settings is the construction-time configuration shared by every variant.
// Not every field applies to every variant; unused fields are ignored.
type settings struct {
	logger      *zap.Logger
	params      Params
	retry       RetryPolicy
	maxSteps    int
	concurrency int
	limiter     *rate.Limiter
	flowHooks   FlowHooks
	batchHooks  BatchFlowHooks
}

func defaultSettings() settings {
	return settings{
		params: Params{},
		retry:  DefaultRetryPolicy(),
	}
}

func newSettings(opts []Option) settings {
	s := defaultSettings()
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	s.retry = s.retry.normalized()
	return s
}

// Option configures a node or flow at construction time.
type Option func(*settings)

// WithParams sets the default parameter set of a node or flow.
func WithParams(params Params) Option {
	return func(s *settings) {
		s.params = params.Clone()
	}
}

// WithRetry sets how many times execute is attempted in total and the delay
// between attempts. maxRetries below 1 is treated as 1.
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(s *settings) {
		s.retry.MaxAttempts = maxRetries
		s.retry.Delay = delay
	}
}

// WithBackoff grows the retry delay by multiplier after each attempt, capped
// at maxDelay, optionally with jitter.
func WithBackoff(multiplier float64, maxDelay time.Duration, jitter bool) Option {
	return func(s *settings) {
		s.retry.Multiplier = multiplier
		s.retry.MaxDelay = maxDelay
		s.retry.Jitter = jitter
	}
}

// WithRetryPolicy replaces the whole retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(s *settings) {
		s.retry = p
	}
}

// WithLogger sets the logger. Without it zap.L() is used at run time.
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithMaxSteps bounds how many nodes a flow may run in one invocation.
// 0 means unlimited.
func WithMaxSteps(n int) Option {
	return func(s *settings) {
		if n < 0 {
			n = 0
		}
		s.maxSteps = n
	}
}

// WithConcurrency bounds the number of in-flight items of a parallel batch.
// 0 means unlimited.
func WithConcurrency(limit int) Option {
	return func(s *settings) {
		if limit < 0 {
			limit = 0
		}
		s.concurrency = limit
	}
}

// WithRateLimiter makes every item of a parallel batch wait on limiter
// before it starts.
func WithRateLimiter(limiter *rate.Limiter) Option {
	return func(s *settings) {
		s.limiter = limiter
	}
}

// WithFlowHooks installs prepare/finalize hooks on a flow.
func WithFlowHooks(hooks FlowHooks) Option {
	return func(s *settings) {
		s.flowHooks = hooks
	}
}

// WithBatchFlowHooks installs the hooks of a batch flow.
func WithBatchFlowHooks(hooks BatchFlowHooks) Option {
	return func(s *settings) {
		s.batchHooks = hooks
	}
}
