package config

import (
	"golang.org/x/time/rate"

	"github.com/BaSui01/nodeflow/workflow"
)

// Options 把引擎默认值转换为 workflow 选项。
// RateLimitRPS 为 0 时不创建限流器。
func (e EngineConfig) Options() []workflow.Option {
	opts := []workflow.Option{
		workflow.WithRetry(e.MaxRetries, e.RetryDelay),
		workflow.WithMaxSteps(e.MaxSteps),
		workflow.WithConcurrency(e.ParallelLimit),
	}
	if e.BackoffMultiplier > 1 || e.Jitter {
		opts = append(opts, workflow.WithBackoff(e.BackoffMultiplier, e.MaxRetryDelay, e.Jitter))
	}
	if limiter := e.Limiter(); limiter != nil {
		opts = append(opts, workflow.WithRateLimiter(limiter))
	}
	return opts
}

// Limiter 返回并行批处理使用的令牌桶，未配置时返回 nil。
func (e EngineConfig) Limiter() *rate.Limiter {
	if e.RateLimitRPS <= 0 {
		return nil
	}
	burst := e.RateLimitBurst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(e.RateLimitRPS), burst)
}
