// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/BaSui01/nodeflow/types"
	"github.com/BaSui01/nodeflow/workflow"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	// Flow 指标
	flowRunsTotal         *prometheus.CounterVec
	flowRunDuration       *prometheus.HistogramVec
	flowTerminationsTotal *prometheus.CounterVec

	// 节点指标
	nodeRunsTotal     *prometheus.CounterVec
	nodeRunDuration   *prometheus.HistogramVec
	nodeRetriesTotal  *prometheus.CounterVec
	nodeFallbackTotal *prometheus.CounterVec

	// 快照存储指标
	storeOperationsTotal   *prometheus.CounterVec
	storeOperationDuration *prometheus.HistogramVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器，reg 为 nil 时注册到默认 Registry
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.L()
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// Flow 指标
	c.flowRunsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flow_runs_total",
			Help:      "Total number of flow invocations",
		},
		[]string{"flow", "status"},
	)

	c.flowRunDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "flow_run_duration_seconds",
			Help:      "Flow invocation duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120, 600},
		},
		[]string{"flow"},
	)

	c.flowTerminationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flow_terminations_total",
			Help:      "Total number of traversals ended for lack of a successor",
		},
		[]string{"flow", "reason"}, // reason: no_successors, unmatched_action
	)

	// 节点指标
	c.nodeRunsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_runs_total",
			Help:      "Total number of node invocations",
		},
		[]string{"node", "status"},
	)

	c.nodeRunDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "node_run_duration_seconds",
			Help:      "Node invocation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node"},
	)

	c.nodeRetriesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_retries_total",
			Help:      "Total number of repeated execute attempts",
		},
		[]string{"node"},
	)

	c.nodeFallbackTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_fallbacks_total",
			Help:      "Total number of execute failures absorbed by a fallback",
		},
		[]string{"node"},
	)

	// 快照存储指标
	c.storeOperationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Total number of snapshot store operations",
		},
		[]string{"driver", "operation", "status"},
	)

	c.storeOperationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Snapshot store operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"driver", "operation"},
	)

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🔀 工作流事件
// =============================================================================

// Emitter 返回可交给 workflow.WithEmitter 的事件接收器
func (c *Collector) Emitter() workflow.Emitter {
	return c.Record
}

// Record 按事件类型更新指标
//
// node/flow 标签取自 Event.NodeMetricLabel / FlowMetricLabel：显式命名的顶点
// 使用名称，自动生成名称的顶点退化为其类型（node、flow 等），标签基数保持有界。
func (c *Collector) Record(ev workflow.Event) {
	flow, node := ev.FlowMetricLabel(), ev.NodeMetricLabel()

	switch ev.Type {
	case workflow.EventFlowComplete:
		c.flowRunsTotal.WithLabelValues(flow, status(ev.Err)).Inc()
		c.flowRunDuration.WithLabelValues(flow).Observe(ev.Duration.Seconds())

	case workflow.EventFlowTerminated:
		c.flowTerminationsTotal.WithLabelValues(flow, ev.Reason).Inc()

	case workflow.EventNodeComplete, workflow.EventNodeError:
		c.nodeRunsTotal.WithLabelValues(node, status(ev.Err)).Inc()
		c.nodeRunDuration.WithLabelValues(node).Observe(ev.Duration.Seconds())

	case workflow.EventNodeRetry:
		c.nodeRetriesTotal.WithLabelValues(node).Inc()

	case workflow.EventNodeFallback:
		c.nodeFallbackTotal.WithLabelValues(node).Inc()
	}
}

// =============================================================================
// 🗄️ 快照存储指标
// =============================================================================

// RecordStoreOperation 记录一次快照存储操作
func (c *Collector) RecordStoreOperation(driver, operation string, duration time.Duration, err error) {
	c.storeOperationsTotal.WithLabelValues(driver, operation, status(err)).Inc()
	c.storeOperationDuration.WithLabelValues(driver, operation).Observe(duration.Seconds())
	if err != nil {
		c.logger.Debug("store operation failed",
			zap.String("driver", driver),
			zap.String("operation", operation),
			zap.Error(err),
		)
	}
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// status 将错误归类为低基数标签
func status(err error) string {
	switch {
	case err == nil:
		return "success"
	case types.IsCode(err, types.ErrCancelled):
		return "cancelled"
	default:
		return "error"
	}
}
