package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/BaSui01/nodeflow/types"
	"github.com/BaSui01/nodeflow/workflow"
)

const instrumentationName = "github.com/BaSui01/nodeflow/internal/telemetry"

// Instruments 把工作流事件记录为 OTel 指标，随 MeterProvider 经 OTLP 导出
type Instruments struct {
	// 计数器
	flowRuns  metric.Int64Counter
	nodeRuns  metric.Int64Counter
	retries   metric.Int64Counter
	fallbacks metric.Int64Counter
	// 直方图
	nodeDuration metric.Float64Histogram
	flowDuration metric.Float64Histogram
	// 活跃运行
	activeFlows metric.Int64UpDownCounter
}

// NewInstruments 使用全局 MeterProvider 创建指标
func NewInstruments() (*Instruments, error) {
	return NewInstrumentsWithMeter(otel.Meter(instrumentationName))
}

// NewInstrumentsWithMeter 使用指定 Meter 创建指标
func NewInstrumentsWithMeter(meter metric.Meter) (*Instruments, error) {
	m := &Instruments{}
	var err error

	m.flowRuns, err = meter.Int64Counter("workflow.flow.runs",
		metric.WithDescription("Completed flow invocations"),
		metric.WithUnit("{run}"))
	if err != nil {
		return nil, err
	}

	m.nodeRuns, err = meter.Int64Counter("workflow.node.runs",
		metric.WithDescription("Completed node invocations"),
		metric.WithUnit("{run}"))
	if err != nil {
		return nil, err
	}

	m.retries, err = meter.Int64Counter("workflow.node.retries",
		metric.WithDescription("Repeated execute attempts"),
		metric.WithUnit("{attempt}"))
	if err != nil {
		return nil, err
	}

	m.fallbacks, err = meter.Int64Counter("workflow.node.fallbacks",
		metric.WithDescription("Execute failures absorbed by a fallback"),
		metric.WithUnit("{fallback}"))
	if err != nil {
		return nil, err
	}

	m.nodeDuration, err = meter.Float64Histogram("workflow.node.duration",
		metric.WithDescription("Node invocation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30))
	if err != nil {
		return nil, err
	}

	m.flowDuration, err = meter.Float64Histogram("workflow.flow.duration",
		metric.WithDescription("Flow invocation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.1, 0.5, 1, 5, 30, 120, 600))
	if err != nil {
		return nil, err
	}

	m.activeFlows, err = meter.Int64UpDownCounter("workflow.flow.active",
		metric.WithDescription("Flows currently running"),
		metric.WithUnit("{run}"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// Emitter 返回可交给 workflow.WithEmitter 的事件接收器
func (m *Instruments) Emitter() workflow.Emitter {
	return func(ev workflow.Event) {
		m.record(context.Background(), ev)
	}
}

func (m *Instruments) record(ctx context.Context, ev workflow.Event) {
	flow, node := ev.FlowMetricLabel(), ev.NodeMetricLabel()

	switch ev.Type {
	case workflow.EventFlowStart:
		m.activeFlows.Add(ctx, 1, metric.WithAttributes(attribute.String("flow", flow)))

	case workflow.EventFlowComplete:
		attrs := metric.WithAttributes(
			attribute.String("flow", flow),
			attribute.String("status", status(ev.Err)),
		)
		m.activeFlows.Add(ctx, -1, metric.WithAttributes(attribute.String("flow", flow)))
		m.flowRuns.Add(ctx, 1, attrs)
		m.flowDuration.Record(ctx, ev.Duration.Seconds(), attrs)

	case workflow.EventNodeComplete, workflow.EventNodeError:
		attrs := metric.WithAttributes(
			attribute.String("node", node),
			attribute.String("status", status(ev.Err)),
		)
		m.nodeRuns.Add(ctx, 1, attrs)
		m.nodeDuration.Record(ctx, ev.Duration.Seconds(), attrs)

	case workflow.EventNodeRetry:
		m.retries.Add(ctx, 1, metric.WithAttributes(attribute.String("node", node)))

	case workflow.EventNodeFallback:
		m.fallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("node", node)))
	}
}

// status 返回事件错误对应的低基数标签
func status(err error) string {
	if err == nil {
		return "success"
	}
	if code := types.GetErrorCode(err); code != "" {
		return string(code)
	}
	return "error"
}
