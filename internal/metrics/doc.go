// 版权所有 2024 NodeFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的工作流指标采集能力，覆盖
Flow、节点与快照存储三个维度。

# 概述

Collector 通过 promauto 把指标注册到调用方提供的 Registerer
（为 nil 时使用默认 Registry），并作为 workflow.Emitter 订阅
运行事件。所有指标按 namespace 隔离。

# 核心类型

  - Collector：指标收集器，持有 Counter 与 Histogram 向量指标。

# 主要能力

  - Flow 指标：运行总数（按 flow/status）、运行耗时、
    终止原因计数（no_successors / unmatched_action）。
  - 节点指标：运行总数、运行耗时、重试次数、Fallback 次数。
  - 快照存储指标：按 driver/operation 分组的操作计数与耗时。
*/
package metrics
