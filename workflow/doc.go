// Copyright (c) NodeFlow Authors.
// Licensed under the MIT License.

/*
Package workflow 提供节点图编排与执行引擎。

# 概述

workflow 包把独立的处理单元（节点）组合成有向图，按照每个节点返回的
Action 决定下一个节点，并在整个运行过程中传递同一个可变的 Shared
上下文。Flow 本身也是节点，可以嵌套在更大的 Flow 中。

# 核心接口与类型

  - Shared             — 贯穿一次运行的键值存储，节点之间唯一的数据通道
  - Action / Params    — 选择后继的标签；节点的小型参数集
  - Vertex             — 可连边的图顶点（Then / On(action).Then）
  - Runnable           — 同步执行接口 Run(ctx, shared, params)
  - AsyncRunnable      — 异步执行接口 RunAsync(ctx, shared, params)
  - Handler            — prepare / execute / finalize 三阶段处理器
  - Node / BatchNode   — 同步节点与顺序批处理节点
  - Flow / BatchFlow   — 同步编排器与按参数集重复遍历的批处理编排器
  - AsyncNode / AsyncBatchNode / AsyncParallelBatchNode
  - AsyncFlow / AsyncBatchFlow / AsyncParallelBatchFlow
  - Scheduler          — 单令牌协作式调度器（Suspend / Sleep / Spawn / Future）

# 执行模型

  - prepare 只读 Shared；execute 只能看到 prepare 的结果并可重试；
    finalize 是唯一允许写 Shared 的阶段
  - 空 Action 等同于 DefaultAction；没有匹配边的显式 Action 结束运行，
    不回退到默认边，并以 Warn 日志和 flow_terminated 事件报告
  - 每次运行的参数通过 Run 显式传入，节点本身在运行中不被修改，
    环形图中的多次访问之间不会串参
  - 异步节点只在持有调度令牌时运行，任意时刻最多一个节点的代码处于活动状态；
    并行批处理在 finalize 之前全部汇合，结果顺序与输入顺序一致
  - 异步节点放入同步 Flow 会在任何节点运行之前以 INCOMPATIBLE_NODE 拒绝

# 主要能力

  - 重试：固定间隔、指数退避、抖动；Permanent 跳过剩余重试；可选 Fallback
  - 取消：context 在每一步、重试等待和挂起点检查，取消不会被 Fallback 吸收
  - 限制：WithMaxSteps 防止失控循环；WithConcurrency / WithRateLimiter 约束并行批处理
  - 事件：WithEmitter 订阅运行事件；ExecutionHistory 记录完整执行路径
  - 追踪：每次节点与 Flow 调用都会创建 OpenTelemetry span
*/
package workflow
