// Copyright (c) NodeFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 NodeFlow 命令行程序入口。

# 概述

cmd/nodeflow 运行内置的问答工作流（decide → search → answer），
用于演示引擎与周边基础设施的组装方式：YAML/环境变量配置、
结构化日志（zap）、Prometheus 指标、OpenTelemetry 导出以及
可选的共享上下文快照存储。

# 主要能力

  - 子命令：run（运行问答流程）、config（打印生效配置）、version
  - run --async 使用异步流程，检索在协作式调度器下并行执行
  - run --history 以 JSON 输出完整执行历史
  - 启用快照时，问答流程作为子 Flow 嵌入外层 Flow，done 之后接快照节点
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
