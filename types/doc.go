// Copyright (c) NodeFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 nodeflow 引擎的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 workflow、nodes、config
等上层模块提供统一的错误码与 Context 传播约定，以避免循环依赖。

# 核心类型

  - Error / ErrorCode — 结构化错误体系，含节点名称、尝试次数、Retryable 标记
  - 生命周期错误码：PREPARATION_FAILED / EXECUTION_FAILED / FINALIZE_FAILED
  - 图错误码：INCOMPATIBLE_NODE / INVALID_GRAPH / MAX_STEPS_EXCEEDED
  - 运行控制：CANCELLED

# 主要能力

  - Context 传播：WithTraceID / WithRunID
  - 错误工具链：GetErrorCode / IsCode / IsRetryable（基于 errors.As，可穿透包装）
*/
package types
