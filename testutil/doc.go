// Copyright 2026 NodeFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 NodeFlow 测试的共享工具和辅助函数。

# 概述

testutil 包为整个项目的单元测试提供统一的辅助能力，
避免各包重复实现相似的测试基础设施。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 记录器: Recorder[T] 并发安全地按顺序记录访问路径或事件
  - 日志辅助: ObservedLogger 捕获 zap 日志条目用于断言
  - 断言工具: AssertJSONEqual / AssertEventuallyTrue
  - 数据工具: MustJSON

# 使用示例

	ctx := testutil.TestContext(t)
	rec := testutil.NewRecorder[string]()
	logger, logs := testutil.ObservedLogger(zap.WarnLevel)
*/
package testutil
