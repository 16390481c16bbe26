/*
Package snapshot 提供把共享上下文持久化到外部存储的协作节点。

# 概述

快照节点在 prepare 阶段复制指定的共享上下文键，在 execute 阶段
编码并保存（可按节点重试策略重试），在 finalize 阶段把快照 ID
写入 snapshot_id。它保存的是运行产物，不是引擎的中间状态。

# 存储实现

  - RedisStore：go-redis，支持键前缀与过期时间
  - SQLStore：GORM，支持 sqlite（glebarez/sqlite）与 postgres
  - Observe：为任意 Store 附加操作观测（指标采集）
*/
package snapshot
