// Package config 提供 NodeFlow 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量（NODEFLOW_ 前缀）的顺序加载，
// 覆盖引擎默认值、日志、遥测、Prometheus 指标以及快照存储。
// EngineConfig.Options 把引擎默认值转换为 workflow 选项。
package config
