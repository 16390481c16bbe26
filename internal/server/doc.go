// 版权所有 2024 NodeFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 管理 CLI 暴露 Prometheus 指标的 HTTP 服务器生命周期。

# 核心类型

  - Manager：封装 net/http.Server，提供非阻塞 Start、带超时的
    Shutdown、异步错误通道 Errors 以及 Addr/IsRunning 查询。
  - Config：监听地址、读写超时与优雅关闭超时。

# 主要能力

  - NewMetricsServer 按 config.MetricsConfig 挂载 promhttp 与 /healthz。
  - 监听 ":0" 时 Addr 返回实际分配的端口。
*/
package server
