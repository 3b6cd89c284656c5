// Package observability 汇集请求级遥测的各个组成部分。
//
//   - xtrace: span 生命周期、W3C 传播（HTTP/gRPC 入站与出站）
//   - xsampling: 根节点按比率、子节点继承父节点的采样
//   - xmetrics: 按名称复用的 counter/histogram/up-down counter 注册表
//   - xlog: 自动携带 trace_id/span_id 的 slog 日志
//   - xexport: 批量/逐条导出管线，span 与日志共用
//   - xwrap: HTTP handler 与 gRPC 拦截器的请求包装
//   - xingest: 客户端事件接入端点
//   - xtel: 按配置组装上述组件并负责关闭
//   - xattr, xrotate: 属性类型与日志文件轮转
//
// 遥测故障不会传递给业务代码：导出失败只计数并告警，队列满时丢弃。
package observability
