// Package xlog 基于 log/slog 的关联日志库。
//
// 每条日志自动带上 context 中活跃工作单元的 trace_id 与 span_id；
// 没有活跃工作单元时写入全零哨兵，字段从不缺失。
//
// # 创建 Logger
//
//	logger, cleanup, err := xlog.New().
//		SetLevel(xlog.LevelInfo).
//		SetFormat("json").
//		SetService("checkout", "1.4.0", "prod").
//		SetExporter(logProcessor).
//		Build()
//	defer cleanup()
//
// handler 链为 enrich → export → text/json。[Builder.SetExporter] 把每条记录复制为
// [xexport.LogRecord] 交给日志导出管道（批量或即时），本地输出不受影响。
//
// # 级别
//
// LevelDebug、LevelInfo、LevelWarn、LevelError、LevelFatal，对应 OTel 严重级别
// 5/9/13/17/21。Fatal 只记录日志，是否退出由宿主决定。
//
// # 子 Logger
//
// [Logger.With] 返回合并了额外属性的子 Logger，父 Logger 不变；
// 子 Logger 共享父级的动态级别。
//
// # 辅助函数
//
// [HTTPRequest]、[HTTPResponse]、[SlowOperation]、[Security]、[Audit] 以统一字段
// 记录常见事件，全部委托到 [Logger.Log]。结构化载荷使用 [Fields] 或 [LogPayload]。
//
// # 内部错误
//
// handler 写入失败交给 [Builder.SetOnError] 回调，回调受重入保护；
// 日志导出管道的告警走独立的 stderr logger，不会回到本 Logger。
package xlog
