// Package xwrap 把 span、HTTP 指标与请求日志组合成一个入站请求装饰器。
//
// 每次调用：
//
//  1. 路径命中 SkipPaths 前缀时直接调用 handler，不产生任何遥测
//  2. 计时开始，http.server.active_requests 按 route +1
//  3. 记录请求日志（方法、URL、User-Agent、客户端地址）
//  4. 开启 server span（携带远端 traceparent 时成为其子节点）
//  5. 以 span 为活跃工作单元调用 handler
//  6. 成功：按状态码设置 span 状态（>=400 为 error，消息 "HTTP <code>"），
//     记录请求数、耗时与错误数，按状态码级别记录响应日志
//  7. panic：记录异常，以 500 记录指标与 error 日志，然后原样重新 panic
//  8. 所有路径上关闭 span 并把 active_requests -1
//
// [Instrumenter.WrapE] 面向返回 error 的 handler；[Instrumenter.WrapLight] 只记录
// 请求数与耗时，适合健康检查等高频低价值端点；[Instrumenter.UnaryServerInterceptor]
// 对 gRPC 一元调用执行相同协议。
//
// 错误计数包含 4xx 与 5xx，需要区分时按 http.status_class 标签过滤。
package xwrap
