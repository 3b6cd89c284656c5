// Package xtrace 管理 span 的生命周期与跨服务传播。
//
// # 生命周期
//
// span 只有两个状态：open → closed。[Span.End] 幂等，
// 多个退出路径重复调用不会重复导出。
//
// [Tracer.Run] / [RunValue] 以作用域方式运行函数：
//
//   - fn 返回 error：记录异常、状态置为 error（消息为 err.Error()），然后关闭
//   - fn 正常返回：状态置为 ok，然后关闭
//   - fn panic：视同抛出错误，记录后关闭 span，再原样 panic
//
// [Tracer.Go] 是异步形式：fn 在新 goroutine 中运行，关闭语义相同，
// 结果（包括 panic 转换成的 [ErrPanic]）从返回的 channel 中读取一次。
//
// # 活跃 span
//
// 父子关系来自 context：Start 从 ctx 读取当前工作单元（见 xctx），
// 新 span 继承其 trace_id 并分配新的 span_id。
// [SetAttributes] / [AddEvent] / [RecordException] 作用于 ctx 中的活跃 span，
// 没有活跃 span 时静默忽略。
//
// # 传播
//
// 使用 W3C Trace Context（traceparent / tracestate）与 Baggage：
//
//   - HTTP：[ExtractHTTP] / [InjectHTTP]，客户端使用 [Tracer.Transport]
//   - gRPC：[ExtractGRPC] / [InjectGRPC]，客户端使用 [Tracer.UnaryClientInterceptor]
//
// 业务层 request_id 通过 X-Request-ID 头（gRPC 为 x-request-id）一并传播。
package xtrace
