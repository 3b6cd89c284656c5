// Package context 存放请求上下文相关的子包。
//
//   - xctx: 当前工作单元（trace/span）与 request id 的注入、读取和作用域执行
//
// 上下文信息只通过 context.Context 传递，并发请求之间互不可见。
package context
