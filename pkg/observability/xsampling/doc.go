// Package xsampling 提供链路采样策略。
//
// [RateSampler] 按固定比率随机决定，比率可在运行时通过 SetRate 调整。
//
// [ParentRatio] 把 RateSampler 适配为 OTel 的 sdktrace.Sampler：
//
//   - 根 span：均匀随机数 < rate 时采样
//   - 子 span：无条件继承父 span 的 sampled 标志（本地或远端父节点均如此）
//
// 采样决策只在 trace 根节点做一次，之后调整比率只影响新的根 span。
// 所有采样器都是并发安全的。
package xsampling
