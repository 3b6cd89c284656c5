// Package xattr 定义 span、指标与日志共用的标量属性模型。
//
// 属性值只允许标量：string / bool / 整数 / 浮点 / time.Duration。
// 其他类型在转换为 OTel 属性时退化为 fmt.Sprint 字符串，不会报错。
//
// 同一 key 重复出现时后写者生效（last-write-wins），
// 同时保留 key 第一次出现的位置，见 [Dedup]。
//
// [Fingerprint] 为属性集合计算与顺序无关的 64 位指纹（xxhash），
// 供指标基数监控使用。
package xattr
