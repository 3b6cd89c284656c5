// Package xmetrics 提供进程级指标注册表。
//
// # 注册表
//
// [Registry] 在启动时显式构造一次，再注入到需要记录指标的组件中。
// [Registry.GetOrCreate] 按名称记忆化：同名 instrument 只创建一次，
// 描述、单位和直方图桶边界以第一次注册为准。
//
// # 三种 instrument
//
//   - Counter：只接受非负增量，负值被拒绝并计入 [Registry.Rejected]
//   - UpDownCounter：接受任意符号
//   - Histogram：接受任意值，导出时按创建时的桶边界分桶
//
// # 禁用
//
// [Registry.Disable] 之后所有记录都变成空操作，不返回错误。
//
// # 基数监控
//
// 每个 instrument 用一个有界 LRU 跟踪最近出现的属性集合指纹（xxhash）。
// 不同属性集合超过上限时记录一次告警，提示使用了高基数标签
// （如原始用户 ID）。度量值本身从不丢弃。
//
// # 使用示例
//
//	reg, _ := xmetrics.NewRegistry(xmetrics.WithMeterProvider(mp))
//	hits, _ := reg.Counter("cache.hits", xmetrics.InstrumentOptions{Unit: "1"})
//	reg.Record(ctx, hits, 1, xattr.String("cache", "users"))
package xmetrics
