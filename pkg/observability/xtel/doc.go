// Package xtel 把追踪、指标、日志三条信号组装成一个随进程启停的遥测实例。
//
// New 根据 Config 创建：
//
//   - TracerProvider：父比例采样（xsampling.ParentRatio），span 经 xexport 管线
//     分发到控制台（逐条）与 OTLP/HTTP（批量）
//   - MeterProvider：OTLP/HTTP 周期导出，外加 xmetrics 注册表与基数告警
//   - Logger：xlog 文本/JSON 输出（可写入轮转文件），同时把记录送入日志管线，
//     由 HTTP 导出器批量投递到事件接入端点
//
// Shutdown 在限定时间内依次关闭三条管线，超时后剩余数据被丢弃并记录告警；
// Apply 支持运行时调整采样率与日志级别，其余配置需要重启生效。
package xtel
