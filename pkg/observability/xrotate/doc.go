// Package xrotate 提供日志文件轮转，作为本地日志与控制台导出器的文件输出。
//
// [NewLumberjack] 基于 lumberjack v2 按大小轮转，备份按数量与天数清理。
// lumberjack 以 0600 创建文件，需要其他权限时使用 [WithFileMode]。
package xrotate
