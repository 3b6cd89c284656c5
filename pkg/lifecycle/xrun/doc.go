// Package xrun 协调进程内多个长期运行的服务：任一服务失败或收到退出信号时，
// 所有服务的 ctx 被取消，Run 等待它们全部返回。
//
// 服务按启动顺序注册，常见组合是 HTTPServer + Watch 类后台任务 + Shutdown 钩子：
//
//	err := xrun.Run(ctx, []xrun.Option{xrun.WithLogger(logger)},
//	    xrun.Named("http", xrun.HTTPServer(srv, 10*time.Second)),
//	    xrun.Named("telemetry", xrun.Shutdown(tel.Shutdown, 5*time.Second)),
//	)
//	if errors.Is(err, xrun.ErrSignal) {
//	    // 正常退出
//	}
//
// Shutdown 返回的服务在 ctx 取消后才执行清理函数，并为其提供独立的超时 ctx，
// 用于在进程退出前限时刷新遥测数据。
package xrun
