// xteld 是遥测接入服务：接收客户端事件批次，把它们转成 span、指标与日志，
// 并通过与服务端相同的导出管线投递出去。
//
// 用法:
//
//	xteld [全局选项] <命令> [命令参数]
//
// 命令:
//
//	serve    启动 HTTP 服务（/v1/events、/healthz、/debug/telemetry）
//	check    校验配置文件并输出合并默认值后的完整配置
//
// 退出码:
//
//	0: 正常退出（包括收到 SIGINT/SIGTERM 后的优雅关闭）
//	1: 运行失败
//	2: 参数或配置错误
//
// 示例:
//
//	xteld serve --config /etc/xteld/xtel.yaml --addr :8080
//	xteld check --config xtel.yaml
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xtel/pkg/lifecycle/xrun"
	"github.com/omeyang/xtel/pkg/observability/xtel"
)

// 版本信息，可通过 -ldflags "-X main.Version=..." 注入。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run(context.Background(), os.Args))
}

func createApp() *cli.Command {
	return &cli.Command{
		Name:    "xteld",
		Usage:   "遥测事件接入服务",
		Version: fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		Commands: []*cli.Command{
			createServeCommand(),
			createCheckCommand(),
		},
		DefaultCommand: "help",
		// 退出码由 run 统一映射
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}
}

func run(ctx context.Context, args []string) int {
	if err := createApp().Run(ctx, args); err != nil {
		return exitCode(err)
	}
	return 0
}

func exitCode(err error) int {
	var sigErr *xrun.SignalError
	switch {
	case err == nil, errors.As(err, &sigErr):
		return 0
	case errors.Is(err, xtel.ErrInvalidConfig), errors.Is(err, errUsage):
		fmt.Fprintf(os.Stderr, "配置错误: %v\n", err)
		return 2
	default:
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		return 1
	}
}
