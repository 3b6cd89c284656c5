package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xtel/pkg/config/xconf"
	"github.com/omeyang/xtel/pkg/lifecycle/xrun"
	"github.com/omeyang/xtel/pkg/observability/xtel"
)

var errUsage = errors.New("xteld: usage")

const (
	defaultAddr         = ":8080"
	defaultDrainTimeout = 10 * time.Second
)

func createServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "启动事件接入 HTTP 服务",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件路径（yaml/json），为空使用默认配置，变更时自动热更新",
				Sources: cli.EnvVars("XTELD_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "addr",
				Aliases: []string{"a"},
				Usage:   "监听地址",
				Value:   defaultAddr,
				Sources: cli.EnvVars("XTELD_ADDR"),
			},
			&cli.DurationFlag{
				Name:  "drain-timeout",
				Usage: "关闭时等待进行中请求的最长时间",
				Value: defaultDrainTimeout,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return serve(ctx, cmd.String("config"), cmd.String("addr"), cmd.Duration("drain-timeout"))
		},
	}
}

func createCheckCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "校验配置文件并输出合并默认值后的配置",
		ArgsUsage: "<config>",
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("%w: check requires exactly one config path", errUsage)
			}
			_, store, err := xtel.LoadConfig(cmd.Args().First())
			if err != nil {
				return err
			}
			out, err := store.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.Root().Writer.Write(out)
			return err
		},
	}
}

func loadConfig(path string) (xtel.Config, *xconf.Store, error) {
	if path == "" {
		return xtel.DefaultConfig(), nil, nil
	}
	return xtel.LoadConfig(path)
}

func serve(ctx context.Context, path, addr string, drain time.Duration) error {
	cfg, store, err := loadConfig(path)
	if err != nil {
		return err
	}

	internal := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	tel, err := xtel.New(ctx, cfg, xtel.WithSetGlobal(), xtel.WithInternalLogger(internal))
	if err != nil {
		return err
	}

	handler, err := newMux(tel)
	if err != nil {
		_ = tel.Shutdown(ctx)
		return err
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	served := make(chan struct{})
	services := []xrun.Service{
		xrun.Named("http", xrun.ServiceFunc(func(ctx context.Context) error {
			defer close(served)
			return xrun.HTTPServer(srv, drain).Run(ctx)
		})),
		// 遥测最后关闭，保证进行中请求产生的数据能被导出
		xrun.Named("telemetry", xrun.Shutdown(func(ctx context.Context) error {
			select {
			case <-served:
			case <-ctx.Done():
			}
			return tel.Shutdown(ctx)
		}, drain+cfg.ShutdownTimeout)),
	}
	if store != nil {
		services = append(services, xrun.Named("config-watch", xrun.ServiceFunc(func(ctx context.Context) error {
			return store.Watch(ctx, func(s *xconf.Store, err error) {
				applyReload(ctx, tel, s, err)
			})
		})))
	}

	tel.Logger().Info(ctx, "xteld listening", slog.String("addr", addr), slog.String("config", path))
	return xrun.Run(ctx, []xrun.Option{xrun.WithLogger(internal)}, services...)
}

// applyReload 把重载后的配置应用到运行中的遥测实例。失败时保持原配置。
func applyReload(ctx context.Context, tel *xtel.Telemetry, store *xconf.Store, err error) {
	if err == nil {
		var cfg xtel.Config
		if cfg, err = xtel.FromStore(store); err == nil {
			err = tel.Apply(cfg)
		}
	}
	if err != nil {
		tel.Logger().Warn(ctx, "config reload rejected", slog.Any("error", err))
	}
}
