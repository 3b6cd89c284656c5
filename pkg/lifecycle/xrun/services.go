package xrun

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// HTTPServerInterface 是 HTTPServer 需要的最小接口，*http.Server 满足它。
type HTTPServerInterface interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServer 运行 srv，ctx 取消后在 timeout 内优雅关闭（timeout <= 0 表示不限时）。
func HTTPServer(srv HTTPServerInterface, timeout time.Duration) Service {
	return ServiceFunc(func(ctx context.Context) error {
		if srv == nil {
			return ErrNilServer
		}
		serveErr := make(chan error, 1)
		go func() {
			serveErr <- srv.ListenAndServe()
		}()

		select {
		case err := <-serveErr:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
		}

		sctx, cancel := boundedContext(ctx, timeout)
		defer cancel()
		err := srv.Shutdown(sctx)
		if serr := <-serveErr; serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			err = errors.Join(err, serr)
		}
		return err
	})
}

// Shutdown 返回一个等待 ctx 取消、随后调用 fn 的服务。
//
// fn 收到的 ctx 与触发取消的 ctx 脱钩，并带有 timeout 截止时间（<= 0 表示不限时）；
// fn 超时返回时错误包装 ErrShutdownTimeout。
func Shutdown(fn func(ctx context.Context) error, timeout time.Duration) Service {
	return ServiceFunc(func(ctx context.Context) error {
		if fn == nil {
			return ErrNilService
		}
		<-ctx.Done()
		sctx, cancel := boundedContext(ctx, timeout)
		defer cancel()
		err := fn(sctx)
		if err != nil && errors.Is(sctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", ErrShutdownTimeout, err)
		}
		return err
	})
}

// Ticker 每隔 interval 调用一次 fn，直到 ctx 取消或 fn 返回错误。
func Ticker(interval time.Duration, fn func(ctx context.Context) error) Service {
	return ServiceFunc(func(ctx context.Context) error {
		if interval <= 0 {
			return ErrInvalidInterval
		}
		if fn == nil {
			return ErrNilService
		}
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-t.C:
				if err := fn(ctx); err != nil {
					return err
				}
			}
		}
	})
}

func boundedContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	base := context.WithoutCancel(parent)
	if timeout <= 0 {
		return context.WithCancel(base)
	}
	return context.WithTimeout(base, timeout)
}
