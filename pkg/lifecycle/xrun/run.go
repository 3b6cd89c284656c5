package xrun

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"

	"golang.org/x/sync/errgroup"
)

// Service 是一个长期运行的任务：阻塞直到 ctx 取消或出错。
type Service interface {
	Run(ctx context.Context) error
}

// ServiceFunc 把函数适配为 Service。
type ServiceFunc func(ctx context.Context) error

// Run 实现 Service。
func (f ServiceFunc) Run(ctx context.Context) error {
	return f(ctx)
}

type namedService struct {
	name string
	svc  Service
}

func (n namedService) Run(ctx context.Context) error {
	return n.svc.Run(ctx)
}

// Named 为服务附加名称，用于生命周期日志。
func Named(name string, svc Service) Service {
	return namedService{name: name, svc: svc}
}

func nameOf(svc Service) string {
	if n, ok := svc.(namedService); ok {
		return n.name
	}
	return "service"
}

// Run 并发运行 services，直到全部返回。
//
// 任一服务返回非 nil 错误、ctx 取消或收到信号都会取消其余服务的 ctx。
// 返回第一个失败服务的错误；信号退出返回 *SignalError；ctx 取消且无错误时返回 nil。
// 服务在取消后返回的 context.Canceled 不视为错误。
func Run(ctx context.Context, opts []Option, services ...Service) error {
	if ctx == nil {
		ctx = context.Background()
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	causeCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	g, gctx := errgroup.WithContext(causeCtx)

	sigDone := make(chan struct{})
	if o.noSig {
		close(sigDone)
	} else {
		go func() {
			defer close(sigDone)
			waitSignal(gctx, o, cancel)
		}()
	}

	for _, svc := range services {
		if svc == nil {
			g.Go(func() error { return ErrNilService })
			continue
		}
		name := nameOf(svc)
		g.Go(func() error {
			o.logger.Debug("service starting", slog.String("service", name))
			err := svc.Run(gctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				o.logger.Warn("service exited with error", slog.String("service", name), slog.Any("error", err))
				return err
			}
			o.logger.Debug("service stopped", slog.String("service", name))
			return nil
		})
	}

	err := g.Wait()
	// 服务全部返回后停止信号监听；已记录的信号原因不受影响
	cancel(nil)
	<-sigDone
	if err != nil {
		return err
	}
	var sigErr *SignalError
	if cause := context.Cause(causeCtx); errors.As(cause, &sigErr) {
		return sigErr
	}
	return nil
}

func waitSignal(ctx context.Context, o *options, cancel context.CancelCauseFunc) {
	ch := o.sigCh
	if ch == nil {
		osCh := make(chan os.Signal, 1)
		signal.Notify(osCh, o.signals...)
		defer signal.Stop(osCh)
		ch = osCh
	}
	select {
	case <-ctx.Done():
	case sig := <-ch:
		o.logger.Info("received signal", slog.String("signal", sig.String()))
		cancel(&SignalError{Signal: sig})
	}
}
