package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"wallet-send/pkg/logger"
)

// Runner 随进程启动的后台组件 (outbox relay、MQ 消费者等)，Run 阻塞直到 ctx 取消
type Runner interface {
	Run(ctx context.Context) error
}

// RunFunc 把函数适配为 Runner
type RunFunc func(ctx context.Context) error

func (f RunFunc) Run(ctx context.Context) error { return f(ctx) }

type Config struct {
	HttpPort        string
	ShutdownTimeout time.Duration
}

// App 管理 HTTP 服务与后台组件的生命周期
type App struct {
	httpServer *http.Server
	runners    []Runner
	closers    []io.Closer
	timeout    time.Duration
}

// New handler 为 nil 时不启动 HTTP (纯 worker 进程)
func New(cfg Config, handler http.Handler) *App {
	a := &App{timeout: cfg.ShutdownTimeout}
	if a.timeout <= 0 {
		a.timeout = 5 * time.Second
	}
	if handler != nil {
		a.httpServer = &http.Server{
			Addr:              ":" + cfg.HttpPort,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}
	return a
}

// Go 注册后台组件
func (a *App) Go(r Runner) {
	a.runners = append(a.runners, r)
}

// OnClose 注册退出时关闭的资源，按注册的逆序关闭
func (a *App) OnClose(c io.Closer) {
	a.closers = append(a.closers, c)
}

// Run 阻塞直到 ctx 取消或任一组件失败，然后优雅退出
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if a.httpServer != nil {
		g.Go(func() error {
			logger.Info("Starting HTTP Server", zap.String("addr", a.httpServer.Addr))
			if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.timeout)
			defer cancel()
			logger.Info("Shutting down HTTP server...")
			return a.httpServer.Shutdown(shutdownCtx)
		})
	}
	for _, r := range a.runners {
		r := r
		g.Go(func() error { return r.Run(ctx) })
	}

	err := g.Wait()
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.closers[i].Close())
	}
	if err != nil {
		logger.Error("Server exited with error", zap.Error(err))
		return err
	}
	logger.Info("Server exited properly")
	return nil
}
