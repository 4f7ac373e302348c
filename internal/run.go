package internal

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Server hardening defaults.
const (
	defaultReadTimeout       = 30 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	defaultReadHeaderTimeout = 10 * time.Second
	defaultMaxHeaderBytes    = 1 << 20
	defaultShutdownTimeout   = 30 * time.Second
)

// RunOption configures the server runtime.
type RunOption func(*runConfig)

type runConfig struct {
	address         string
	shutdownTimeout time.Duration
	startupHooks    []func(context.Context) error
	shutdownHooks   []func(context.Context) error
	baseCtx         context.Context
}

// Address sets the listen address. Defaults to ":8080".
func Address(addr string) RunOption {
	return func(cfg *runConfig) {
		if addr != "" {
			cfg.address = addr
		}
	}
}

// ShutdownTimeout bounds graceful shutdown, covering both in-flight
// requests and shutdown hooks. Defaults to 30 seconds.
func ShutdownTimeout(d time.Duration) RunOption {
	return func(cfg *runConfig) {
		if d > 0 {
			cfg.shutdownTimeout = d
		}
	}
}

// StartupHook registers a function to run before the server accepts
// requests. A failing hook aborts startup.
func StartupHook(fn func(context.Context) error) RunOption {
	return func(cfg *runConfig) {
		if fn != nil {
			cfg.startupHooks = append(cfg.startupHooks, fn)
		}
	}
}

// ShutdownHook registers a cleanup function run during graceful shutdown,
// after the listener stops. Hooks run in registration order; each receives
// a context bounded by the shutdown timeout.
func ShutdownHook(fn func(context.Context) error) RunOption {
	return func(cfg *runConfig) {
		if fn != nil {
			cfg.shutdownHooks = append(cfg.shutdownHooks, fn)
		}
	}
}

// BaseContext sets the context signal handling derives from. Cancelling it
// triggers shutdown; useful in tests and supervised deployments.
func BaseContext(ctx context.Context) RunOption {
	return func(cfg *runConfig) {
		if ctx != nil {
			cfg.baseCtx = ctx
		}
	}
}

// Run serves the application over HTTP and blocks until SIGINT/SIGTERM or
// base context cancellation, then shuts down gracefully.
func (app *App) Run(opts ...RunOption) error {
	cfg := &runConfig{
		address:         ":8080",
		shutdownTimeout: defaultShutdownTimeout,
		baseCtx:         context.Background(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	ctx, cancel := signal.NotifyContext(cfg.baseCtx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	for _, hook := range cfg.startupHooks {
		if err := hook(ctx); err != nil {
			return err
		}
	}

	server := &http.Server{
		Addr:              cfg.address,
		Handler:           app,
		ReadTimeout:       defaultReadTimeout,
		WriteTimeout:      defaultWriteTimeout,
		IdleTimeout:       defaultIdleTimeout,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		MaxHeaderBytes:    defaultMaxHeaderBytes,
	}

	// Listen before announcing so the logged address is the bound one.
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info("server starting", slog.String("address", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	app.logger.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.shutdownTimeout)
	defer shutdownCancel()

	var errs []error
	if err := server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	for _, hook := range cfg.shutdownHooks {
		if err := hook(shutdownCtx); err != nil {
			errs = append(errs, err)
			app.logger.Error("shutdown hook failed", slog.Any("error", err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	app.logger.Info("shutdown completed")
	return nil
}
