package middlewares

import (
	"fmt"
	"runtime"

	"github.com/dmitrymomot/anvil/internal"
	"github.com/dmitrymomot/anvil/pkg/container"
)

// DefaultStackSize is the maximum captured stack trace size in bytes.
const DefaultStackSize = 4096

// PanicError carries a recovered panic value and its stack trace through
// the error path, so the application error handler decides the response.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// RecoverConfig configures the recover middleware.
type RecoverConfig struct {
	// StackSize caps the captured stack trace. Defaults to 4096.
	StackSize int

	// DisableStack omits the stack trace from logs and the error.
	DisableStack bool
}

// RecoverOption configures RecoverConfig.
type RecoverOption func(*RecoverConfig)

// WithStackSize sets the maximum stack trace size.
func WithStackSize(size int) RecoverOption {
	return func(cfg *RecoverConfig) {
		if size > 0 {
			cfg.StackSize = size
		}
	}
}

// WithoutStack disables stack trace capture.
func WithoutStack() RecoverOption {
	return func(cfg *RecoverConfig) {
		cfg.DisableStack = true
	}
}

// Recover converts panics in downstream middleware and handlers into a
// *PanicError, logged and routed through the normal error path.
func Recover(opts ...RecoverOption) *internal.MiddlewareRef {
	cfg := &RecoverConfig{StackSize: DefaultStackSize}
	for _, opt := range opts {
		opt(cfg)
	}

	return internal.NewMiddlewareRef("recover", container.Singleton,
		func(*container.Container) (internal.Middleware, error) {
			return &recoverer{cfg: cfg}, nil
		})
}

type recoverer struct {
	cfg *RecoverConfig
}

func (m *recoverer) Handle(r *internal.Request, next internal.HandlerFunc) (resp *internal.Response, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			var stack []byte
			if !m.cfg.DisableStack {
				stack = make([]byte, m.cfg.StackSize)
				stack = stack[:runtime.Stack(stack, false)]
			}

			if m.cfg.DisableStack {
				r.Logger().ErrorContext(r.Context(), "panic recovered", "panic", rec)
			} else {
				r.Logger().ErrorContext(r.Context(), "panic recovered", "panic", rec, "stack", string(stack))
			}

			resp = nil
			err = &PanicError{Value: rec, Stack: stack}
		}
	}()

	return next(r)
}
