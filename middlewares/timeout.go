package middlewares

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrymomot/anvil/internal"
	"github.com/dmitrymomot/anvil/pkg/container"
)

// ErrTimeout is returned when a request exceeds its deadline.
var ErrTimeout = errors.New("middlewares: request timed out")

// DefaultTimeout is the default request deadline.
const DefaultTimeout = 30 * time.Second

// Timeout bounds downstream execution. The rewritten request context is
// cancelled at the deadline; a handler that overruns is abandoned and the
// request fails with ErrTimeout.
func Timeout(d time.Duration) *internal.MiddlewareRef {
	if d <= 0 {
		d = DefaultTimeout
	}

	return internal.NewMiddlewareRef("timeout", container.Singleton,
		func(*container.Container) (internal.Middleware, error) {
			return &timeout{limit: d}, nil
		})
}

type timeout struct {
	limit time.Duration
}

type timeoutResult struct {
	resp *internal.Response
	err  error
}

func (m *timeout) Handle(r *internal.Request, next internal.HandlerFunc) (*internal.Response, error) {
	ctx, cancel := context.WithTimeout(r.Context(), m.limit)
	defer cancel()

	bounded := r.WithRaw(r.Raw().WithContext(ctx))

	done := make(chan timeoutResult, 1)
	go func() {
		resp, err := next(bounded)
		done <- timeoutResult{resp: resp, err: err}
	}()

	select {
	case res := <-done:
		return res.resp, res.err
	case <-ctx.Done():
		return nil, ErrTimeout
	}
}
