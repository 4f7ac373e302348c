package middlewares

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/anvil/internal"
	"github.com/dmitrymomot/anvil/pkg/container"
)

// Logging logs one line per request with method, path, status, and
// duration. Errors escaping the pipeline are logged at error level and
// propagated unchanged.
func Logging() *internal.MiddlewareRef {
	return internal.NewMiddlewareRef("logging", container.Singleton,
		func(*container.Container) (internal.Middleware, error) {
			return internal.MiddlewareFunc(logging), nil
		})
}

func logging(r *internal.Request, next internal.HandlerFunc) (*internal.Response, error) {
	start := time.Now()
	resp, err := next(r)
	elapsed := time.Since(start)

	attrs := []any{
		slog.String("method", r.Method()),
		slog.String("path", r.Path()),
		slog.Duration("duration", elapsed),
	}
	if id := r.Header(RequestIDHeader); id != "" {
		attrs = append(attrs, slog.String("request_id", id))
	}

	switch {
	case err != nil:
		attrs = append(attrs, slog.String("error", err.Error()))
		r.Logger().ErrorContext(r.Context(), "request failed", attrs...)
	default:
		status := 0
		if resp != nil {
			status = resp.Status
		}
		attrs = append(attrs, slog.Int("status", status))
		r.Logger().InfoContext(r.Context(), "request handled", attrs...)
	}
	return resp, err
}
