package middlewares

import (
	"github.com/google/uuid"

	"github.com/dmitrymomot/anvil/internal"
	"github.com/dmitrymomot/anvil/pkg/container"
)

// RequestIDHeader is the header carrying the request correlation ID.
const RequestIDHeader = "X-Request-ID"

// RequestID ensures every request carries a correlation ID: an inbound
// X-Request-ID is kept, otherwise a UUID is generated. The ID is echoed on
// the response and visible to downstream middleware through the request
// header.
func RequestID() *internal.MiddlewareRef {
	return internal.NewMiddlewareRef("request-id", container.Singleton,
		func(*container.Container) (internal.Middleware, error) {
			return internal.MiddlewareFunc(requestID), nil
		})
}

func requestID(r *internal.Request, next internal.HandlerFunc) (*internal.Response, error) {
	id := r.Header(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
		raw := r.Raw().Clone(r.Context())
		raw.Header.Set(RequestIDHeader, id)
		r = r.WithRaw(raw)
	}

	resp, err := next(r)
	if resp != nil {
		resp.SetHeader(RequestIDHeader, id)
	}
	return resp, err
}
