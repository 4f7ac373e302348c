package internal

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/dmitrymomot/anvil/pkg/container"
)

// Request is the framework view of one inbound HTTP request. It wraps the
// raw *http.Request together with the matched route, its captured
// parameters, and the request-scoped container view.
//
// Requests are values handed down the middleware pipeline; a middleware
// that wants downstream handlers to see different request data passes a
// rewritten copy (see WithRaw) to next.
type Request struct {
	raw    *http.Request
	route  *RouteDefinition
	params *Params
	scope  *container.Container
	logger *slog.Logger
}

// NewRequest wraps a raw request for dispatch. Used by the application
// orchestrator and by tests that drive middleware or handlers directly.
func NewRequest(raw *http.Request) *Request {
	return &Request{
		raw:    raw,
		params: newParams(nil, nil, false),
		logger: slog.New(slog.DiscardHandler),
	}
}

// Raw returns the underlying *http.Request.
func (r *Request) Raw() *http.Request {
	return r.raw
}

// Context returns the raw request's context.
func (r *Request) Context() context.Context {
	return r.raw.Context()
}

// Method returns the HTTP method.
func (r *Request) Method() string {
	return r.raw.Method
}

// Path returns the URL path.
func (r *Request) Path() string {
	return r.raw.URL.Path
}

// URL returns the request URL.
func (r *Request) URL() *url.URL {
	return r.raw.URL
}

// Host returns the request host, port included if present.
func (r *Request) Host() string {
	return r.raw.Host
}

// Header returns the first value of the named request header.
func (r *Request) Header(name string) string {
	return r.raw.Header.Get(name)
}

// Query returns the first value of the named query parameter.
func (r *Request) Query(name string) string {
	return r.raw.URL.Query().Get(name)
}

// Params returns the route parameters captured by the matcher.
func (r *Request) Params() *Params {
	return r.params
}

// Route returns the matched route definition, nil outside dispatch.
func (r *Request) Route() *RouteDefinition {
	return r.route
}

// Scope returns the request-scoped container view. Handlers resolve
// request services (cookies, headers, integration context) through it.
func (r *Request) Scope() *container.Container {
	return r.scope
}

// Logger returns the request logger.
func (r *Request) Logger() *slog.Logger {
	return r.logger
}

// WithRaw returns a copy of the request carrying a different raw
// *http.Request. Route, params, scope, and logger are preserved.
// Middleware use this to rewrite the request seen downstream.
func (r *Request) WithRaw(raw *http.Request) *Request {
	clone := *r
	clone.raw = raw
	return &clone
}
