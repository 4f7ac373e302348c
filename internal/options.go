package internal

import (
	"log/slog"

	"github.com/dmitrymomot/anvil/pkg/container"
	"github.com/dmitrymomot/anvil/pkg/cookie"
)

// ErrorHandler turns an error escaping the pipeline into a response.
// It must not fail; returning nil falls back to a plain 500.
type ErrorHandler func(r *Request, err error) *Response

type appConfig struct {
	routes     []RouteNode
	middleware []*MiddlewareRef
	patterns   map[string]string
	providers  []provider

	logger *slog.Logger
	jar    *cookie.Jar

	errorHandler     ErrorHandler
	notFound         Handler
	methodNotAllowed Handler

	strictParams bool
	urlOpts      []URLGeneratorOption
}

type provider struct {
	key       any
	lifecycle container.Lifecycle
	factory   container.Factory
}

// AppOption configures an App at construction time.
type AppOption func(*appConfig)

// WithRoutes adds routes and groups to the application. May be repeated;
// lists concatenate in order.
func WithRoutes(nodes ...RouteNode) AppOption {
	return func(cfg *appConfig) {
		cfg.routes = append(cfg.routes, nodes...)
	}
}

// WithMiddleware adds application-wide middleware, run before all group
// and route middleware on every dispatched request.
func WithMiddleware(refs ...*MiddlewareRef) AppOption {
	return func(cfg *appConfig) {
		cfg.middleware = append(cfg.middleware, refs...)
	}
}

// WithPattern registers a global constraint applied to every captured
// parameter of the given name that has no route-level constraint.
func WithPattern(name, pattern string) AppOption {
	return func(cfg *appConfig) {
		cfg.patterns[name] = pattern
	}
}

// WithProvider binds a service into the application container.
// Handlers and middleware resolve it through the request scope.
func WithProvider(key any, lifecycle container.Lifecycle, factory container.Factory) AppOption {
	return func(cfg *appConfig) {
		cfg.providers = append(cfg.providers, provider{key: key, lifecycle: lifecycle, factory: factory})
	}
}

// WithLogger sets the application logger. Defaults to a no-op logger.
func WithLogger(log *slog.Logger) AppOption {
	return func(cfg *appConfig) {
		if log != nil {
			cfg.logger = log
		}
	}
}

// WithCookieJar sets the cookie jar backing the integration context.
func WithCookieJar(jar *cookie.Jar) AppOption {
	return func(cfg *appConfig) {
		if jar != nil {
			cfg.jar = jar
		}
	}
}

// WithErrorHandler replaces the default 500 error response.
func WithErrorHandler(fn ErrorHandler) AppOption {
	return func(cfg *appConfig) {
		if fn != nil {
			cfg.errorHandler = fn
		}
	}
}

// WithNotFoundHandler replaces the default 404 response. The handler runs
// inside a request scope with application middleware applied.
func WithNotFoundHandler(h Handler) AppOption {
	return func(cfg *appConfig) {
		if h != nil {
			cfg.notFound = h
		}
	}
}

// WithMethodNotAllowedHandler replaces the default 405 response. The Allow
// header is set before the handler runs.
func WithMethodNotAllowedHandler(h Handler) AppOption {
	return func(cfg *appConfig) {
		if h != nil {
			cfg.methodNotAllowed = h
		}
	}
}

// WithDevelopmentMode enables strict parameter access: reading a route
// parameter the matched route does not declare panics instead of returning
// "". Keep this off in production.
func WithDevelopmentMode() AppOption {
	return func(cfg *appConfig) {
		cfg.strictParams = true
	}
}

// WithURLDefaults configures the URL generator (host and protocol
// overrides and defaults).
func WithURLDefaults(opts ...URLGeneratorOption) AppOption {
	return func(cfg *appConfig) {
		cfg.urlOpts = append(cfg.urlOpts, opts...)
	}
}
