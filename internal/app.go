package internal

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dmitrymomot/anvil/pkg/container"
	"github.com/dmitrymomot/anvil/pkg/cookie"
)

// Container keys for framework services.
type (
	urlGenKey  struct{}
	requestKey struct{}
)

// App is the application orchestrator: it owns the container, compiles the
// route tree into a matcher and URL generator at construction time, and
// dispatches requests through per-request scopes. An App is immutable once
// constructed and safe for concurrent use.
type App struct {
	container *container.Container
	matcher   *Matcher
	urlgen    *URLGenerator
	routes    Routes

	middleware []*MiddlewareRef
	logger     *slog.Logger
	jar        *cookie.Jar

	errorHandler     ErrorHandler
	notFound         Handler
	methodNotAllowed Handler

	strictParams bool
}

// New builds an application. Route definition errors (malformed templates,
// domain conflicts, nil handlers) panic here, during bootstrap, never at
// request time.
func New(opts ...AppOption) *App {
	cfg := &appConfig{
		patterns: make(map[string]string),
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.jar == nil {
		jar, err := cookie.New()
		if err != nil {
			panic(fmt.Errorf("anvil: default cookie jar: %w", err))
		}
		cfg.jar = jar
	}

	registry := NewConstraintRegistry()
	for name, pattern := range cfg.patterns {
		registry.Pattern(name, pattern)
	}

	app := &App{
		container:        container.New(),
		matcher:          NewMatcher(registry),
		urlgen:           NewURLGenerator(cfg.logger, cfg.urlOpts...),
		routes:           Flatten(cfg.routes...),
		middleware:       cfg.middleware,
		logger:           cfg.logger,
		jar:              cfg.jar,
		errorHandler:     cfg.errorHandler,
		notFound:         cfg.notFound,
		methodNotAllowed: cfg.methodNotAllowed,
		strictParams:     cfg.strictParams,
	}

	for _, p := range cfg.providers {
		app.container.Bind(p.key, p.lifecycle, p.factory)
	}

	for _, rd := range app.routes {
		app.matcher.Register(rd)
		for _, ref := range rd.middleware {
			ref.register(app.container)
		}
	}
	app.urlgen.Register(app.routes)
	for _, ref := range app.middleware {
		ref.register(app.container)
	}

	gen := app.urlgen
	app.container.Bind(urlGenKey{}, container.Singleton, func(*container.Container) (any, error) {
		return gen, nil
	})

	return app
}

// Container returns the application container, for binding services after
// construction but before serving.
func (app *App) Container() *container.Container {
	return app.container
}

// Routes returns the flattened route table.
func (app *App) Routes() Routes {
	out := make(Routes, len(app.routes))
	copy(out, app.routes)
	return out
}

// URL generates the URL of a named route outside a request. Inside a
// handler, use URLFor, which resolves forwarded-header context.
func (app *App) URL(name string, params map[string]any, opts ...URLOption) (string, error) {
	return app.urlgen.URL(name, params, opts...)
}

// ServeHTTP dispatches one request: match, open a scope, run the pipeline,
// write the response. Errors escaping the pipeline hit the error handler;
// panics are caught as a last resort and answered with a bare 500.
func (app *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			app.logger.ErrorContext(r.Context(), "panic during dispatch",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Any("panic", rec),
			)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}()

	// The matcher splits on "/" before decoding, so it must see the
	// escaped path: net/http's URL.Path is already decoded, which would
	// turn an encoded slash inside a parameter into a segment boundary.
	lookup := app.matcher.Lookup(r.Method, r.URL.EscapedPath(), r.Host)
	switch lookup.Outcome {
	case Matched:
		app.dispatch(w, r, lookup.Route, lookup.Params)
	case MethodMismatch:
		w.Header().Set("Allow", strings.Join(lookup.Allowed, ", "))
		app.fallback(w, r, app.methodNotAllowed, http.StatusMethodNotAllowed)
	default:
		app.fallback(w, r, app.notFound, http.StatusNotFound)
	}
}

// dispatch runs a matched route inside a fresh request scope.
func (app *App) dispatch(w http.ResponseWriter, r *http.Request, rd *RouteDefinition, params map[string]string) {
	refs := make([]*MiddlewareRef, 0, len(app.middleware)+len(rd.middleware))
	refs = append(refs, app.middleware...)
	for _, ref := range rd.middleware {
		refs = appendRefOnce(refs, ref)
	}

	err := app.container.WithScope(func(sc *container.Container) error {
		req := &Request{
			raw:    r,
			route:  rd,
			params: newParams(params, paramNames(rd.path, rd.domain), app.strictParams),
			scope:  sc,
			logger: app.logger,
		}
		if err := sc.Seed(integrationKey{}, NewHTTPIntegration(w, r, app.jar)); err != nil {
			return err
		}
		if err := sc.Seed(requestKey{}, req); err != nil {
			return err
		}

		pipeline, err := BuildPipeline(sc, refs, rd.handler.Handle)
		if err != nil {
			return err
		}

		resp, err := pipeline(req)
		if err != nil {
			resp = app.handleError(req, err)
		}
		if resp == nil {
			resp = NewResponse(http.StatusNoContent)
		}
		return resp.write(w)
	})
	if err != nil {
		app.logger.ErrorContext(r.Context(), "dispatch failed",
			slog.String("route", rd.String()),
			slog.String("error", err.Error()),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// fallback answers unmatched requests. A custom handler runs inside a
// request scope with application middleware applied; without one the
// status text is written directly.
func (app *App) fallback(w http.ResponseWriter, r *http.Request, h Handler, status int) {
	if h == nil {
		http.Error(w, http.StatusText(status), status)
		return
	}

	err := app.container.WithScope(func(sc *container.Container) error {
		req := &Request{
			raw:    r,
			params: newParams(nil, nil, false),
			scope:  sc,
			logger: app.logger,
		}
		if err := sc.Seed(integrationKey{}, NewHTTPIntegration(w, r, app.jar)); err != nil {
			return err
		}
		if err := sc.Seed(requestKey{}, req); err != nil {
			return err
		}

		pipeline, err := BuildPipeline(sc, app.middleware, h.Handle)
		if err != nil {
			return err
		}

		resp, err := pipeline(req)
		if err != nil {
			resp = app.handleError(req, err)
		}
		if resp == nil {
			resp = NewResponse(status)
		}
		return resp.write(w)
	})
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// handleError converts a pipeline error into a response.
func (app *App) handleError(req *Request, err error) *Response {
	app.logger.ErrorContext(req.Context(), "handler error",
		slog.String("method", req.Method()),
		slog.String("path", req.Path()),
		slog.String("error", err.Error()),
	)
	if app.errorHandler != nil {
		if resp := app.errorHandler(req, err); resp != nil {
			return resp
		}
	}
	resp := NewResponse(http.StatusInternalServerError)
	resp.Header.Set("Content-Type", "text/plain; charset=utf-8")
	resp.Body = []byte(http.StatusText(http.StatusInternalServerError))
	return resp
}

// URLFor generates the URL of a named route from inside a handler,
// resolving the generator and the request's integration context from the
// request scope so forwarded-header host resolution applies.
func URLFor(r *Request, name string, params map[string]any, opts ...URLOption) (string, error) {
	gen, err := container.Resolve[*URLGenerator](r.Scope(), urlGenKey{})
	if err != nil {
		return "", fmt.Errorf("anvil: url generator unavailable: %w", err)
	}
	if ic := IntegrationFrom(r); ic != nil {
		opts = append(opts, ForRequest(ic))
	}
	return gen.URL(name, params, opts...)
}

// RequestFrom resolves the framework request from a scope, for scoped
// factories that need request data.
func RequestFrom(sc *container.Container) (*Request, bool) {
	return container.ResolveIfAvailable[*Request](sc, requestKey{})
}
