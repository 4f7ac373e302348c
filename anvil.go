package anvil

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/anvil/internal"
	"github.com/dmitrymomot/anvil/pkg/container"
	"github.com/dmitrymomot/anvil/pkg/cookie"
	"github.com/dmitrymomot/anvil/pkg/logger"
)

// Type aliases - public API
type (
	// App orchestrates routing, middleware, dependency scopes, and the
	// server lifecycle.
	App = internal.App

	// Request is the framework view of one inbound HTTP request.
	Request = internal.Request

	// Response is the value handlers and middleware produce.
	Response = internal.Response

	// Params holds the route parameters captured by the matcher.
	Params = internal.Params

	// Handler processes a request into a response.
	Handler = internal.Handler

	// HandlerFunc adapts a function to the Handler interface.
	HandlerFunc = internal.HandlerFunc

	// Middleware wraps request handling with cross-cutting behavior.
	Middleware = internal.Middleware

	// MiddlewareFunc adapts a function to the Middleware interface.
	MiddlewareFunc = internal.MiddlewareFunc

	// MiddlewareRef is a registered middleware identity; routes and groups
	// include and exclude middleware through these references.
	MiddlewareRef = internal.MiddlewareRef

	// RouteDefinition is one immutable route.
	RouteDefinition = internal.RouteDefinition

	// Routes is a flat list of fully-resolved route definitions.
	Routes = internal.Routes

	// RouteNode is either a route definition or a group.
	RouteNode = internal.RouteNode

	// Group scopes shared options over child routes and groups.
	Group = internal.Group

	// GroupOptions are applied to every descendant route.
	GroupOptions = internal.GroupOptions

	// RouteOption configures a route at definition time.
	RouteOption = internal.RouteOption

	// RedirectOption configures a redirect route.
	RedirectOption = internal.RedirectOption

	// Option configures the application.
	Option = internal.AppOption

	// RunOption configures the server runtime.
	RunOption = internal.RunOption

	// URLOption configures one URL generation call.
	URLOption = internal.URLOption

	// ErrorHandler converts pipeline errors into responses.
	ErrorHandler = internal.ErrorHandler

	// IntegrationContext is the framework's view of the hosting HTTP
	// platform.
	IntegrationContext = internal.IntegrationContext

	// SyntaxError reports a malformed route, prefix, or domain pattern.
	SyntaxError = internal.SyntaxError

	// Container is the dependency container backing application and
	// request scopes.
	Container = container.Container

	// Lifecycle determines how long a resolved instance is cached.
	Lifecycle = container.Lifecycle

	// ContextExtractor extracts a slog attribute from context.
	ContextExtractor = logger.ContextExtractor

	// CookieOption configures the cookie jar.
	CookieOption = cookie.Option
)

// Service lifecycles.
const (
	// Singleton instances live for the application's lifetime.
	Singleton = container.Singleton

	// Scoped instances live for one request.
	Scoped = container.Scoped

	// Transient instances are constructed on every resolution.
	Transient = container.Transient
)

// Errors.
var (
	ErrRouteNotFound  = internal.ErrRouteNotFound
	ErrDomainConflict = internal.ErrDomainConflict
	ErrMissingParam   = internal.ErrMissingParam
	ErrNilHandler     = internal.ErrNilHandler
)

// New creates an application. Route definition errors panic here, during
// bootstrap, never at request time.
//
// Example:
//
//	app := anvil.New(
//	    anvil.WithLogger(logger.New()),
//	    anvil.WithMiddleware(middlewares.RequestID(), middlewares.Logging()),
//	    anvil.WithRoutes(
//	        anvil.Get("/users/{id}", showUser, anvil.RouteName("users.show")),
//	        anvil.NewGroup(anvil.GroupOptions{Prefix: "/admin", Middleware: []*anvil.MiddlewareRef{auth}},
//	            anvil.Get("/stats", stats),
//	        ),
//	    ),
//	)
//
//	err := app.Run(anvil.Address(":8080"))
func New(opts ...Option) *App {
	return internal.New(opts...)
}

// Route constructors

// Get defines a GET (and HEAD) route.
func Get(path string, h Handler, opts ...RouteOption) *RouteDefinition {
	return internal.Get(path, h, opts...)
}

// GetFunc defines a GET (and HEAD) route from a plain function.
func GetFunc(path string, h func(r *Request) (*Response, error), opts ...RouteOption) *RouteDefinition {
	return internal.Get(path, HandlerFunc(h), opts...)
}

// Post defines a POST route.
func Post(path string, h Handler, opts ...RouteOption) *RouteDefinition {
	return internal.Post(path, h, opts...)
}

// Put defines a PUT route.
func Put(path string, h Handler, opts ...RouteOption) *RouteDefinition {
	return internal.Put(path, h, opts...)
}

// Patch defines a PATCH route.
func Patch(path string, h Handler, opts ...RouteOption) *RouteDefinition {
	return internal.Patch(path, h, opts...)
}

// Delete defines a DELETE route.
func Delete(path string, h Handler, opts ...RouteOption) *RouteDefinition {
	return internal.Delete(path, h, opts...)
}

// Options defines an OPTIONS route.
func Options(path string, h Handler, opts ...RouteOption) *RouteDefinition {
	return internal.Options(path, h, opts...)
}

// Match defines a route responding to an explicit method set.
func Match(methods []string, path string, h Handler, opts ...RouteOption) *RouteDefinition {
	return internal.Match(methods, path, h, opts...)
}

// Any defines a route responding to every supported method.
func Any(path string, h Handler, opts ...RouteOption) *RouteDefinition {
	return internal.Any(path, h, opts...)
}

// Redirect defines a route redirecting from one path to another.
func Redirect(from, to string, opts ...RedirectOption) *RouteDefinition {
	return internal.Redirect(from, to, opts...)
}

// Permanent marks a redirect as permanent.
func Permanent() RedirectOption { return internal.Permanent() }

// PreserveMethod instructs clients to replay the original method.
func PreserveMethod() RedirectOption { return internal.PreserveMethod() }

// Route options

// RouteName assigns a name for URL generation.
func RouteName(name string) RouteOption { return internal.RouteName(name) }

// Use appends middleware to a route.
func Use(refs ...*MiddlewareRef) RouteOption { return internal.Use(refs...) }

// Without suppresses middleware inherited from enclosing groups.
func Without(refs ...*MiddlewareRef) RouteOption { return internal.Without(refs...) }

// Where constrains a route parameter with a regular expression.
func Where(param, pattern string) RouteOption { return internal.Where(param, pattern) }

// OnDomain restricts a route to a domain pattern.
func OnDomain(domain string) RouteOption { return internal.OnDomain(domain) }

// Grouping

// NewGroup creates a route group.
//
// Example:
//
//	anvil.NewGroup(anvil.GroupOptions{Prefix: "/api", NamePrefix: "api."},
//	    anvil.Get("/users", listUsers, anvil.RouteName("users")),
//	)
func NewGroup(opts GroupOptions, children ...RouteNode) *Group {
	return internal.NewGroup(opts, children...)
}

// Flatten resolves a tree of routes and groups into a flat list.
func Flatten(nodes ...RouteNode) Routes {
	return internal.Flatten(nodes...)
}

// Middleware

// NewMiddleware creates a middleware reference with the given lifecycle.
// Scoped middleware resolve to a fresh instance per request.
func NewMiddleware(name string, lifecycle Lifecycle, factory func(c *Container) (Middleware, error)) *MiddlewareRef {
	return internal.NewMiddlewareRef(name, lifecycle, factory)
}

// App options

// WithRoutes adds routes and groups to the application.
func WithRoutes(nodes ...RouteNode) Option { return internal.WithRoutes(nodes...) }

// WithMiddleware adds application-wide middleware.
func WithMiddleware(refs ...*MiddlewareRef) Option { return internal.WithMiddleware(refs...) }

// WithPattern registers a global constraint for a parameter name.
//
// Example:
//
//	anvil.WithPattern("id", `^\d+$`)
func WithPattern(name, pattern string) Option { return internal.WithPattern(name, pattern) }

// WithProvider binds a service into the application container.
func WithProvider(key any, lifecycle Lifecycle, factory container.Factory) Option {
	return internal.WithProvider(key, lifecycle, factory)
}

// WithLogger sets the application logger.
func WithLogger(log *slog.Logger) Option { return internal.WithLogger(log) }

// WithErrorHandler replaces the default 500 error response.
func WithErrorHandler(fn ErrorHandler) Option { return internal.WithErrorHandler(fn) }

// WithNotFoundHandler replaces the default 404 response.
func WithNotFoundHandler(h Handler) Option { return internal.WithNotFoundHandler(h) }

// WithMethodNotAllowedHandler replaces the default 405 response.
func WithMethodNotAllowedHandler(h Handler) Option { return internal.WithMethodNotAllowedHandler(h) }

// WithDevelopmentMode makes undeclared route parameter reads panic.
func WithDevelopmentMode() Option { return internal.WithDevelopmentMode() }

// WithCookieOptions configures the cookie jar backing the integration
// context. A misconfigured jar (short secret) panics at bootstrap.
func WithCookieOptions(opts ...CookieOption) Option {
	jar, err := cookie.New(opts...)
	if err != nil {
		panic(err)
	}
	return internal.WithCookieJar(jar)
}

// WithURLDefaults configures URL generation host and protocol resolution.
//
// Example:
//
//	anvil.WithURLDefaults(
//	    anvil.DefaultHost("example.com"),
//	    anvil.DefaultProto("https"),
//	)
func WithURLDefaults(opts ...internal.URLGeneratorOption) Option {
	return internal.WithURLDefaults(opts...)
}

// HostOverride forces the host of generated absolute URLs.
func HostOverride(host string) internal.URLGeneratorOption { return internal.WithHostOverride(host) }

// ProtoOverride forces the protocol of generated absolute URLs.
func ProtoOverride(proto string) internal.URLGeneratorOption { return internal.WithProtoOverride(proto) }

// DefaultHost sets the fallback host for generated absolute URLs.
func DefaultHost(host string) internal.URLGeneratorOption { return internal.WithDefaultHost(host) }

// DefaultProto sets the fallback protocol for generated absolute URLs.
func DefaultProto(proto string) internal.URLGeneratorOption { return internal.WithDefaultProto(proto) }

// URL generation call options

// WithQuery appends a query string to a generated URL.
func WithQuery(query map[string]any) URLOption { return internal.WithQuery(query) }

// Absolute makes a generated URL absolute.
func Absolute() URLOption { return internal.Absolute() }

// URLFor generates the URL of a named route from inside a handler.
//
// Example:
//
//	href, err := anvil.URLFor(r, "users.show", map[string]any{"id": 42})
func URLFor(r *Request, name string, params map[string]any, opts ...URLOption) (string, error) {
	return internal.URLFor(r, name, params, opts...)
}

// Run options

// Address sets the listen address. Defaults to ":8080".
func Address(addr string) RunOption { return internal.Address(addr) }

// ShutdownTimeout bounds graceful shutdown. Defaults to 30 seconds.
func ShutdownTimeout(d time.Duration) RunOption { return internal.ShutdownTimeout(d) }

// StartupHook registers a function to run before serving.
func StartupHook(fn func(context.Context) error) RunOption { return internal.StartupHook(fn) }

// ShutdownHook registers a cleanup function for graceful shutdown.
//
// Example:
//
//	anvil.ShutdownHook(func(ctx context.Context) error { return pool.Close(ctx) })
func ShutdownHook(fn func(context.Context) error) RunOption { return internal.ShutdownHook(fn) }

// BaseContext sets the context signal handling derives from.
func BaseContext(ctx context.Context) RunOption { return internal.BaseContext(ctx) }

// Response helpers

// NewResponse creates an empty response with a status code.
func NewResponse(status int) *Response { return internal.NewResponse(status) }

// Text creates a plain-text response.
func Text(status int, body string) (*Response, error) { return internal.Text(status, body) }

// JSON creates a JSON response.
func JSON(status int, v any) (*Response, error) { return internal.JSON(status, v) }

// NoContent creates a body-less response.
func NoContent(status int) (*Response, error) { return internal.NoContent(status) }

// RedirectTo creates a redirect response.
func RedirectTo(status int, location string) (*Response, error) {
	return internal.RedirectTo(status, location)
}

// Request helpers

// NewRequest wraps a raw request for dispatch, for tests that drive
// handlers or middleware directly.
func NewRequest(raw *http.Request) *Request { return internal.NewRequest(raw) }

// IntegrationFrom resolves the request's integration context, nil outside
// an HTTP dispatch.
func IntegrationFrom(r *Request) IntegrationContext { return internal.IntegrationFrom(r) }

// Resolve resolves a container binding and asserts its type.
//
// Example:
//
//	repo, err := anvil.Resolve[*UserRepo](r.Scope(), repoKey{})
func Resolve[T any](c *Container, key any) (T, error) {
	return container.Resolve[T](c, key)
}

// ResolveIfAvailable resolves a binding, reporting ok=false when unbound.
func ResolveIfAvailable[T any](c *Container, key any) (T, bool) {
	return container.ResolveIfAvailable[T](c, key)
}

// Pattern validation

// ValidatePattern checks a route path or domain pattern for syntax errors
// without defining a route.
func ValidatePattern(pattern string) error { return internal.Validate(pattern) }

// IsSyntaxError reports whether err is a pattern syntax error.
func IsSyntaxError(err error) bool { return internal.IsSyntaxError(err) }

// Cookie options re-exported for WithCookieOptions.

// CookieSecret sets the signing/sealing secret (32+ bytes).
func CookieSecret(secret []byte) CookieOption { return cookie.WithSecret(secret) }

// CookieDomain sets the cookie domain attribute.
func CookieDomain(domain string) CookieOption { return cookie.WithDomain(domain) }

// CookiePath sets the cookie path attribute.
func CookiePath(path string) CookieOption { return cookie.WithPath(path) }

// CookieSecure sets the Secure flag.
func CookieSecure(secure bool) CookieOption { return cookie.WithSecure(secure) }

// CookieSameSite sets the SameSite attribute.
func CookieSameSite(ss http.SameSite) CookieOption { return cookie.WithSameSite(ss) }

// Cookie errors for checking return values.
var (
	ErrCookieNotFound = cookie.ErrNotFound
	ErrCookieNoSecret = cookie.ErrNoSecret
	ErrCookieBadSig   = cookie.ErrBadSig
	ErrCookieDecrypt  = cookie.ErrDecrypt
)
