package internal

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// allMethods is the method set registered by Any and Redirect.
var allMethods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
}

// RouteDefinition is one immutable route: methods, path template, handler,
// optional name, middleware, parameter constraints, and domain pattern.
// Definitions are created at startup by the route constructors and are
// never mutated afterwards; grouping produces fully-resolved copies.
type RouteDefinition struct {
	methods           []string
	path              string
	handler           Handler
	name              string
	middleware        []*MiddlewareRef
	withoutMiddleware []*MiddlewareRef
	constraints       map[string]*regexp.Regexp
	domain            string
}

// Methods returns the HTTP methods the route responds to.
func (rd *RouteDefinition) Methods() []string {
	out := make([]string, len(rd.methods))
	copy(out, rd.methods)
	return out
}

// Path returns the path template, e.g. "/users/{id}/files/{...path}".
func (rd *RouteDefinition) Path() string { return rd.path }

// Name returns the route name, or "" for unnamed routes. Unnamed routes
// are not reachable through the URL generator.
func (rd *RouteDefinition) Name() string { return rd.name }

// Domain returns the domain pattern, or "" for domain-agnostic routes.
func (rd *RouteDefinition) Domain() string { return rd.domain }

// Handler returns the terminal handler.
func (rd *RouteDefinition) Handler() Handler { return rd.handler }

// Middleware returns the fully-merged, ordered middleware list.
func (rd *RouteDefinition) Middleware() []*MiddlewareRef {
	out := make([]*MiddlewareRef, len(rd.middleware))
	copy(out, rd.middleware)
	return out
}

// Constraint returns the regexp constraint for the named parameter, if any.
func (rd *RouteDefinition) Constraint(param string) (*regexp.Regexp, bool) {
	re, ok := rd.constraints[param]
	return re, ok
}

func (rd *RouteDefinition) String() string {
	return fmt.Sprintf("%s %s", strings.Join(rd.methods, "|"), rd.path)
}

// clone returns a deep-enough copy for grouping to mutate safely.
func (rd *RouteDefinition) clone() *RouteDefinition {
	c := &RouteDefinition{
		methods: rd.methods,
		path:    rd.path,
		handler: rd.handler,
		name:    rd.name,
		domain:  rd.domain,
	}
	c.middleware = append(c.middleware, rd.middleware...)
	c.withoutMiddleware = append(c.withoutMiddleware, rd.withoutMiddleware...)
	c.constraints = make(map[string]*regexp.Regexp, len(rd.constraints))
	for k, v := range rd.constraints {
		c.constraints[k] = v
	}
	return c
}

// RouteOption configures a route definition at construction time.
type RouteOption func(*RouteDefinition)

// RouteName assigns a name for URL generation.
func RouteName(name string) RouteOption {
	return func(rd *RouteDefinition) {
		rd.name = name
	}
}

// Use appends middleware to the route. Route middleware runs after all
// group middleware, immediately around the handler.
func Use(refs ...*MiddlewareRef) RouteOption {
	return func(rd *RouteDefinition) {
		rd.middleware = append(rd.middleware, refs...)
	}
}

// Without suppresses middleware inherited from enclosing groups.
// Suppression is by reference identity.
func Without(refs ...*MiddlewareRef) RouteOption {
	return func(rd *RouteDefinition) {
		rd.withoutMiddleware = append(rd.withoutMiddleware, refs...)
	}
}

// Where constrains the named parameter with a regular expression.
// A route-level constraint overrides a group-level constraint for the same
// parameter. The pattern must compile; failures are definition-time panics.
func Where(param, pattern string) RouteOption {
	re := regexp.MustCompile(pattern)
	return func(rd *RouteDefinition) {
		rd.constraints[param] = re
	}
}

// OnDomain restricts the route to a domain pattern, e.g.
// "{tenant}.example.com". Conflicting with an enclosing group's domain is
// a registration-time error.
func OnDomain(domain string) RouteOption {
	mustValidate(domain)
	return func(rd *RouteDefinition) {
		rd.domain = domain
	}
}

// mustValidate panics with a *SyntaxError on malformed patterns.
// Route definitions fail fast at startup, never at request time.
func mustValidate(pattern string) {
	if err := Validate(pattern); err != nil {
		panic(err)
	}
}

func newRoute(methods []string, path string, h Handler, opts ...RouteOption) *RouteDefinition {
	mustValidate(path)
	if err := validateWildcardPlacement(path); err != nil {
		panic(err)
	}
	if path != "" && !strings.HasPrefix(path, "/") {
		panic(&SyntaxError{Pattern: path, Reason: "path must be empty or start with /"})
	}
	if h == nil {
		panic(ErrNilHandler)
	}

	rd := &RouteDefinition{
		methods:     methods,
		path:        path,
		handler:     h,
		constraints: make(map[string]*regexp.Regexp),
	}
	for _, opt := range opts {
		opt(rd)
	}
	return rd
}

// Get defines a GET (and HEAD) route.
func Get(path string, h Handler, opts ...RouteOption) *RouteDefinition {
	return newRoute([]string{http.MethodGet, http.MethodHead}, path, h, opts...)
}

// Post defines a POST route.
func Post(path string, h Handler, opts ...RouteOption) *RouteDefinition {
	return newRoute([]string{http.MethodPost}, path, h, opts...)
}

// Put defines a PUT route.
func Put(path string, h Handler, opts ...RouteOption) *RouteDefinition {
	return newRoute([]string{http.MethodPut}, path, h, opts...)
}

// Patch defines a PATCH route.
func Patch(path string, h Handler, opts ...RouteOption) *RouteDefinition {
	return newRoute([]string{http.MethodPatch}, path, h, opts...)
}

// Delete defines a DELETE route.
func Delete(path string, h Handler, opts ...RouteOption) *RouteDefinition {
	return newRoute([]string{http.MethodDelete}, path, h, opts...)
}

// Options defines an OPTIONS route.
func Options(path string, h Handler, opts ...RouteOption) *RouteDefinition {
	return newRoute([]string{http.MethodOptions}, path, h, opts...)
}

// Match defines a route responding to an explicit method set.
func Match(methods []string, path string, h Handler, opts ...RouteOption) *RouteDefinition {
	normalized := make([]string, 0, len(methods))
	for _, m := range methods {
		normalized = append(normalized, strings.ToUpper(m))
	}
	return newRoute(normalized, path, h, opts...)
}

// Any defines a route responding to every supported method.
func Any(path string, h Handler, opts ...RouteOption) *RouteDefinition {
	return newRoute(allMethods, path, h, opts...)
}

// RedirectOption configures a redirect route.
type RedirectOption func(*redirectConfig)

type redirectConfig struct {
	permanent      bool
	preserveMethod bool
}

// Permanent marks the redirect as permanent (301, or 308 when the method
// is preserved).
func Permanent() RedirectOption {
	return func(c *redirectConfig) { c.permanent = true }
}

// PreserveMethod instructs clients to replay the original method against
// the target (307, or 308 when permanent).
func PreserveMethod() RedirectOption {
	return func(c *redirectConfig) { c.preserveMethod = true }
}

// Redirect defines a route that redirects from one path to another.
// Status mapping: permanent+preserve=308, permanent=301, preserve=307,
// neither=303.
func Redirect(from, to string, opts ...RedirectOption) *RouteDefinition {
	cfg := &redirectConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	status := http.StatusSeeOther
	switch {
	case cfg.permanent && cfg.preserveMethod:
		status = http.StatusPermanentRedirect
	case cfg.permanent:
		status = http.StatusMovedPermanently
	case cfg.preserveMethod:
		status = http.StatusTemporaryRedirect
	}

	return newRoute(allMethods, from, HandlerFunc(func(r *Request) (*Response, error) {
		return RedirectTo(status, to)
	}))
}
