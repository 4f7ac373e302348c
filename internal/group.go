package internal

import (
	"fmt"
	"regexp"
	"strings"
)

// Routes is a flat list of fully-resolved route definitions, the output of
// flattening a tree of routes and groups. The set of parameter names each
// named route requires is recoverable from its template; the URL generator
// checks it at generation time.
type Routes []*RouteDefinition

// RouteNode is either a *RouteDefinition or a *Group.
type RouteNode interface {
	flatten() Routes
}

// GroupOptions are applied to every descendant route during flattening.
type GroupOptions struct {
	// Prefix is prepended to descendant paths. A descendant root path "/"
	// becomes exactly the prefix.
	Prefix string

	// NamePrefix is prepended to the names of named descendants.
	// Unnamed routes stay unnamed.
	NamePrefix string

	// Middleware runs before all descendant middleware.
	Middleware []*MiddlewareRef

	// WithoutMiddleware suppresses middleware inherited from enclosing
	// groups. A reference listed in both Middleware and WithoutMiddleware
	// of the same group stays included.
	WithoutMiddleware []*MiddlewareRef

	// Domain restricts descendants to a domain pattern. A descendant that
	// declares a different domain fails registration.
	Domain string

	// Where adds parameter constraints; descendant constraints for the
	// same parameter win.
	Where map[string]string
}

// Group scopes shared options over a set of child routes and groups.
// Groups exist only at definition time; flattening resolves them away.
type Group struct {
	opts        GroupOptions
	constraints map[string]*regexp.Regexp
	children    []RouteNode
}

// NewGroup creates a route group. Prefix and domain patterns are validated
// eagerly; malformed patterns and non-compiling constraints panic at
// definition time.
func NewGroup(opts GroupOptions, children ...RouteNode) *Group {
	if opts.Prefix != "" {
		mustValidate(opts.Prefix)
		if !strings.HasPrefix(opts.Prefix, "/") {
			panic(&SyntaxError{Pattern: opts.Prefix, Reason: "prefix must start with /"})
		}
	}
	if opts.Domain != "" {
		mustValidate(opts.Domain)
	}

	constraints := make(map[string]*regexp.Regexp, len(opts.Where))
	for param, pattern := range opts.Where {
		constraints[param] = regexp.MustCompile(pattern)
	}

	return &Group{opts: opts, constraints: constraints, children: children}
}

// Flatten resolves a tree of routes and groups into a flat list.
// Flattening is depth-first: a group applies its options to the
// already-flattened results of its descendants, so prefixes and name
// prefixes compose outer-then-inner.
func Flatten(nodes ...RouteNode) Routes {
	var out Routes
	for _, n := range nodes {
		out = append(out, n.flatten()...)
	}
	return out
}

func (rd *RouteDefinition) flatten() Routes {
	return Routes{rd.clone()}
}

func (g *Group) flatten() Routes {
	routes := Flatten(g.children...)
	for _, rd := range routes {
		g.apply(rd)
	}
	return routes
}

// apply folds the group's options into one already-flattened route.
func (g *Group) apply(rd *RouteDefinition) {
	if g.opts.Prefix != "" {
		prefix := strings.TrimSuffix(g.opts.Prefix, "/")
		switch rd.path {
		case "", "/":
			if prefix == "" {
				prefix = "/"
			}
			rd.path = prefix
		default:
			rd.path = prefix + rd.path
		}
		if err := validateWildcardPlacement(rd.path); err != nil {
			panic(err)
		}
	}

	if g.opts.NamePrefix != "" && rd.name != "" {
		rd.name = g.opts.NamePrefix + rd.name
	}

	g.mergeMiddleware(rd)

	for param, re := range g.constraints {
		if _, ok := rd.constraints[param]; !ok {
			rd.constraints[param] = re
		}
	}

	if g.opts.Domain != "" {
		switch rd.domain {
		case "", g.opts.Domain:
			rd.domain = g.opts.Domain
		default:
			panic(fmt.Errorf("%w: route %q declares %q inside group %q",
				ErrDomainConflict, rd.path, rd.domain, g.opts.Domain))
		}
	}
}

// mergeMiddleware prepends the group's effective middleware to the route's
// list. Exclusions accumulated at more specific levels filter the group
// list; a reference re-added by a more specific Middleware list survives at
// its more specific position (inclusion wins over exclusion).
func (g *Group) mergeMiddleware(rd *RouteDefinition) {
	// Same-group inclusion beats same-group exclusion.
	effective := make([]*MiddlewareRef, 0, len(g.opts.Middleware))
	for _, ref := range g.opts.Middleware {
		effective = append(effective, ref)
	}
	carriedExclusions := make([]*MiddlewareRef, 0, len(g.opts.WithoutMiddleware))
	for _, ref := range g.opts.WithoutMiddleware {
		if !containsRef(g.opts.Middleware, ref) {
			carriedExclusions = append(carriedExclusions, ref)
		}
	}

	merged := make([]*MiddlewareRef, 0, len(effective)+len(rd.middleware))
	for _, ref := range effective {
		if containsRef(rd.withoutMiddleware, ref) {
			continue
		}
		merged = appendRefOnce(merged, ref)
	}
	for _, ref := range rd.middleware {
		merged = appendRefOnce(merged, ref)
	}

	rd.middleware = merged
	for _, ref := range carriedExclusions {
		if !containsRef(rd.withoutMiddleware, ref) {
			rd.withoutMiddleware = append(rd.withoutMiddleware, ref)
		}
	}
}

func containsRef(refs []*MiddlewareRef, ref *MiddlewareRef) bool {
	for _, r := range refs {
		if r == ref {
			return true
		}
	}
	return false
}

// appendRefOnce appends ref unless already present, preserving first
// occurrence order.
func appendRefOnce(refs []*MiddlewareRef, ref *MiddlewareRef) []*MiddlewareRef {
	if containsRef(refs, ref) {
		return refs
	}
	return append(refs, ref)
}
