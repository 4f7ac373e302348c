package internal

import (
	"errors"
	"fmt"

	"github.com/dmitrymomot/anvil/pkg/container"
)

// MiddlewareRef is a registered middleware identity. Routes and groups
// reference middleware through these pointers, so inclusion, exclusion,
// and deduplication all work by reference identity. The ref carries the
// DI binding: a factory plus the lifecycle the resolved instance lives
// under (a Scoped ref yields one instance per request).
type MiddlewareRef struct {
	name      string
	lifecycle container.Lifecycle
	factory   func(c *container.Container) (Middleware, error)
}

// NewMiddlewareRef creates a middleware reference.
//
// Example:
//
//	var RequireJSON = anvil.NewMiddlewareRef("require-json", container.Singleton,
//	    func(*container.Container) (anvil.Middleware, error) {
//	        return anvil.MiddlewareFunc(requireJSON), nil
//	    })
func NewMiddlewareRef(name string, lifecycle container.Lifecycle, factory func(c *container.Container) (Middleware, error)) *MiddlewareRef {
	if factory == nil {
		panic(fmt.Sprintf("anvil: middleware %q has nil factory", name))
	}
	return &MiddlewareRef{name: name, lifecycle: lifecycle, factory: factory}
}

// Name returns the middleware name, used in logs and errors.
func (ref *MiddlewareRef) Name() string { return ref.name }

func (ref *MiddlewareRef) String() string { return "middleware:" + ref.name }

// register binds the ref into the container, keyed by the ref pointer
// itself. Called once per ref during application bootstrap.
func (ref *MiddlewareRef) register(c *container.Container) {
	if c.Bound(ref) {
		return
	}
	c.Bind(ref, ref.lifecycle, func(c *container.Container) (any, error) {
		return ref.factory(c)
	})
}

// resolve obtains the middleware instance from the container, honoring the
// ref's lifecycle. Unregistered refs (tests driving the pipeline directly)
// fall back to a transient construction.
func (ref *MiddlewareRef) resolve(c *container.Container) (Middleware, error) {
	mw, err := container.Resolve[Middleware](c, ref)
	if errors.Is(err, container.ErrNotBound) {
		return ref.factory(c)
	}
	if err != nil {
		return nil, fmt.Errorf("anvil: resolving middleware %q: %w", ref.name, err)
	}
	return mw, nil
}

// BuildPipeline composes an ordered middleware list around a terminal
// handler into a single handler. Composition is onion-shaped: the first
// ref is outermost, and each middleware's next is the already-built chain
// of everything after it. A middleware that returns without calling next
// short-circuits the chain; outer middleware still observe the returned
// response as the stack unwinds. Passing a rewritten *Request to next is
// what downstream middleware and the terminal handler see.
//
// Middleware instances are resolved through c at build time, inside the
// active request scope, so a Scoped ref resolves to the request's own
// instance. Execution is strictly sequential.
func BuildPipeline(c *container.Container, refs []*MiddlewareRef, terminal HandlerFunc) (HandlerFunc, error) {
	next := terminal
	for i := len(refs) - 1; i >= 0; i-- {
		mw, err := refs[i].resolve(c)
		if err != nil {
			return nil, err
		}
		inner := next
		next = func(r *Request) (*Response, error) {
			return mw.Handle(r, inner)
		}
	}
	return next, nil
}
