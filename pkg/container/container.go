package container

import (
	"errors"
	"fmt"
	"sync"
)

// Errors.
var (
	ErrNotBound      = errors.New("container: key not bound")
	ErrNoActiveScope = errors.New("container: scoped binding requested outside an active scope")
	ErrScopeReentry  = errors.New("container: scope already active")
	ErrNilFactory    = errors.New("container: factory must not be nil")
	ErrWrongType     = errors.New("container: resolved value has unexpected type")
)

// Lifecycle determines how long a resolved instance is cached.
type Lifecycle int

const (
	// Singleton instances are constructed once and cached for the
	// container's lifetime.
	Singleton Lifecycle = iota

	// Scoped instances are constructed once per active scope and cached
	// in that scope. Resolving a scoped binding outside a scope fails
	// with ErrNoActiveScope.
	Scoped

	// Transient instances are constructed fresh on every resolution and
	// never cached.
	Transient
)

// String returns the lifecycle name for logging and errors.
func (l Lifecycle) String() string {
	switch l {
	case Singleton:
		return "singleton"
	case Scoped:
		return "scoped"
	case Transient:
		return "transient"
	default:
		return fmt.Sprintf("lifecycle(%d)", int(l))
	}
}

// Factory constructs an instance. It receives the container it is being
// resolved from, which inside a scope is the scope-local view, so factories
// may depend on other scoped bindings.
type Factory func(c *Container) (any, error)

type binding struct {
	factory   Factory
	lifecycle Lifecycle
}

// registry holds state shared between the root container and its
// scope-local views: bindings and the singleton cache.
type registry struct {
	mu         sync.RWMutex
	bindings   map[any]binding
	singletons map[any]any
}

// Container resolves bindings registered with Bind.
//
// The zero value is not usable; create containers with New. A Container is
// safe for concurrent use. Scope-local views returned by WithScope must be
// confined to the request they were created for.
type Container struct {
	reg   *registry
	scope *scope
}

// scope holds instances of scoped bindings for one request.
// A scope belongs to a single request goroutine; the mutex guards against
// factories that fan out internally.
type scope struct {
	mu        sync.Mutex
	instances map[any]any
}

// New creates an empty container.
func New() *Container {
	return &Container{
		reg: &registry{
			bindings:   make(map[any]binding),
			singletons: make(map[any]any),
		},
	}
}

// Bind registers a factory under key with the given lifecycle.
// Keys must be comparable; rebinding a key replaces the previous binding.
// Bindings are expected to be registered during bootstrap, before the first
// request is served.
func (c *Container) Bind(key any, lifecycle Lifecycle, factory Factory) {
	if factory == nil {
		panic(ErrNilFactory)
	}
	c.reg.mu.Lock()
	defer c.reg.mu.Unlock()
	c.reg.bindings[key] = binding{factory: factory, lifecycle: lifecycle}
}

// Get resolves the binding registered under key.
// Returns ErrNotBound for unknown keys and ErrNoActiveScope when a scoped
// binding is requested outside a scope.
func (c *Container) Get(key any) (any, error) {
	// Seeded scope instances win over bindings; a seeded key needs no
	// registered factory.
	if c.scope != nil {
		c.scope.mu.Lock()
		v, ok := c.scope.instances[key]
		c.scope.mu.Unlock()
		if ok {
			return v, nil
		}
	}

	c.reg.mu.RLock()
	b, ok := c.reg.bindings[key]
	c.reg.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrNotBound, key)
	}

	switch b.lifecycle {
	case Singleton:
		return c.resolveSingleton(key, b)
	case Scoped:
		return c.resolveScoped(key, b)
	default:
		return b.factory(c)
	}
}

// GetIfAvailable is like Get but returns (nil, nil) when the key is not
// bound. Factory and lifecycle errors are still reported. Use this for
// optional lookups such as the request context during URL generation
// outside a request.
func (c *Container) GetIfAvailable(key any) (any, error) {
	v, err := c.Get(key)
	if errors.Is(err, ErrNotBound) {
		return nil, nil
	}
	return v, err
}

// Bound reports whether key has a registered binding.
func (c *Container) Bound(key any) bool {
	c.reg.mu.RLock()
	defer c.reg.mu.RUnlock()
	_, ok := c.reg.bindings[key]
	return ok
}

// InScope reports whether this container is a scope-local view.
func (c *Container) InScope() bool {
	return c.scope != nil
}

// WithScope opens a request scope, invokes fn with a scope-local view of
// the container, and tears the scope down when fn returns, including on
// error or panic. Calling WithScope on a container that is already a
// scope-local view is a programming error and fails with ErrScopeReentry:
// one container view serves exactly one request at a time. Concurrent
// requests each call WithScope on the root container and receive
// independent views.
func (c *Container) WithScope(fn func(sc *Container) error) error {
	if c.scope != nil {
		return ErrScopeReentry
	}

	sc := &Container{
		reg:   c.reg,
		scope: &scope{instances: make(map[any]any)},
	}
	defer func() {
		// Drop scoped instances so a leaked view cannot serve stale state.
		sc.scope.mu.Lock()
		sc.scope.instances = nil
		sc.scope.mu.Unlock()
	}()

	return fn(sc)
}

// Seed places an already-constructed instance into the active scope under
// key, as if a scoped factory had produced it. This is how the request
// integration context is made resolvable by scoped factories. Fails with
// ErrNoActiveScope on the root container.
func (c *Container) Seed(key any, value any) error {
	if c.scope == nil {
		return ErrNoActiveScope
	}
	c.scope.mu.Lock()
	defer c.scope.mu.Unlock()
	if c.scope.instances == nil {
		return ErrNoActiveScope
	}
	c.scope.instances[key] = value
	return nil
}

func (c *Container) resolveSingleton(key any, b binding) (any, error) {
	c.reg.mu.RLock()
	v, ok := c.reg.singletons[key]
	c.reg.mu.RUnlock()
	if ok {
		return v, nil
	}

	// Construct outside the lock: the factory may resolve other bindings
	// through c, which needs the registry mutex again.
	v, err := b.factory(c)
	if err != nil {
		return nil, err
	}

	c.reg.mu.Lock()
	defer c.reg.mu.Unlock()
	// Another goroutine may have won the race; its instance stays.
	if prev, ok := c.reg.singletons[key]; ok {
		return prev, nil
	}
	c.reg.singletons[key] = v
	return v, nil
}

func (c *Container) resolveScoped(key any, b binding) (any, error) {
	if c.scope == nil {
		return nil, fmt.Errorf("%w: %v", ErrNoActiveScope, key)
	}

	c.scope.mu.Lock()
	if c.scope.instances == nil {
		c.scope.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", ErrNoActiveScope, key)
	}
	if v, ok := c.scope.instances[key]; ok {
		c.scope.mu.Unlock()
		return v, nil
	}
	c.scope.mu.Unlock()

	// Construct outside the lock: the factory receives the scope-local
	// view and may resolve other scoped bindings through it.
	v, err := b.factory(c)
	if err != nil {
		return nil, err
	}

	c.scope.mu.Lock()
	defer c.scope.mu.Unlock()
	if c.scope.instances == nil {
		return nil, fmt.Errorf("%w: %v", ErrNoActiveScope, key)
	}
	if prev, ok := c.scope.instances[key]; ok {
		return prev, nil
	}
	c.scope.instances[key] = v
	return v, nil
}

// Resolve resolves key and asserts the result to T.
//
// Example:
//
//	gen, err := container.Resolve[*URLGenerator](c, urlGenKey)
func Resolve[T any](c *Container, key any) (T, error) {
	var zero T
	v, err := c.Get(key)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: key %v resolved to %T", ErrWrongType, key, v)
	}
	return t, nil
}

// ResolveIfAvailable resolves key and asserts the result to T, returning
// ok=false when the key is unbound or the value has a different type.
// Factory errors are swallowed; use Resolve when they matter.
func ResolveIfAvailable[T any](c *Container, key any) (T, bool) {
	var zero T
	v, err := c.GetIfAvailable(key)
	if err != nil || v == nil {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}
