package container_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/anvil/pkg/container"
)

type keyA struct{}
type keyB struct{}

type service struct {
	id int
}

// counterFactory returns a factory producing a fresh *service with an
// increasing id on every invocation.
func counterFactory() container.Factory {
	var mu sync.Mutex
	n := 0
	return func(*container.Container) (any, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return &service{id: n}, nil
	}
}

func TestGetUnbound(t *testing.T) {
	t.Parallel()

	c := container.New()
	_, err := c.Get(keyA{})
	require.ErrorIs(t, err, container.ErrNotBound)
}

func TestGetIfAvailable(t *testing.T) {
	t.Parallel()

	c := container.New()

	v, err := c.GetIfAvailable(keyA{})
	require.NoError(t, err)
	require.Nil(t, v)

	c.Bind(keyA{}, container.Singleton, counterFactory())
	v, err = c.GetIfAvailable(keyA{})
	require.NoError(t, err)
	require.NotNil(t, v)
}

func TestSingletonLifecycle(t *testing.T) {
	t.Parallel()

	c := container.New()
	c.Bind(keyA{}, container.Singleton, counterFactory())

	first, err := container.Resolve[*service](c, keyA{})
	require.NoError(t, err)
	second, err := container.Resolve[*service](c, keyA{})
	require.NoError(t, err)
	require.Same(t, first, second)

	// Singleton cache is shared with scope-local views.
	err = c.WithScope(func(sc *container.Container) error {
		inScope, err := container.Resolve[*service](sc, keyA{})
		require.NoError(t, err)
		require.Same(t, first, inScope)
		return nil
	})
	require.NoError(t, err)
}

func TestTransientLifecycle(t *testing.T) {
	t.Parallel()

	c := container.New()
	c.Bind(keyA{}, container.Transient, counterFactory())

	first, err := container.Resolve[*service](c, keyA{})
	require.NoError(t, err)
	second, err := container.Resolve[*service](c, keyA{})
	require.NoError(t, err)
	require.NotSame(t, first, second)
}

func TestScopedLifecycle(t *testing.T) {
	t.Parallel()

	c := container.New()
	c.Bind(keyA{}, container.Scoped, counterFactory())

	t.Run("fails outside scope", func(t *testing.T) {
		_, err := c.Get(keyA{})
		require.ErrorIs(t, err, container.ErrNoActiveScope)
	})

	t.Run("same instance within one scope", func(t *testing.T) {
		err := c.WithScope(func(sc *container.Container) error {
			first, err := container.Resolve[*service](sc, keyA{})
			require.NoError(t, err)
			second, err := container.Resolve[*service](sc, keyA{})
			require.NoError(t, err)
			require.Same(t, first, second)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("distinct instances across scopes", func(t *testing.T) {
		var first, second *service
		require.NoError(t, c.WithScope(func(sc *container.Container) error {
			v, err := container.Resolve[*service](sc, keyA{})
			first = v
			return err
		}))
		require.NoError(t, c.WithScope(func(sc *container.Container) error {
			v, err := container.Resolve[*service](sc, keyA{})
			second = v
			return err
		}))
		require.NotSame(t, first, second)
	})
}

func TestScopeReentry(t *testing.T) {
	t.Parallel()

	c := container.New()
	err := c.WithScope(func(sc *container.Container) error {
		return sc.WithScope(func(*container.Container) error {
			t.Fatal("nested scope callback must not run")
			return nil
		})
	})
	require.ErrorIs(t, err, container.ErrScopeReentry)
}

func TestScopeTeardownOnError(t *testing.T) {
	t.Parallel()

	c := container.New()
	c.Bind(keyA{}, container.Scoped, counterFactory())

	var leaked *container.Container
	boom := errors.New("boom")
	err := c.WithScope(func(sc *container.Container) error {
		leaked = sc
		_, err := sc.Get(keyA{})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	// The scope is torn down even though the callback failed.
	_, err = leaked.Get(keyA{})
	require.ErrorIs(t, err, container.ErrNoActiveScope)
}

func TestConcurrentScopesAreIsolated(t *testing.T) {
	t.Parallel()

	c := container.New()
	c.Bind(keyA{}, container.Scoped, counterFactory())

	const workers = 16
	ids := make(chan int, workers)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := c.WithScope(func(sc *container.Container) error {
				svc, err := container.Resolve[*service](sc, keyA{})
				if err != nil {
					return err
				}
				ids <- svc.id
				return nil
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int]bool)
	for id := range ids {
		require.False(t, seen[id], "scoped instance %d leaked across requests", id)
		seen[id] = true
	}
	require.Len(t, seen, workers)
}

func TestSeed(t *testing.T) {
	t.Parallel()

	c := container.New()

	require.ErrorIs(t, c.Seed(keyA{}, &service{}), container.ErrNoActiveScope)

	c.Bind(keyB{}, container.Scoped, func(sc *container.Container) (any, error) {
		// A scoped factory can depend on a seeded instance.
		return container.Resolve[*service](sc, keyA{})
	})

	seeded := &service{id: 42}
	err := c.WithScope(func(sc *container.Container) error {
		require.NoError(t, sc.Seed(keyA{}, seeded))

		got, err := container.Resolve[*service](sc, keyB{})
		require.NoError(t, err)
		require.Same(t, seeded, got)
		return nil
	})
	require.NoError(t, err)
}

func TestFactoryResolvesOtherBindings(t *testing.T) {
	t.Parallel()

	t.Run("scoped factory resolves another scoped binding", func(t *testing.T) {
		t.Parallel()

		c := container.New()
		c.Bind(keyA{}, container.Scoped, counterFactory())
		c.Bind(keyB{}, container.Scoped, func(sc *container.Container) (any, error) {
			return container.Resolve[*service](sc, keyA{})
		})

		err := c.WithScope(func(sc *container.Container) error {
			fromB, err := container.Resolve[*service](sc, keyB{})
			require.NoError(t, err)

			// Both resolutions see the same scoped instance.
			direct, err := container.Resolve[*service](sc, keyA{})
			require.NoError(t, err)
			require.Same(t, direct, fromB)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("singleton factory resolves a transient binding", func(t *testing.T) {
		t.Parallel()

		c := container.New()
		c.Bind(keyA{}, container.Transient, counterFactory())
		c.Bind(keyB{}, container.Singleton, func(cc *container.Container) (any, error) {
			return container.Resolve[*service](cc, keyA{})
		})

		v, err := container.Resolve[*service](c, keyB{})
		require.NoError(t, err)
		require.NotNil(t, v)
	})

	t.Run("singleton factory resolves another singleton", func(t *testing.T) {
		t.Parallel()

		c := container.New()
		c.Bind(keyA{}, container.Singleton, counterFactory())
		c.Bind(keyB{}, container.Singleton, func(cc *container.Container) (any, error) {
			return container.Resolve[*service](cc, keyA{})
		})

		fromB, err := container.Resolve[*service](c, keyB{})
		require.NoError(t, err)
		direct, err := container.Resolve[*service](c, keyA{})
		require.NoError(t, err)
		require.Same(t, direct, fromB)
	})
}

func TestFactoryErrorNotCached(t *testing.T) {
	t.Parallel()

	boom := errors.New("construction failed")
	calls := 0
	c := container.New()
	c.Bind(keyA{}, container.Singleton, func(*container.Container) (any, error) {
		calls++
		if calls == 1 {
			return nil, boom
		}
		return &service{id: calls}, nil
	})

	_, err := c.Get(keyA{})
	require.ErrorIs(t, err, boom)

	// The failed construction is not cached; the next Get retries.
	v, err := c.Get(keyA{})
	require.NoError(t, err)
	require.NotNil(t, v)
}

func TestResolveWrongType(t *testing.T) {
	t.Parallel()

	c := container.New()
	c.Bind(keyA{}, container.Singleton, counterFactory())

	_, err := container.Resolve[string](c, keyA{})
	require.ErrorIs(t, err, container.ErrWrongType)
}
