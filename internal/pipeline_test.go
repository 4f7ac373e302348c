package internal

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/anvil/pkg/container"
)

// traceRef records enter/leave events to verify composition order.
func traceRef(name string, log *[]string) *MiddlewareRef {
	return NewMiddlewareRef(name, container.Singleton,
		func(*container.Container) (Middleware, error) {
			return MiddlewareFunc(func(r *Request, next HandlerFunc) (*Response, error) {
				*log = append(*log, "enter "+name)
				resp, err := next(r)
				*log = append(*log, "leave "+name)
				return resp, err
			}), nil
		})
}

func testRequest(t *testing.T) *Request {
	t.Helper()
	return NewRequest(httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestBuildPipeline(t *testing.T) {
	t.Parallel()

	t.Run("onion order", func(t *testing.T) {
		t.Parallel()

		var log []string
		refs := []*MiddlewareRef{traceRef("m0", &log), traceRef("m1", &log), traceRef("m2", &log)}
		terminal := func(r *Request) (*Response, error) {
			log = append(log, "handler")
			return Text(http.StatusOK, "done")
		}

		pipeline, err := BuildPipeline(container.New(), refs, terminal)
		require.NoError(t, err)

		resp, err := pipeline(testRequest(t))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.Status)
		assert.Equal(t, []string{
			"enter m0", "enter m1", "enter m2",
			"handler",
			"leave m2", "leave m1", "leave m0",
		}, log)
	})

	t.Run("empty list is the terminal handler", func(t *testing.T) {
		t.Parallel()

		called := false
		pipeline, err := BuildPipeline(container.New(), nil, func(r *Request) (*Response, error) {
			called = true
			return NoContent(http.StatusOK)
		})
		require.NoError(t, err)
		_, err = pipeline(testRequest(t))
		require.NoError(t, err)
		assert.True(t, called)
	})

	t.Run("short-circuit skips downstream, outer unwinds", func(t *testing.T) {
		t.Parallel()

		var log []string
		block := NewMiddlewareRef("block", container.Singleton,
			func(*container.Container) (Middleware, error) {
				return MiddlewareFunc(func(r *Request, next HandlerFunc) (*Response, error) {
					log = append(log, "block")
					return Text(http.StatusForbidden, "denied")
				}), nil
			})
		refs := []*MiddlewareRef{traceRef("outer", &log), block, traceRef("inner", &log)}

		pipeline, err := BuildPipeline(container.New(), refs, func(r *Request) (*Response, error) {
			log = append(log, "handler")
			return nil, nil
		})
		require.NoError(t, err)

		resp, err := pipeline(testRequest(t))
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.Status)
		// The outer middleware observes the short-circuit response on
		// unwind; inner and handler never run.
		assert.Equal(t, []string{"enter outer", "block", "leave outer"}, log)
	})

	t.Run("rewritten request is seen downstream", func(t *testing.T) {
		t.Parallel()

		rewrite := NewMiddlewareRef("rewrite", container.Singleton,
			func(*container.Container) (Middleware, error) {
				return MiddlewareFunc(func(r *Request, next HandlerFunc) (*Response, error) {
					raw := r.Raw().Clone(r.Context())
					raw.Header.Set("X-Injected", "yes")
					return next(r.WithRaw(raw))
				}), nil
			})

		var seen string
		pipeline, err := BuildPipeline(container.New(), []*MiddlewareRef{rewrite}, func(r *Request) (*Response, error) {
			seen = r.Header("X-Injected")
			return NoContent(http.StatusOK)
		})
		require.NoError(t, err)
		_, err = pipeline(testRequest(t))
		require.NoError(t, err)
		assert.Equal(t, "yes", seen)
	})

	t.Run("error propagates through the stack", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("handler exploded")
		var observed error
		observer := NewMiddlewareRef("observer", container.Singleton,
			func(*container.Container) (Middleware, error) {
				return MiddlewareFunc(func(r *Request, next HandlerFunc) (*Response, error) {
					resp, err := next(r)
					observed = err
					return resp, err
				}), nil
			})

		pipeline, err := BuildPipeline(container.New(), []*MiddlewareRef{observer}, func(r *Request) (*Response, error) {
			return nil, boom
		})
		require.NoError(t, err)

		_, err = pipeline(testRequest(t))
		require.ErrorIs(t, err, boom)
		assert.ErrorIs(t, observed, boom)
	})

	t.Run("factory error aborts build", func(t *testing.T) {
		t.Parallel()

		bad := NewMiddlewareRef("bad", container.Transient,
			func(*container.Container) (Middleware, error) {
				return nil, errors.New("cannot construct")
			})
		_, err := BuildPipeline(container.New(), []*MiddlewareRef{bad}, func(r *Request) (*Response, error) {
			return nil, nil
		})
		require.Error(t, err)
	})

	t.Run("scoped middleware resolves per request scope", func(t *testing.T) {
		t.Parallel()

		instances := 0
		scoped := NewMiddlewareRef("scoped", container.Scoped,
			func(*container.Container) (Middleware, error) {
				instances++
				return MiddlewareFunc(func(r *Request, next HandlerFunc) (*Response, error) {
					return next(r)
				}), nil
			})

		root := container.New()
		scoped.register(root)

		terminal := func(r *Request) (*Response, error) { return NoContent(http.StatusOK) }
		for range 2 {
			err := root.WithScope(func(sc *container.Container) error {
				// Two builds within one scope share the instance.
				for range 2 {
					_, err := BuildPipeline(sc, []*MiddlewareRef{scoped}, terminal)
					require.NoError(t, err)
				}
				return nil
			})
			require.NoError(t, err)
		}
		assert.Equal(t, 2, instances)
	})
}

func TestMiddlewareRef(t *testing.T) {
	t.Parallel()

	t.Run("nil factory panics", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() {
			NewMiddlewareRef("broken", container.Singleton, nil)
		})
	})

	t.Run("name", func(t *testing.T) {
		t.Parallel()
		ref := testRef("auth")
		assert.Equal(t, "auth", ref.Name())
		assert.Equal(t, "middleware:auth", ref.String())
	})
}
