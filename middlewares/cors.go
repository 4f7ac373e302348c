package middlewares

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrymomot/anvil/internal"
	"github.com/dmitrymomot/anvil/pkg/container"
)

// DefaultCORSMaxAge is the default preflight cache duration.
const DefaultCORSMaxAge = 12 * time.Hour

// CORSConfig configures the CORS middleware.
type CORSConfig struct {
	// AllowOrigins is a static list of allowed origins. "*" allows all
	// (not usable with credentials).
	AllowOrigins []string

	// AllowOriginFunc is a dynamic origin validator; when set it replaces
	// AllowOrigins entirely.
	AllowOriginFunc func(origin string) bool

	// AllowMethods lists the methods allowed in preflight responses.
	AllowMethods []string

	// AllowHeaders lists the request headers allowed in preflight
	// responses.
	AllowHeaders []string

	// ExposeHeaders lists headers exposed to the client.
	ExposeHeaders []string

	// AllowCredentials permits cookies and authorization headers. The
	// actual origin is echoed instead of "*" when set.
	AllowCredentials bool

	// MaxAge bounds preflight response caching.
	MaxAge time.Duration
}

// CORSOption configures CORSConfig.
type CORSOption func(*CORSConfig)

// WithAllowOrigins sets the allowed origins.
func WithAllowOrigins(origins ...string) CORSOption {
	return func(cfg *CORSConfig) { cfg.AllowOrigins = origins }
}

// WithAllowOriginFunc sets a dynamic origin validator.
func WithAllowOriginFunc(fn func(origin string) bool) CORSOption {
	return func(cfg *CORSConfig) { cfg.AllowOriginFunc = fn }
}

// WithAllowMethods sets the allowed methods.
func WithAllowMethods(methods ...string) CORSOption {
	return func(cfg *CORSConfig) { cfg.AllowMethods = methods }
}

// WithAllowHeaders sets the allowed request headers.
func WithAllowHeaders(headers ...string) CORSOption {
	return func(cfg *CORSConfig) { cfg.AllowHeaders = headers }
}

// WithExposeHeaders sets the headers exposed to the client.
func WithExposeHeaders(headers ...string) CORSOption {
	return func(cfg *CORSConfig) { cfg.ExposeHeaders = headers }
}

// WithAllowCredentials permits credentialed requests.
func WithAllowCredentials() CORSOption {
	return func(cfg *CORSConfig) { cfg.AllowCredentials = true }
}

// WithCORSMaxAge sets the preflight cache duration.
func WithCORSMaxAge(d time.Duration) CORSOption {
	return func(cfg *CORSConfig) { cfg.MaxAge = d }
}

// CORS answers cross-origin preflight requests and decorates responses
// with the appropriate Access-Control headers. Preflights short-circuit
// the pipeline with 204.
func CORS(opts ...CORSOption) *internal.MiddlewareRef {
	cfg := &CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       DefaultCORSMaxAge,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return internal.NewMiddlewareRef("cors", container.Singleton,
		func(*container.Container) (internal.Middleware, error) {
			return &cors{cfg: cfg}, nil
		})
}

type cors struct {
	cfg *CORSConfig
}

func (m *cors) Handle(r *internal.Request, next internal.HandlerFunc) (*internal.Response, error) {
	origin := r.Header("Origin")
	if origin == "" {
		return next(r)
	}

	allowed := m.allowOrigin(origin)
	if allowed == "" {
		return next(r)
	}

	// Preflight short-circuits: the actual route never runs.
	if r.Method() == http.MethodOptions && r.Header("Access-Control-Request-Method") != "" {
		resp := internal.NewResponse(http.StatusNoContent)
		m.decorate(resp, allowed)
		resp.SetHeader("Access-Control-Allow-Methods", strings.Join(m.cfg.AllowMethods, ", "))
		if len(m.cfg.AllowHeaders) > 0 {
			resp.SetHeader("Access-Control-Allow-Headers", strings.Join(m.cfg.AllowHeaders, ", "))
		}
		if m.cfg.MaxAge > 0 {
			resp.SetHeader("Access-Control-Max-Age", strconv.Itoa(int(m.cfg.MaxAge.Seconds())))
		}
		return resp, nil
	}

	resp, err := next(r)
	if resp != nil {
		m.decorate(resp, allowed)
		if len(m.cfg.ExposeHeaders) > 0 {
			resp.SetHeader("Access-Control-Expose-Headers", strings.Join(m.cfg.ExposeHeaders, ", "))
		}
	}
	return resp, err
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin, or
// "" when the origin is not allowed.
func (m *cors) allowOrigin(origin string) string {
	if m.cfg.AllowOriginFunc != nil {
		if m.cfg.AllowOriginFunc(origin) {
			return origin
		}
		return ""
	}
	if slices.Contains(m.cfg.AllowOrigins, "*") {
		if m.cfg.AllowCredentials {
			return origin
		}
		return "*"
	}
	if slices.Contains(m.cfg.AllowOrigins, origin) {
		return origin
	}
	return ""
}

func (m *cors) decorate(resp *internal.Response, allowed string) {
	resp.SetHeader("Access-Control-Allow-Origin", allowed)
	if allowed != "*" {
		resp.SetHeader("Vary", "Origin")
	}
	if m.cfg.AllowCredentials {
		resp.SetHeader("Access-Control-Allow-Credentials", "true")
	}
}
