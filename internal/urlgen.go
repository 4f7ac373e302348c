package internal

import (
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
)

// URLGenerator is the inverse of the matcher: it reconstructs URLs for
// named routes. Named routes are indexed at startup; generation happens at
// request time (or outside a request, in which case forwarded-header
// resolution is skipped).
type URLGenerator struct {
	routes map[string]*RouteDefinition
	logger *slog.Logger

	overrideHost  string
	overrideProto string
	defaultHost   string
	defaultProto  string
}

// URLGeneratorOption configures the generator at construction time.
type URLGeneratorOption func(*URLGenerator)

// WithHostOverride forces every absolute URL to use the given host,
// taking precedence over forwarded headers and defaults.
func WithHostOverride(host string) URLGeneratorOption {
	return func(g *URLGenerator) { g.overrideHost = host }
}

// WithProtoOverride forces the protocol of absolute URLs.
func WithProtoOverride(proto string) URLGeneratorOption {
	return func(g *URLGenerator) { g.overrideProto = proto }
}

// WithDefaultHost sets the host used when neither an override nor
// forwarded headers resolve one.
func WithDefaultHost(host string) URLGeneratorOption {
	return func(g *URLGenerator) { g.defaultHost = host }
}

// WithDefaultProto sets the protocol used when neither an override nor
// forwarded headers resolve one.
func WithDefaultProto(proto string) URLGeneratorOption {
	return func(g *URLGenerator) { g.defaultProto = proto }
}

// NewURLGenerator creates an empty generator.
func NewURLGenerator(logger *slog.Logger, opts ...URLGeneratorOption) *URLGenerator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	g := &URLGenerator{
		routes: make(map[string]*RouteDefinition),
		logger: logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Register indexes the named routes of a flattened list. Unnamed routes
// are skipped; a duplicate name silently wins (names are unique by
// convention, not enforcement) with a debug log for diagnosis.
func (g *URLGenerator) Register(routes Routes) {
	for _, rd := range routes {
		if rd.name == "" {
			continue
		}
		if prev, ok := g.routes[rd.name]; ok {
			g.logger.Debug("route name overwritten",
				slog.String("name", rd.name),
				slog.String("previous", prev.path),
				slog.String("current", rd.path),
			)
		}
		g.routes[rd.name] = rd
	}
}

// URLOption configures one generation call.
type URLOption func(*urlCall)

type urlCall struct {
	query     map[string]any
	rawQuery  url.Values
	absolute  bool
	requestIC IntegrationContext
}

// WithQuery appends a query string. Slice values expand to repeated keys;
// nil values and nil slice elements are omitted. Keys are emitted in
// sorted order.
func WithQuery(query map[string]any) URLOption {
	return func(c *urlCall) { c.query = query }
}

// WithQueryValues appends url.Values verbatim.
func WithQueryValues(values url.Values) URLOption {
	return func(c *urlCall) { c.rawQuery = values }
}

// Absolute makes the generated URL absolute even for routes without a
// domain pattern, resolving host and protocol through the precedence
// chain: host override, forwarded headers, configured default, original
// request URL.
func Absolute() URLOption {
	return func(c *urlCall) { c.absolute = true }
}

// ForRequest supplies the inbound request's integration context, enabling
// forwarded-header and request-URL resolution.
func ForRequest(ic IntegrationContext) URLOption {
	return func(c *urlCall) { c.requestIC = ic }
}

// URL generates the URL of the named route. Every parameter the route's
// path and domain templates require must be present in params; values are
// stringified with fmt and URL-encoded. A wildcard parameter is a single
// logical value: its slashes are encoded as %2F.
//
// Routes with a domain pattern always produce a host-qualified URL:
// absolute when a protocol can be resolved, protocol-relative (//host/path)
// otherwise. Default ports are stripped from the host.
func (g *URLGenerator) URL(name string, params map[string]any, opts ...URLOption) (string, error) {
	rd, ok := g.routes[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrRouteNotFound, name)
	}

	call := &urlCall{}
	for _, opt := range opts {
		opt(call)
	}

	path, err := substitute(rd.path, params, url.PathEscape)
	if err != nil {
		return "", fmt.Errorf("route %q: %w", name, err)
	}
	if path == "" {
		path = "/"
	}

	query := buildQuery(call.query, call.rawQuery)
	if query != "" {
		path += "?" + query
	}

	if rd.domain != "" {
		host, err := substitute(rd.domain, params, hostEscape)
		if err != nil {
			return "", fmt.Errorf("route %q: %w", name, err)
		}
		proto := g.resolveProto(call)
		host = stripDefaultPort(host, proto)
		if proto == "" {
			return "//" + host + path, nil
		}
		return proto + "://" + host + path, nil
	}

	if !call.absolute {
		return path, nil
	}

	proto := g.resolveProto(call)
	host := g.resolveHost(call)
	if host == "" {
		// Nothing to resolve a host from; fall back to a relative URL.
		return path, nil
	}
	if proto == "" {
		proto = "http"
	}
	host = stripDefaultPort(host, proto)
	return proto + "://" + host + path, nil
}

// Has reports whether a route with the given name is registered.
func (g *URLGenerator) Has(name string) bool {
	_, ok := g.routes[name]
	return ok
}

// resolveHost applies the host precedence chain.
func (g *URLGenerator) resolveHost(call *urlCall) string {
	if g.overrideHost != "" {
		return g.overrideHost
	}
	if call.requestIC != nil {
		if host := call.requestIC.RequestHeader("X-Forwarded-Host"); host != "" {
			if port := call.requestIC.RequestHeader("X-Forwarded-Port"); port != "" && !strings.Contains(host, ":") {
				return host + ":" + port
			}
			return host
		}
	}
	if g.defaultHost != "" {
		return g.defaultHost
	}
	if call.requestIC != nil {
		if u := call.requestIC.RequestURL(); u != nil {
			return u.Host
		}
	}
	return ""
}

// resolveProto applies the protocol precedence chain.
func (g *URLGenerator) resolveProto(call *urlCall) string {
	if g.overrideProto != "" {
		return g.overrideProto
	}
	if call.requestIC != nil {
		if proto := call.requestIC.RequestHeader("X-Forwarded-Proto"); proto != "" {
			return proto
		}
	}
	if g.defaultProto != "" {
		return g.defaultProto
	}
	if call.requestIC != nil {
		if u := call.requestIC.RequestURL(); u != nil && u.Scheme != "" {
			return u.Scheme
		}
	}
	return ""
}

// substitute replaces every placeholder in a template with its encoded
// parameter value. Wildcard values go through the same encoder, so their
// slashes become %2F: the wildcard is one logical value, not a
// pre-rendered sub-path.
func substitute(template string, params map[string]any, escape func(string) string) (string, error) {
	var sb strings.Builder
	last := 0
	for _, loc := range placeholderRe.FindAllStringSubmatchIndex(template, -1) {
		sb.WriteString(template[last:loc[0]])
		name := template[loc[4]:loc[5]]
		v, ok := params[name]
		if !ok || v == nil {
			return "", fmt.Errorf("%w: %q", ErrMissingParam, name)
		}
		sb.WriteString(escape(fmt.Sprint(v)))
		last = loc[1]
	}
	sb.WriteString(template[last:])
	return sb.String(), nil
}

// hostEscape encodes a domain parameter value for use as a hostname label.
func hostEscape(s string) string {
	return url.PathEscape(s)
}

// stripDefaultPort removes :80 for http and :443 for https.
func stripDefaultPort(host, proto string) string {
	switch proto {
	case "http", "":
		host = strings.TrimSuffix(host, ":80")
	case "https":
		host = strings.TrimSuffix(host, ":443")
	}
	return host
}

// buildQuery assembles the query string. Map keys are emitted sorted for
// deterministic output; url.Values input is appended as encoded.
func buildQuery(query map[string]any, raw url.Values) string {
	var parts []string

	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := query[k]
		if v == nil {
			continue
		}
		switch vv := v.(type) {
		case []string:
			for _, item := range vv {
				parts = append(parts, encodePair(k, item))
			}
		case []any:
			for _, item := range vv {
				if item == nil {
					continue
				}
				parts = append(parts, encodePair(k, fmt.Sprint(item)))
			}
		default:
			parts = append(parts, encodePair(k, fmt.Sprint(v)))
		}
	}

	encoded := strings.Join(parts, "&")
	if len(raw) > 0 {
		if encoded != "" {
			return encoded + "&" + raw.Encode()
		}
		return raw.Encode()
	}
	return encoded
}

func encodePair(k, v string) string {
	return url.QueryEscape(k) + "=" + url.QueryEscape(v)
}
