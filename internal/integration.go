package internal

import (
	"net/http"
	"net/url"

	"github.com/dmitrymomot/anvil/pkg/cookie"
)

// IntegrationContext is the framework's view of the hosting HTTP platform.
// Handlers and middleware that need raw platform features (forwarded
// headers, cookies, the original request URL) resolve it from the request
// scope instead of touching net/http types directly, which keeps them
// portable across transports and trivially fakeable in tests.
type IntegrationContext interface {
	// RequestHeader returns the first value of an inbound header, or "".
	RequestHeader(name string) string

	// Cookie returns a plain cookie value, or cookie.ErrNotFound.
	Cookie(name string) (string, error)

	// SetCookie queues a cookie on the response.
	SetCookie(name, value string, maxAge int)

	// DeleteCookie queues an expiry for the named cookie.
	DeleteCookie(name string)

	// RequestURL returns the full URL the client requested, scheme and
	// host included.
	RequestURL() *url.URL
}

// httpIntegration adapts net/http to IntegrationContext.
type httpIntegration struct {
	r   *http.Request
	w   http.ResponseWriter
	jar *cookie.Jar
}

// NewHTTPIntegration creates the net/http integration context for one
// request. The jar supplies cookie attribute defaults.
func NewHTTPIntegration(w http.ResponseWriter, r *http.Request, jar *cookie.Jar) IntegrationContext {
	return &httpIntegration{r: r, w: w, jar: jar}
}

func (ic *httpIntegration) RequestHeader(name string) string {
	return ic.r.Header.Get(name)
}

func (ic *httpIntegration) Cookie(name string) (string, error) {
	return ic.jar.Get(ic.r, name)
}

func (ic *httpIntegration) SetCookie(name, value string, maxAge int) {
	ic.jar.Set(ic.w, name, value, maxAge)
}

func (ic *httpIntegration) DeleteCookie(name string) {
	ic.jar.Delete(ic.w, name)
}

// RequestURL reconstructs the absolute request URL. net/http leaves the
// scheme and host off server-side URLs, so they are filled in from the
// connection state and Host header.
func (ic *httpIntegration) RequestURL() *url.URL {
	u := *ic.r.URL
	if u.Host == "" {
		u.Host = ic.r.Host
	}
	if u.Scheme == "" {
		if ic.r.TLS != nil {
			u.Scheme = "https"
		} else {
			u.Scheme = "http"
		}
	}
	return &u
}

// integrationKey keys the IntegrationContext in the request scope.
type integrationKey struct{}

// IntegrationFrom resolves the request's IntegrationContext from its scope.
// It is nil when the request was not produced by an HTTP transport (unit
// tests driving handlers directly).
func IntegrationFrom(r *Request) IntegrationContext {
	sc := r.Scope()
	if sc == nil {
		return nil
	}
	v, err := sc.GetIfAvailable(integrationKey{})
	if err != nil || v == nil {
		return nil
	}
	ic, ok := v.(IntegrationContext)
	if !ok {
		return nil
	}
	return ic
}
