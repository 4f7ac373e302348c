package cookie

import (
	"errors"
	"net/http"
)

// Errors.
var (
	ErrNotFound    = errors.New("cookie: not found")
	ErrNoSecret    = errors.New("cookie: secret required")
	ErrShortSecret = errors.New("cookie: secret must be 32+ bytes")
	ErrBadSig      = errors.New("cookie: invalid signature")
	ErrDecrypt     = errors.New("cookie: decryption failed")
)

// Jar reads and writes cookies with shared attribute defaults. Signed and
// sealed variants require a secret; the zero-value Jar handles plain
// cookies only.
type Jar struct {
	secret   []byte
	domain   string
	path     string
	secure   bool
	httpOnly bool
	sameSite http.SameSite
}

// Option configures a Jar.
type Option func(*Jar)

// New creates a Jar. Defaults: path "/", HttpOnly, SameSite=Lax.
func New(opts ...Option) (*Jar, error) {
	j := &Jar{
		path:     "/",
		httpOnly: true,
		sameSite: http.SameSiteLaxMode,
	}
	for _, opt := range opts {
		opt(j)
	}
	if j.secret != nil && len(j.secret) < 32 {
		return nil, ErrShortSecret
	}
	return j, nil
}

// WithSecret enables signing and sealing. The secret must be at least 32
// bytes; New fails otherwise.
func WithSecret(secret []byte) Option {
	return func(j *Jar) { j.secret = secret }
}

// WithDomain sets the cookie domain attribute.
func WithDomain(domain string) Option {
	return func(j *Jar) { j.domain = domain }
}

// WithPath sets the cookie path attribute.
func WithPath(path string) Option {
	return func(j *Jar) { j.path = path }
}

// WithSecure sets the Secure flag.
func WithSecure(secure bool) Option {
	return func(j *Jar) { j.secure = secure }
}

// WithHTTPOnly sets the HttpOnly flag.
func WithHTTPOnly(httpOnly bool) Option {
	return func(j *Jar) { j.httpOnly = httpOnly }
}

// WithSameSite sets the SameSite attribute.
func WithSameSite(ss http.SameSite) Option {
	return func(j *Jar) { j.sameSite = ss }
}

// Get returns a plain cookie value.
func (j *Jar) Get(r *http.Request, name string) (string, error) {
	c, err := r.Cookie(name)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return "", ErrNotFound
		}
		return "", err
	}
	return c.Value, nil
}

// Set writes a plain cookie. maxAge follows http.Cookie semantics: 0 is a
// session cookie, negative deletes.
func (j *Jar) Set(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, j.build(name, value, maxAge))
}

// Delete expires a cookie.
func (j *Jar) Delete(w http.ResponseWriter, name string) {
	http.SetCookie(w, j.build(name, "", -1))
}

// GetSigned verifies and returns a signed cookie value. Tampered or
// malformed values yield ErrBadSig.
func (j *Jar) GetSigned(r *http.Request, name string) (string, error) {
	if j.secret == nil {
		return "", ErrNoSecret
	}
	raw, err := j.Get(r, name)
	if err != nil {
		return "", err
	}
	value, err := verify(j.secret, raw)
	if err != nil {
		return "", err
	}
	return string(value), nil
}

// SetSigned writes a cookie whose value is HMAC-signed. The value remains
// readable by the client but cannot be altered undetected.
func (j *Jar) SetSigned(w http.ResponseWriter, name, value string, maxAge int) error {
	if j.secret == nil {
		return ErrNoSecret
	}
	http.SetCookie(w, j.build(name, sign(j.secret, []byte(value)), maxAge))
	return nil
}

// GetSealed decrypts and returns a sealed cookie value. Corrupted or
// foreign ciphertext yields ErrDecrypt.
func (j *Jar) GetSealed(r *http.Request, name string) (string, error) {
	if j.secret == nil {
		return "", ErrNoSecret
	}
	raw, err := j.Get(r, name)
	if err != nil {
		return "", err
	}
	value, err := open(j.secret, raw)
	if err != nil {
		return "", err
	}
	return string(value), nil
}

// SetSealed writes a cookie whose value is AES-GCM encrypted, hiding it
// from the client entirely.
func (j *Jar) SetSealed(w http.ResponseWriter, name, value string, maxAge int) error {
	if j.secret == nil {
		return ErrNoSecret
	}
	sealed, err := seal(j.secret, []byte(value))
	if err != nil {
		return err
	}
	http.SetCookie(w, j.build(name, sealed, maxAge))
	return nil
}

func (j *Jar) build(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     j.path,
		Domain:   j.domain,
		MaxAge:   maxAge,
		Secure:   j.secure,
		HttpOnly: j.httpOnly,
		SameSite: j.sameSite,
	}
}
