package sessionless

import (
	"net/http"
	"time"
)

// Transport carries a token between client and server. The middleware uses
// it to issue and revoke tokens; Extract lets a transport double as an
// [Extractor].
type Transport interface {
	Extract(r *http.Request) string
	Issue(w http.ResponseWriter, token string, expires time.Time)
	Revoke(w http.ResponseWriter)
}

// CookieTransport stores the token in a single cookie.
type CookieTransport struct {
	opts CookieOptions
}

var _ Transport = (*CookieTransport)(nil)

// NewCookieTransport returns a transport for opts, filling in the default
// name and path.
func NewCookieTransport(opts CookieOptions) *CookieTransport {
	if opts.Name == "" {
		opts.Name = DefaultCookieName
	}
	if opts.Path == "" {
		opts.Path = "/"
	}
	return &CookieTransport{opts: opts}
}

// Name is the cookie name.
func (t *CookieTransport) Name() string {
	return t.opts.Name
}

// Extract returns the cookie value, or "" when the cookie is absent.
func (t *CookieTransport) Extract(r *http.Request) string {
	return FromCookie(t.opts.Name)(r)
}

// Issue sets the token cookie. A zero expires produces a session cookie.
func (t *CookieTransport) Issue(w http.ResponseWriter, token string, expires time.Time) {
	c := t.cookie(token)
	if !expires.IsZero() {
		c.Expires = expires
	}
	http.SetCookie(w, c)
}

// Revoke instructs the client to drop the cookie. It does not look at the
// current token.
func (t *CookieTransport) Revoke(w http.ResponseWriter) {
	c := t.cookie("")
	c.Expires = time.Unix(0, 0)
	c.MaxAge = -1
	http.SetCookie(w, c)
}

func (t *CookieTransport) cookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     t.opts.Name,
		Value:    value,
		Path:     t.opts.Path,
		Domain:   t.opts.Domain,
		Secure:   t.opts.Secure,
		SameSite: t.opts.SameSite,
		HttpOnly: !t.opts.DisableHTTPOnly,
	}
}
