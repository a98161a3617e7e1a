package sessionless

import (
	"context"
	"net/http"

	"github.com/MrEthical07/sessionless/jwt"
)

type authContextKey struct{}

// Principal is the type-erased view of a request's authentication state,
// for code that does not know the user type.
type Principal interface {
	Authenticated() bool
	Claims() *jwt.Claims
}

// Auth holds the request-scoped handles bound by the middleware. It lives
// exactly as long as its request.
type Auth[U any] struct {
	m             *Middleware[U]
	w             http.ResponseWriter
	user          U
	claims        *jwt.Claims
	token         string
	authenticated bool
}

var _ Principal = (*Auth[struct{}])(nil)

// Sign returns a token for user without writing anything to the response.
func (a *Auth[U]) Sign(ctx context.Context, user U) (string, error) {
	return a.m.Sign(ctx, user)
}

// IssueCookie signs a token for user and sets it as the response cookie.
// Call it before the response header is written.
func (a *Auth[U]) IssueCookie(ctx context.Context, user U) error {
	return a.m.IssueCookie(ctx, a.w, user)
}

// RevokeCookie clears the token cookie on the response.
func (a *Auth[U]) RevokeCookie() {
	a.m.RevokeCookie(a.w)
}

// User returns the resolved user, if any.
func (a *Auth[U]) User() (U, bool) {
	return a.user, a.authenticated
}

// Authenticated reports whether a user was attached.
func (a *Auth[U]) Authenticated() bool {
	return a.authenticated
}

// Claims returns the verified claims of an authenticated request, or nil.
func (a *Auth[U]) Claims() *jwt.Claims {
	return a.claims
}

// Token returns the raw token of an authenticated request, or "".
func (a *Auth[U]) Token() string {
	return a.token
}

// FromContext returns the Auth bound by a Middleware[U].
func FromContext[U any](ctx context.Context) (*Auth[U], bool) {
	if ctx == nil {
		return nil, false
	}
	a, ok := ctx.Value(authContextKey{}).(*Auth[U])
	return a, ok
}

// RequireAuth is FromContext for handlers that cannot proceed without the
// handles. It returns ErrNoAuth when the request skipped the middleware.
func RequireAuth[U any](ctx context.Context) (*Auth[U], error) {
	a, ok := FromContext[U](ctx)
	if !ok || a == nil {
		return nil, ErrNoAuth
	}
	return a, nil
}

// UserFromContext returns the authenticated user, if any.
func UserFromContext[U any](ctx context.Context) (U, bool) {
	a, ok := FromContext[U](ctx)
	if !ok {
		var zero U
		return zero, false
	}
	return a.User()
}

// PrincipalFromContext returns the authentication state without needing
// the user type.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return nil, false
	}
	p, ok := ctx.Value(authContextKey{}).(Principal)
	return p, ok
}
