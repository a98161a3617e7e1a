package middleware

import (
	"net/http"

	"github.com/MrEthical07/sessionless"
)

// Guard admits a request when allow returns true for its principal and
// responds 401 otherwise.
func Guard(allow func(sessionless.Principal) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := sessionless.PrincipalFromContext(r.Context())
			if !ok || allow == nil || !p.Authenticated() || !allow(p) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireUser rejects requests without an authenticated user.
func RequireUser(next http.Handler) http.Handler {
	return Guard(func(sessionless.Principal) bool { return true })(next)
}
