package middleware

import (
	"net/http"

	"github.com/MrEthical07/sessionless"
	"github.com/MrEthical07/sessionless/jwt"
)

// RequireClaims admits authenticated requests whose verified claims satisfy
// match.
func RequireClaims(match func(*jwt.Claims) bool) func(http.Handler) http.Handler {
	return Guard(func(p sessionless.Principal) bool {
		c := p.Claims()
		return c != nil && match != nil && match(c)
	})
}
