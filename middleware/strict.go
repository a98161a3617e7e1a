package middleware

import (
	"net/http"
	"time"

	"github.com/MrEthical07/sessionless"
)

// RequireFresh admits authenticated requests whose token was issued within
// maxAge. Use it in front of sensitive operations on long-lived tokens.
// A nil now uses time.Now.
func RequireFresh(maxAge time.Duration, now func() time.Time) func(http.Handler) http.Handler {
	if now == nil {
		now = time.Now
	}
	return Guard(func(p sessionless.Principal) bool {
		c := p.Claims()
		if c == nil || c.IssuedAt.IsZero() {
			return false
		}
		return now().Sub(c.IssuedAt) <= maxAge
	})
}
