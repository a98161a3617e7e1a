package jwt

import (
	"errors"
	"time"
)

// Claims is the payload carried by a token. Zero times mean the claim is
// absent.
type Claims struct {
	Subject   string
	Audience  string
	Issuer    string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// HasExpiry reports whether the token carries an exp claim.
func (c Claims) HasExpiry() bool {
	return !c.ExpiresAt.IsZero()
}

// Check enforces the invariant that an expiry, when present, is strictly
// after the issue time.
func (c Claims) Check() error {
	if c.HasExpiry() && !c.IssuedAt.IsZero() && !c.ExpiresAt.After(c.IssuedAt) {
		return NewError(ErrCodeInvalidClaims, errors.New("exp must be after iat"))
	}
	return nil
}
