package sessionless

import (
	"errors"

	"github.com/MrEthical07/sessionless/jwt"
)

var (
	// ErrInvalidOptions wraps every Options validation failure.
	ErrInvalidOptions = errors.New("invalid sessionless options")
	// ErrMissingSecret is returned when neither Secret nor Codec is configured.
	ErrMissingSecret = errors.New("secret is required")
	// ErrMissingSerializer is returned when SerializeUser is nil.
	ErrMissingSerializer = errors.New("SerializeUser is required")
	// ErrMissingDeserializer is returned when DeserializeUser is nil.
	ErrMissingDeserializer = errors.New("DeserializeUser is required")
	// ErrEmptySubject is returned by Sign when SerializeUser yields "".
	ErrEmptySubject = errors.New("serialized user subject is empty")
	// ErrUserNotFound may be returned by DeserializeUser to report that the
	// subject no longer resolves to a user. The request then proceeds
	// unauthenticated.
	ErrUserNotFound = errors.New("user not found")
	// ErrNoAuth is returned by helpers called on a request that did not pass
	// through the middleware.
	ErrNoAuth = errors.New("request has no sessionless context")
	// ErrInvalidTokenLookup is returned by ParseTokenLookup for malformed specs.
	ErrInvalidTokenLookup = errors.New("invalid token lookup")
)

// IsVerificationError reports whether err is a classified token
// verification failure.
func IsVerificationError(err error) bool {
	_, ok := jwt.AsError(err)
	return ok
}

// VerificationErrorCode returns the code of a verification failure, or ""
// when err is not one.
func VerificationErrorCode(err error) jwt.ErrorCode {
	if e, ok := jwt.AsError(err); ok {
		return e.Code
	}
	return ""
}
