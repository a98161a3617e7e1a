package jwt

import (
	"errors"
	"fmt"
)

// ErrorCode classifies verification failures.
type ErrorCode string

const (
	ErrCodeInvalidToken     ErrorCode = "invalid_token"
	ErrCodeMalformed        ErrorCode = "malformed"
	ErrCodeInvalidSignature ErrorCode = "invalid_signature"
	ErrCodeExpired          ErrorCode = "token_expired"
	ErrCodeNotYetValid      ErrorCode = "token_not_yet_valid"
	ErrCodeInvalidAudience  ErrorCode = "invalid_audience"
	ErrCodeInvalidIssuer    ErrorCode = "invalid_issuer"
	ErrCodeInvalidClaims    ErrorCode = "invalid_claims"
)

var errorMessages = map[ErrorCode]string{
	ErrCodeInvalidToken:     "Invalid token",
	ErrCodeMalformed:        "Malformed token",
	ErrCodeInvalidSignature: "Invalid signature",
	ErrCodeExpired:          "Token expired",
	ErrCodeNotYetValid:      "Token not yet valid",
	ErrCodeInvalidAudience:  "Invalid audience",
	ErrCodeInvalidIssuer:    "Invalid issuer",
	ErrCodeInvalidClaims:    "Invalid claims",
}

// Error wraps a verification failure with a stable code.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	base := e.Message
	if base == "" {
		base = string(e.Code)
	}
	if e.Err == nil {
		return base
	}
	return fmt.Sprintf("%s: %v", base, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds an [*Error] for code.
func NewError(code ErrorCode, err error) *Error {
	msg, ok := errorMessages[code]
	if !ok {
		msg = string(code)
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// AsError returns the [*Error] in err's chain, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
