package sessionless

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/MrEthical07/sessionless/jwt"
)

// DefaultCookieName is the cookie used when CookieOptions.Name is empty.
const DefaultCookieName = "jwt"

const maxLeeway = 2 * time.Minute

// Codec is the signing primitive. Implementations must return a non-nil
// error for every token they refuse; the middleware classifies errors that
// are not already [*jwt.Error] as invalid_token.
type Codec interface {
	Sign(claims jwt.Claims) (string, error)
	Verify(token string) (*jwt.Claims, error)
}

// SerializeUserFunc turns a user into the subject embedded in its token.
type SerializeUserFunc[U any] func(ctx context.Context, user U) (string, error)

// DeserializeUserFunc resolves a verified subject back into a user. Return
// an error wrapping [ErrUserNotFound] when the subject is unknown.
type DeserializeUserFunc[U any] func(r *http.Request, subject string) (U, error)

// ErrorHandlerFunc writes the response for a failure the middleware could
// not absorb.
type ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)

// CookieOptions are the attributes of the token cookie. Expiration is not
// configurable here; it follows Options.TTL.
type CookieOptions struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
	// DisableHTTPOnly exposes the cookie to page scripts. HttpOnly is the default.
	DisableHTTPOnly bool
}

// Options configures a [Middleware]. New copies it; later changes to the
// caller's value have no effect.
type Options[U any] struct {
	// Secret is the HS256 key of the default codec. Required unless Codec is set.
	Secret   []byte
	Audience string
	Issuer   string
	// TTL bounds token lifetime. Zero issues tokens without exp and
	// session-scoped cookies.
	TTL    time.Duration
	Leeway time.Duration

	// Codec replaces the default golang-jwt HS256 manager.
	Codec Codec

	SerializeUser   SerializeUserFunc[U]
	DeserializeUser DeserializeUserFunc[U]

	// Extractor overrides the token lookup chain. When nil, TokenLookup is
	// parsed, and when that is empty too the chain is bearer header then
	// cookie.
	Extractor   Extractor
	TokenLookup string

	VerificationPolicy VerificationPolicy
	Cookie             CookieOptions

	// ErrorHandler receives propagated failures in the net/http adapter.
	ErrorHandler ErrorHandlerFunc

	Logger  *slog.Logger
	Metrics *Metrics
	Tracer  trace.Tracer
	Now     func() time.Time
}

// Validate reports configuration errors. Every error wraps ErrInvalidOptions.
func (o *Options[U]) Validate() error {
	if len(o.Secret) == 0 && o.Codec == nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, ErrMissingSecret)
	}
	if o.SerializeUser == nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, ErrMissingSerializer)
	}
	if o.DeserializeUser == nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, ErrMissingDeserializer)
	}
	if o.TTL < 0 {
		return fmt.Errorf("%w: TTL must be >= 0", ErrInvalidOptions)
	}
	// exp and iat are encoded in whole seconds.
	if o.TTL > 0 && o.TTL < time.Second {
		return fmt.Errorf("%w: TTL must be at least one second", ErrInvalidOptions)
	}
	if o.Leeway < 0 || o.Leeway > maxLeeway {
		return fmt.Errorf("%w: Leeway must be within [0, %s]", ErrInvalidOptions, maxLeeway)
	}
	if o.VerificationPolicy.mode == policyCustom && o.VerificationPolicy.handler == nil {
		return fmt.Errorf("%w: custom verification policy has no handler", ErrInvalidOptions)
	}
	if o.Extractor == nil && o.TokenLookup != "" {
		if _, err := ParseTokenLookup(o.TokenLookup); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
		}
	}
	return nil
}

func (o Options[U]) withDefaults() Options[U] {
	if o.Cookie.Name == "" {
		o.Cookie.Name = DefaultCookieName
	}
	if o.Cookie.Path == "" {
		o.Cookie.Path = "/"
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Tracer == nil {
		o.Tracer = noop.NewTracerProvider().Tracer("sessionless")
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.ErrorHandler == nil {
		o.ErrorHandler = defaultErrorHandler(o.Logger)
	}
	if o.Secret != nil {
		o.Secret = append([]byte(nil), o.Secret...)
	}
	return o
}

func defaultErrorHandler(logger *slog.Logger) ErrorHandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		if IsVerificationError(err) {
			logger.Warn("sessionless: rejecting request with invalid token",
				"path", r.URL.Path, "code", VerificationErrorCode(err), "error", err)
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		logger.Error("sessionless: authentication failed", "path", r.URL.Path, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
