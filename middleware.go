package sessionless

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/MrEthical07/sessionless/jwt"
)

// Middleware authenticates requests. Build it once with [New]; it is
// read-only afterwards and shared by all requests.
type Middleware[U any] struct {
	opts      Options[U]
	codec     Codec
	transport *CookieTransport
	extract   Extractor
}

// New validates opts, applies defaults and returns a ready middleware.
func New[U any](opts Options[U]) (*Middleware[U], error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	codec := opts.Codec
	if codec == nil {
		manager, err := jwt.NewManager(jwt.Config{
			SigningMethod: jwt.MethodHS256,
			Secret:        opts.Secret,
			Issuer:        opts.Issuer,
			Audience:      opts.Audience,
			Leeway:        opts.Leeway,
			Now:           opts.Now,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
		}
		codec = manager
	}

	transport := NewCookieTransport(opts.Cookie)

	extract := opts.Extractor
	if extract == nil && opts.TokenLookup != "" {
		parsed, err := ParseTokenLookup(opts.TokenLookup)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
		}
		extract = parsed
	}
	if extract == nil {
		extract = FromExtractors(FromBearerToken(), transport.Extract)
	}

	return &Middleware[U]{
		opts:      opts,
		codec:     codec,
		transport: transport,
		extract:   extract,
	}, nil
}

// Metrics returns the metrics registry, which may be nil.
func (m *Middleware[U]) Metrics() *Metrics {
	return m.opts.Metrics
}

// MetricsSnapshot copies the current metric values. It lets a Middleware
// act as the source of the exporters under metrics/export.
func (m *Middleware[U]) MetricsSnapshot() MetricsSnapshot {
	return m.opts.Metrics.Snapshot()
}

// Transport returns the cookie transport used for issue and revoke.
func (m *Middleware[U]) Transport() *CookieTransport {
	return m.transport
}

// Handler wraps next. Propagated failures go to Options.ErrorHandler and
// next is not called; every other outcome reaches next.
func (m *Middleware[U]) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, err := m.Authenticate(w, r)
		if err != nil {
			m.opts.ErrorHandler(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Authenticate runs the per-request flow and returns r with its [Auth]
// attached. The returned request is valid even when err is non-nil.
func (m *Middleware[U]) Authenticate(w http.ResponseWriter, r *http.Request) (*http.Request, error) {
	ctx, span := m.opts.Tracer.Start(r.Context(), "sessionless.authenticate")
	defer span.End()

	auth := &Auth[U]{m: m, w: w}
	r = r.WithContext(context.WithValue(ctx, authContextKey{}, auth))

	token := m.extract(r)
	if token == "" {
		m.opts.Metrics.Inc(MetricTokenAbsent)
		span.SetAttributes(attribute.String("sessionless.outcome", "no_token"))
		return r, nil
	}

	claims, err := m.verify(w, r, token)
	if err != nil {
		span.SetStatus(codes.Error, "verification failed")
		return r, err
	}
	if claims == nil {
		span.SetAttributes(attribute.String("sessionless.outcome", "verification_failed"))
		return r, nil
	}
	if claims.Subject == "" {
		m.opts.Metrics.Inc(MetricSubjectMissing)
		span.SetAttributes(attribute.String("sessionless.outcome", "no_subject"))
		return r, nil
	}

	user, err := m.deserialize(r, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			m.opts.Metrics.Inc(MetricUserNotFound)
			span.SetAttributes(attribute.String("sessionless.outcome", "user_not_found"))
			return r, nil
		}
		m.opts.Metrics.Inc(MetricDeserializeFailure)
		span.RecordError(err)
		span.SetStatus(codes.Error, "deserialize failed")
		return r, fmt.Errorf("deserialize user: %w", err)
	}

	auth.user = user
	auth.claims = claims
	auth.token = token
	auth.authenticated = true
	m.opts.Metrics.Inc(MetricUserResolved)
	span.SetAttributes(attribute.String("sessionless.outcome", "authenticated"))
	return r, nil
}

func (m *Middleware[U]) deserialize(r *http.Request, subject string) (U, error) {
	_, span := m.opts.Tracer.Start(r.Context(), "sessionless.deserialize_user")
	defer span.End()
	return m.opts.DeserializeUser(r, subject)
}
