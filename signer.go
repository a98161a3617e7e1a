package sessionless

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/MrEthical07/sessionless/jwt"
)

// Sign serializes user and returns a signed token. Failures are always
// returned to the caller.
func (m *Middleware[U]) Sign(ctx context.Context, user U) (string, error) {
	token, _, err := m.sign(ctx, user)
	return token, err
}

func (m *Middleware[U]) sign(ctx context.Context, user U) (string, jwt.Claims, error) {
	ctx, span := m.opts.Tracer.Start(ctx, "sessionless.sign")
	defer span.End()

	subject, err := m.opts.SerializeUser(ctx, user)
	if err != nil {
		m.opts.Metrics.Inc(MetricSignFailure)
		span.RecordError(err)
		return "", jwt.Claims{}, fmt.Errorf("serialize user: %w", err)
	}
	if subject == "" {
		m.opts.Metrics.Inc(MetricSignFailure)
		return "", jwt.Claims{}, ErrEmptySubject
	}

	now := m.opts.Now()
	claims := jwt.Claims{
		Subject:  subject,
		Audience: m.opts.Audience,
		Issuer:   m.opts.Issuer,
		ID:       uuid.NewString(),
		IssuedAt: now,
	}
	if m.opts.TTL > 0 {
		claims.ExpiresAt = now.Add(m.opts.TTL)
	}

	token, err := m.codec.Sign(claims)
	if err != nil {
		m.opts.Metrics.Inc(MetricSignFailure)
		span.RecordError(err)
		return "", jwt.Claims{}, fmt.Errorf("sign token: %w", err)
	}

	m.opts.Metrics.Inc(MetricTokenSigned)
	return token, claims, nil
}

// IssueCookie signs a token for user and writes it as the token cookie.
// With a TTL the cookie expires with the token; without one it is a
// session cookie.
func (m *Middleware[U]) IssueCookie(ctx context.Context, w http.ResponseWriter, user U) error {
	token, claims, err := m.sign(ctx, user)
	if err != nil {
		return err
	}
	m.transport.Issue(w, token, claims.ExpiresAt)
	m.opts.Metrics.Inc(MetricCookieIssued)
	m.opts.Logger.Debug("sessionless: issued token cookie", "cookie", m.transport.Name(), "subject", claims.Subject)
	return nil
}

// RevokeCookie clears the token cookie unconditionally.
func (m *Middleware[U]) RevokeCookie(w http.ResponseWriter) {
	m.transport.Revoke(w)
	m.opts.Metrics.Inc(MetricCookieRevoked)
}
