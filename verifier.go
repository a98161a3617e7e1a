package sessionless

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/MrEthical07/sessionless/jwt"
)

// Verify checks token with the configured codec. Every error it returns is
// a [*jwt.Error].
func (m *Middleware[U]) Verify(ctx context.Context, token string) (*jwt.Claims, error) {
	_, span := m.opts.Tracer.Start(ctx, "sessionless.verify")
	defer span.End()

	start := time.Now()
	claims, err := m.codec.Verify(token)
	m.opts.Metrics.Observe(MetricVerifyLatency, time.Since(start))

	if err == nil && claims == nil {
		err = errors.New("codec returned no claims")
	}
	if err != nil {
		if _, ok := jwt.AsError(err); !ok {
			err = jwt.NewError(jwt.ErrCodeInvalidToken, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, string(VerificationErrorCode(err)))
		return nil, err
	}
	return claims, nil
}

// verify applies the verification policy. (nil, nil) means the token is to
// be treated as absent.
func (m *Middleware[U]) verify(w http.ResponseWriter, r *http.Request, token string) (*jwt.Claims, error) {
	claims, err := m.Verify(r.Context(), token)
	if err == nil {
		m.opts.Metrics.Inc(MetricTokenVerified)
		return claims, nil
	}

	m.opts.Metrics.Inc(MetricVerificationFailure)
	policy := m.opts.VerificationPolicy
	switch policy.mode {
	case policySuppress:
		m.opts.Metrics.Inc(MetricVerificationSuppressed)
		m.opts.Logger.Debug("sessionless: ignoring invalid token",
			"path", r.URL.Path, "code", VerificationErrorCode(err))
		return nil, nil
	case policyCustom:
		m.opts.Metrics.Inc(MetricVerificationHandled)
		if herr := policy.handler(w, r, err); herr != nil {
			m.opts.Metrics.Inc(MetricVerificationPropagated)
			return nil, herr
		}
		m.opts.Logger.Warn("sessionless: invalid token handled",
			"path", r.URL.Path, "code", VerificationErrorCode(err))
		return nil, nil
	default:
		m.opts.Metrics.Inc(MetricVerificationPropagated)
		return nil, err
	}
}
