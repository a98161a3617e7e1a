// Package jwxcodec is an alternate token primitive built on lestrrat-go/jwx.
// It produces and accepts the same HS256 tokens as the default manager, so
// either can verify what the other signed.
package jwxcodec

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	sljwt "github.com/MrEthical07/sessionless/jwt"
)

const maxSkew = 2 * time.Minute

// Config configures a [Codec].
type Config struct {
	Secret    []byte
	Issuer    string
	Audience  string
	ClockSkew time.Duration
	Now       func() time.Time
}

// Codec signs and verifies HS256 tokens.
type Codec struct {
	cfg Config
}

// New validates cfg and returns a Codec.
func New(cfg Config) (*Codec, error) {
	switch {
	case len(cfg.Secret) == 0:
		return nil, errors.New("secret is required")
	case cfg.ClockSkew < 0 || cfg.ClockSkew > maxSkew:
		return nil, errors.New("invalid clock skew")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Codec{cfg: cfg}, nil
}

// Sign builds and signs a token for c.
func (c *Codec) Sign(claims sljwt.Claims) (string, error) {
	builder := jwt.NewBuilder().Subject(claims.Subject)
	if claims.Audience != "" {
		builder = builder.Audience([]string{claims.Audience})
	}
	if claims.Issuer != "" {
		builder = builder.Issuer(claims.Issuer)
	}
	if claims.ID != "" {
		builder = builder.JwtID(claims.ID)
	}
	if !claims.IssuedAt.IsZero() {
		builder = builder.IssuedAt(claims.IssuedAt)
	}
	if claims.HasExpiry() {
		builder = builder.Expiration(claims.ExpiresAt)
	}

	tok, err := builder.Build()
	if err != nil {
		return "", fmt.Errorf("build token: %w", err)
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, c.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return string(signed), nil
}

// Verify parses token, checks its signature and validates its claims.
func (c *Codec) Verify(token string) (*sljwt.Claims, error) {
	if token == "" {
		return nil, sljwt.NewError(sljwt.ErrCodeMalformed, errors.New("token is empty"))
	}

	parsed, err := jwt.Parse([]byte(token), jwt.WithKey(jwa.HS256, c.cfg.Secret), jwt.WithValidate(false))
	if err != nil {
		return nil, classifyParseError(err)
	}

	validateOpts := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(c.cfg.Now)),
		jwt.WithAcceptableSkew(c.cfg.ClockSkew),
	}
	if c.cfg.Issuer != "" {
		validateOpts = append(validateOpts, jwt.WithIssuer(c.cfg.Issuer))
	}
	if c.cfg.Audience != "" {
		validateOpts = append(validateOpts, jwt.WithAudience(c.cfg.Audience))
	}
	if err := jwt.Validate(parsed, validateOpts...); err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired()):
			return nil, sljwt.NewError(sljwt.ErrCodeExpired, err)
		case errors.Is(err, jwt.ErrTokenNotYetValid()):
			return nil, sljwt.NewError(sljwt.ErrCodeNotYetValid, err)
		case errors.Is(err, jwt.ErrInvalidAudience()):
			return nil, sljwt.NewError(sljwt.ErrCodeInvalidAudience, err)
		case errors.Is(err, jwt.ErrInvalidIssuer()):
			return nil, sljwt.NewError(sljwt.ErrCodeInvalidIssuer, err)
		default:
			return nil, sljwt.NewError(sljwt.ErrCodeInvalidClaims, err)
		}
	}

	claims := &sljwt.Claims{
		Subject:   parsed.Subject(),
		Issuer:    parsed.Issuer(),
		ID:        parsed.JwtID(),
		IssuedAt:  parsed.IssuedAt(),
		ExpiresAt: parsed.Expiration(),
	}
	if aud := parsed.Audience(); len(aud) > 0 {
		claims.Audience = aud[0]
	}
	if err := claims.Check(); err != nil {
		return nil, err
	}
	return claims, nil
}

func classifyParseError(err error) error {
	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "verify") || strings.Contains(lower, "signature") {
		return sljwt.NewError(sljwt.ErrCodeInvalidSignature, err)
	}
	return sljwt.NewError(sljwt.ErrCodeMalformed, err)
}
