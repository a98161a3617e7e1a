package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the algorithm used by a [Manager].
type SigningMethod string

const (
	// MethodHS256 signs with a shared secret. It is the default.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with an Ed25519 private key and verifies with its public key.
	MethodEd25519 SigningMethod = "ed25519"
)

const maxLeeway = 2 * time.Minute

// Config configures a [Manager]. It is copied by NewManager and never
// mutated afterwards.
type Config struct {
	SigningMethod SigningMethod
	// Secret is the HS256 key, or the Ed25519 private key (raw or PEM).
	Secret    []byte
	PublicKey []byte
	Issuer    string
	Audience  string
	Leeway    time.Duration
	KeyID     string
	// Now overrides the clock used for verification. Defaults to time.Now.
	Now func() time.Time
}

// Manager signs and verifies compact JWS tokens with golang-jwt.
type Manager struct {
	config    Config
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
}

type registeredClaims struct {
	jwt.RegisteredClaims
}

// NewManager validates cfg and prepares the signing keys.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.SigningMethod == "" {
		cfg.SigningMethod = MethodHS256
	}
	if cfg.Leeway < 0 || cfg.Leeway > maxLeeway {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	m := &Manager{config: cfg}
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.Secret) == 0 {
			return nil, errors.New("hs256 requires a secret")
		}
		m.method = jwt.SigningMethodHS256
		m.signKey = cfg.Secret
		m.verifyKey = cfg.Secret
	case MethodEd25519:
		m.method = jwt.SigningMethodEdDSA
		if len(cfg.Secret) > 0 {
			priv, err := parseEdPrivateKey(cfg.Secret)
			if err != nil {
				return nil, err
			}
			m.signKey = priv
			m.verifyKey = priv.Public()
		}
		if len(cfg.PublicKey) > 0 {
			pub, err := parseEdPublicKey(cfg.PublicKey)
			if err != nil {
				return nil, err
			}
			m.verifyKey = pub
		}
		if m.verifyKey == nil {
			return nil, errors.New("ed25519 requires a private or public key")
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return m, nil
}

// Sign encodes c as a signed token. A Manager configured with only an
// Ed25519 public key cannot sign.
func (m *Manager) Sign(c Claims) (string, error) {
	if m.signKey == nil {
		return "", errors.New("manager has no signing key")
	}

	rc := registeredClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject: c.Subject,
		Issuer:  c.Issuer,
		ID:      c.ID,
	}}
	if c.Audience != "" {
		rc.Audience = jwt.ClaimStrings{c.Audience}
	}
	if !c.IssuedAt.IsZero() {
		rc.IssuedAt = jwt.NewNumericDate(c.IssuedAt)
	}
	if !c.ExpiresAt.IsZero() {
		rc.ExpiresAt = jwt.NewNumericDate(c.ExpiresAt)
	}

	token := jwt.NewWithClaims(m.method, rc)
	if m.config.KeyID != "" {
		token.Header["kid"] = m.config.KeyID
	}

	signed, err := token.SignedString(m.signKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, expiry, audience and issuer of tokenStr.
// Every failure is returned as an [*Error].
func (m *Manager) Verify(tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, NewError(ErrCodeMalformed, errors.New("token is empty"))
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithTimeFunc(m.config.Now),
		jwt.WithIssuedAt(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		options = append(options, jwt.WithAudience(m.config.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &registeredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != m.method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		if m.config.KeyID != "" {
			kid, _ := t.Header["kid"].(string)
			if kid != m.config.KeyID {
				return nil, errors.New("unknown kid")
			}
		}
		return m.verifyKey, nil
	})
	if err != nil {
		return nil, classify(err)
	}

	rc, ok := token.Claims.(*registeredClaims)
	if !ok || !token.Valid {
		return nil, NewError(ErrCodeInvalidToken, jwt.ErrTokenInvalidClaims)
	}

	claims := &Claims{
		Subject: rc.Subject,
		Issuer:  rc.Issuer,
		ID:      rc.ID,
	}
	if len(rc.Audience) > 0 {
		claims.Audience = rc.Audience[0]
	}
	if rc.IssuedAt != nil {
		claims.IssuedAt = rc.IssuedAt.Time
	}
	if rc.ExpiresAt != nil {
		claims.ExpiresAt = rc.ExpiresAt.Time
	}
	if err := claims.Check(); err != nil {
		return nil, err
	}

	return claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return NewError(ErrCodeExpired, err)
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return NewError(ErrCodeNotYetValid, err)
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return NewError(ErrCodeInvalidAudience, err)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return NewError(ErrCodeInvalidIssuer, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return NewError(ErrCodeInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return NewError(ErrCodeMalformed, err)
	default:
		return NewError(ErrCodeInvalidToken, err)
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
