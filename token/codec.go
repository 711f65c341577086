package token

import (
	"crypto/ed25519"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the JWS algorithm used by the codec.
type SigningMethod string

const (
	// MethodHS256 signs with a symmetric secret.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with an Ed25519 private key and verifies with the
	// matching public key.
	MethodEd25519 SigningMethod = "ed25519"
)

var (
	// ErrMalformed is returned when a token string cannot be parsed.
	ErrMalformed = errors.New("malformed token")
	// ErrInvalidSignature is returned when the signature does not verify.
	ErrInvalidSignature = errors.New("invalid token signature")
	// ErrExpired is returned when the embedded expiry claim has passed.
	ErrExpired = errors.New("token expired")
	// ErrWrongKind is returned when the kind claim does not match the kind
	// expected by the verifying operation.
	ErrWrongKind = errors.New("unexpected token kind")
)

// Config holds the immutable signing configuration. TTL values are per kind;
// all four must be positive.
type Config struct {
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration

	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	ResetPasswordTTL time.Duration
	VerifyEmailTTL   time.Duration

	// Now is the trusted clock source. Defaults to time.Now.
	Now func() time.Time
}

// Payload is the decoded content of a signed token. It is transient: the
// payload travels inside the token string and is never persisted separately.
type Payload struct {
	Subject   string
	ID        string
	Kind      Kind
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Codec signs and decodes lifecycle tokens. A Codec holds no mutable state
// and is safe for concurrent use.
type Codec struct {
	config Config
}

type lifecycleClaims struct {
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// NewCodec validates cfg and returns a ready codec.
func NewCodec(cfg Config) (*Codec, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 || cfg.ResetPasswordTTL <= 0 || cfg.VerifyEmailTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("hs256 requires private key")
		}
	case MethodEd25519:
		if len(cfg.PrivateKey) > 0 && len(cfg.PrivateKey) != ed25519.PrivateKeySize {
			return nil, errors.New("invalid ed25519 private key")
		}
		if len(cfg.PublicKey) != ed25519.PublicKeySize {
			return nil, errors.New("ed25519 requires public key")
		}
	default:
		return nil, errors.New("unsupported signing method")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Codec{config: cfg}, nil
}

// TTL returns the configured lifetime for the given kind.
func (c *Codec) TTL(kind Kind) time.Duration {
	switch kind {
	case Access:
		return c.config.AccessTTL
	case Refresh:
		return c.config.RefreshTTL
	case ResetPassword:
		return c.config.ResetPasswordTTL
	case VerifyEmail:
		return c.config.VerifyEmailTTL
	default:
		return 0
	}
}

// Issue builds a payload for subject with the kind's configured TTL and signs
// it. The JTI claim is a fresh UUID so two tokens minted in the same instant
// never collide.
func (c *Codec) Issue(subject string, kind Kind) (string, Payload, error) {
	now := c.config.Now()
	payload := Payload{
		Subject:   subject,
		ID:        uuid.NewString(),
		Kind:      kind,
		IssuedAt:  now,
		ExpiresAt: now.Add(c.TTL(kind)),
	}

	signed, err := c.Sign(payload)
	if err != nil {
		return "", Payload{}, err
	}
	return signed, payload, nil
}

// Sign encodes payload into a signed token string. The payload must satisfy
// IssuedAt < ExpiresAt.
func (c *Codec) Sign(payload Payload) (string, error) {
	if payload.Subject == "" {
		return "", errors.New("empty subject")
	}
	if !payload.IssuedAt.Before(payload.ExpiresAt) {
		return "", errors.New("issued-at must precede expiry")
	}

	claims := lifecycleClaims{
		TokenType: payload.Kind.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   payload.Subject,
			ID:        payload.ID,
			IssuedAt:  jwt.NewNumericDate(payload.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(payload.ExpiresAt),
			Issuer:    c.config.Issuer,
		},
	}

	t := jwt.NewWithClaims(c.method(), claims)
	key, err := c.signKey()
	if err != nil {
		return "", err
	}
	return t.SignedString(key)
}

// Decode verifies the signature and expiry of tokenStr and returns its
// payload. Expiry is checked against the codec clock from the signed claim
// alone. Kind matching is the caller's concern; Decode only guarantees the
// kind claim maps to a known Kind.
func (c *Codec) Decode(tokenStr string) (Payload, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.method().Alg()}),
		jwt.WithTimeFunc(c.config.Now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if c.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(c.config.Leeway))
	}
	if c.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(c.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	t, err := parser.ParseWithClaims(tokenStr, &lifecycleClaims{}, func(*jwt.Token) (interface{}, error) {
		return c.verifyKey()
	})
	if err != nil {
		mapped := mapParseError(err)
		if mapped == ErrInvalidSignature && c.expiredUnverified(tokenStr) {
			return Payload{}, ErrExpired
		}
		return Payload{}, mapped
	}

	claims, ok := t.Claims.(*lifecycleClaims)
	if !ok || !t.Valid {
		return Payload{}, ErrMalformed
	}
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return Payload{}, ErrMalformed
	}

	kind, err := ParseKind(claims.TokenType)
	if err != nil {
		return Payload{}, err
	}

	return Payload{
		Subject:   claims.Subject,
		ID:        claims.ID,
		Kind:      kind,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (c *Codec) method() jwt.SigningMethod {
	if c.config.SigningMethod == MethodEd25519 {
		return jwt.SigningMethodEdDSA
	}
	return jwt.SigningMethodHS256
}

func (c *Codec) signKey() (interface{}, error) {
	switch c.config.SigningMethod {
	case MethodEd25519:
		if len(c.config.PrivateKey) != ed25519.PrivateKeySize {
			return nil, errors.New("ed25519 private key not configured")
		}
		return ed25519.PrivateKey(c.config.PrivateKey), nil
	default:
		return c.config.PrivateKey, nil
	}
}

func (c *Codec) verifyKey() (interface{}, error) {
	switch c.config.SigningMethod {
	case MethodEd25519:
		return ed25519.PublicKey(c.config.PublicKey), nil
	default:
		return c.config.PrivateKey, nil
	}
}

// expiredUnverified reports whether the token's unverified expiry claim has
// already passed. Expiry wins over signature failures: an expired token reads
// as expired regardless of signature validity, so a rejected caller learns
// nothing about key material.
func (c *Codec) expiredUnverified(tokenStr string) bool {
	claims := &lifecycleClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !c.config.Now().Add(-c.config.Leeway).Before(claims.ExpiresAt.Time)
}

// mapParseError folds jwt/v5 parser errors into the codec taxonomy.
func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrSignatureInvalid):
		return ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	default:
		return ErrMalformed
	}
}
