package tokenvault

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the engine's immutable configuration. It is cloned at Build;
// the engine never observes later mutations.
type Config struct {
	Token   TokenConfig
	Audit   AuditConfig
	Metrics MetricsConfig
	Sweep   SweepConfig
}

// TokenConfig mirrors the codec configuration: signing material and per-kind
// expiry durations. Durations are inputs, never hard-coded policy.
type TokenConfig struct {
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration

	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	ResetPasswordTTL time.Duration
	VerifyEmailTTL   time.Duration
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// SweepConfig controls the optional expired-record sweeper started by
// [Engine.StartSweeper]. The sweep is advisory; verification never depends
// on it.
type SweepConfig struct {
	Interval time.Duration
}

// DefaultConfig returns the baseline configuration: HS256 signing, 15m
// access, 720h refresh, 10m reset, 24h verify-email. Signing key material
// must still be supplied before Build.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			SigningMethod:    "hs256",
			AccessTTL:        15 * time.Minute,
			RefreshTTL:       30 * 24 * time.Hour,
			ResetPasswordTTL: 10 * time.Minute,
			VerifyEmailTTL:   24 * time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Sweep: SweepConfig{
			Interval: time.Hour,
		},
	}
}

// Validate rejects configurations the codec or dispatcher cannot honor.
// Signing-key validation is the codec's job; this catches structural issues
// before Build reaches it.
func (c *Config) Validate() error {
	if c.Token.AccessTTL <= 0 || c.Token.RefreshTTL <= 0 ||
		c.Token.ResetPasswordTTL <= 0 || c.Token.VerifyEmailTTL <= 0 {
		return errors.New("all token TTLs must be positive")
	}
	if c.Token.AccessTTL >= c.Token.RefreshTTL {
		return errors.New("access TTL must be shorter than refresh TTL")
	}
	if c.Audit.Enabled && c.Audit.BufferSize < 0 {
		return errors.New("audit buffer size must not be negative")
	}
	if c.Sweep.Interval < 0 {
		return errors.New("sweep interval must not be negative")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.PrivateKey = cloneBytes(cfg.Token.PrivateKey)
	out.Token.PublicKey = cloneBytes(cfg.Token.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// envSpec is the environment-variable surface of Config. Keys are plain
// strings for HS256 and base64 (std encoding) for Ed25519 key material.
type envSpec struct {
	SigningMethod    string        `env:"TOKENVAULT_SIGNING_METHOD" envDefault:"hs256"`
	Secret           string        `env:"TOKENVAULT_SECRET"`
	PrivateKeyBase64 string        `env:"TOKENVAULT_PRIVATE_KEY"`
	PublicKeyBase64  string        `env:"TOKENVAULT_PUBLIC_KEY"`
	Issuer           string        `env:"TOKENVAULT_ISSUER"`
	Leeway           time.Duration `env:"TOKENVAULT_LEEWAY" envDefault:"0s"`
	AccessTTL        time.Duration `env:"TOKENVAULT_ACCESS_TTL" envDefault:"15m"`
	RefreshTTL       time.Duration `env:"TOKENVAULT_REFRESH_TTL" envDefault:"720h"`
	ResetPasswordTTL time.Duration `env:"TOKENVAULT_RESET_PASSWORD_TTL" envDefault:"10m"`
	VerifyEmailTTL   time.Duration `env:"TOKENVAULT_VERIFY_EMAIL_TTL" envDefault:"24h"`
	AuditEnabled     bool          `env:"TOKENVAULT_AUDIT_ENABLED" envDefault:"false"`
	AuditBufferSize  int           `env:"TOKENVAULT_AUDIT_BUFFER" envDefault:"256"`
	MetricsEnabled   bool          `env:"TOKENVAULT_METRICS_ENABLED" envDefault:"false"`
	SweepInterval    time.Duration `env:"TOKENVAULT_SWEEP_INTERVAL" envDefault:"1h"`
}

// FromEnv builds a Config from environment variables, loading a .env file
// first when one exists.
func FromEnv() (Config, error) {
	_ = godotenv.Load()

	var spec envSpec
	if err := env.Parse(&spec); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	cfg := defaultConfig()
	cfg.Token.SigningMethod = spec.SigningMethod
	cfg.Token.Issuer = spec.Issuer
	cfg.Token.Leeway = spec.Leeway
	cfg.Token.AccessTTL = spec.AccessTTL
	cfg.Token.RefreshTTL = spec.RefreshTTL
	cfg.Token.ResetPasswordTTL = spec.ResetPasswordTTL
	cfg.Token.VerifyEmailTTL = spec.VerifyEmailTTL
	cfg.Audit.Enabled = spec.AuditEnabled
	cfg.Audit.BufferSize = spec.AuditBufferSize
	cfg.Metrics.Enabled = spec.MetricsEnabled
	cfg.Sweep.Interval = spec.SweepInterval

	switch spec.SigningMethod {
	case "ed25519":
		priv, err := decodeKey(spec.PrivateKeyBase64)
		if err != nil {
			return Config{}, fmt.Errorf("TOKENVAULT_PRIVATE_KEY: %w", err)
		}
		pub, err := decodeKey(spec.PublicKeyBase64)
		if err != nil {
			return Config{}, fmt.Errorf("TOKENVAULT_PUBLIC_KEY: %w", err)
		}
		cfg.Token.PrivateKey = priv
		cfg.Token.PublicKey = pub
	default:
		cfg.Token.PrivateKey = []byte(spec.Secret)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeKey(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 key: %w", err)
	}
	return raw, nil
}
