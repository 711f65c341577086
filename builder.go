package tokenvault

import (
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/tokenvault/token"
)

// Builder assembles an Engine. Construction is allocation-only until Build;
// no I/O happens before the first Engine method call.
type Builder struct {
	config   Config
	store    Store
	identity IdentityProvider
	notifier NotificationSender
	sink     AuditSink
	logger   *slog.Logger
	clock    func() time.Time

	built bool
}

// New returns a Builder preloaded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the token store. Required.
func (b *Builder) WithStore(store Store) *Builder {
	b.store = store
	return b
}

// WithIdentityProvider sets the external credential collaborator. Required.
func (b *Builder) WithIdentityProvider(ip IdentityProvider) *Builder {
	b.identity = ip
	return b
}

// WithNotifier sets the out-of-band token sender. Defaults to NoOpSender.
func (b *Builder) WithNotifier(sender NotificationSender) *Builder {
	b.notifier = sender
	return b
}

// WithAuditSink sets the audit sink. Only consulted when audit is enabled in
// the configuration.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	return b
}

// WithLogger sets the structured logger. Defaults to slog.Default.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the trusted clock source shared by the codec and the
// sweeper. Intended for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and dependencies and returns the Engine.
// A Builder builds at most once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.store == nil {
		return nil, errors.New("token store required")
	}
	if b.identity == nil {
		return nil, errors.New("identity provider required")
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	codec, err := token.NewCodec(token.Config{
		SigningMethod:    token.SigningMethod(cfg.Token.SigningMethod),
		PrivateKey:       cloneBytes(cfg.Token.PrivateKey),
		PublicKey:        cloneBytes(cfg.Token.PublicKey),
		Issuer:           cfg.Token.Issuer,
		Leeway:           cfg.Token.Leeway,
		AccessTTL:        cfg.Token.AccessTTL,
		RefreshTTL:       cfg.Token.RefreshTTL,
		ResetPasswordTTL: cfg.Token.ResetPasswordTTL,
		VerifyEmailTTL:   cfg.Token.VerifyEmailTTL,
		Now:              clock,
	})
	if err != nil {
		return nil, err
	}

	notifier := b.notifier
	if notifier == nil {
		notifier = NoOpSender{}
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	engine := &Engine{
		config:    cfg,
		codec:     codec,
		store:     b.store,
		validator: NewValidator(codec, b.store),
		identity:  b.identity,
		notifier:  notifier,
		audit:     newAuditDispatcher(cfg.Audit, b.sink),
		metrics:   NewMetrics(cfg.Metrics),
		logger:    logger,
		clock:     clock,
	}

	b.built = true

	return engine, nil
}
