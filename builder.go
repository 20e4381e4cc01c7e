package flasky

import (
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nmheeir/Flask-Web-Development/internal/logging"
	"github.com/nmheeir/Flask-Web-Development/internal/rate"
	"github.com/nmheeir/Flask-Web-Development/password"
	"github.com/nmheeir/Flask-Web-Development/storage"
	"github.com/nmheeir/Flask-Web-Development/token"
)

// Builder assembles an Engine. A Builder is single use: configure it during
// initialization, call Build once and discard it.
type Builder struct {
	config    Config
	store     storage.Manager
	redis     redis.UniversalClient
	logger    *slog.Logger
	auditSink AuditSink
	hasher    password.Hasher
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The value is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStorage sets the persistence layer. Required.
func (b *Builder) WithStorage(m storage.Manager) *Builder {
	b.store = m
	return b
}

// WithRedis enables attempt limiting on token verification when
// Limits.Enabled is set.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithAuditSink sets where audit events go when Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithHasher overrides the password hasher built from Config.Password.
func (b *Builder) WithHasher(h password.Hasher) *Builder {
	b.hasher = h
	return b
}

// WithClock overrides the time source shared by tokens, follow edges, posts
// and logs.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.store == nil {
		return nil, errors.New("storage manager required")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	// -------- TOKENS --------
	tokens, err := token.NewService(token.Config{
		Secret: []byte(cfg.Security.SecretKey),
		MaxAge: cfg.Security.TokenMaxAge,
		Leeway: cfg.Security.TokenLeeway,
		Issuer: cfg.Security.TokenIssuer,
		Now:    now,
	})
	if err != nil {
		return nil, err
	}

	// -------- PASSWORDS --------
	hasher := b.hasher
	if hasher == nil {
		legacy, err := password.NewLegacy(cfg.Password)
		if err != nil {
			return nil, err
		}
		hasher = legacy
	}

	engine := &Engine{
		config:  cloneConfig(cfg),
		store:   b.store,
		tokens:  tokens,
		hasher:  hasher,
		audit:   newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics: NewMetrics(cfg.Metrics),
		logger:  logging.NewSlogLogger(b.logger).With("component", "flasky"),
		now:     now,
	}

	// -------- ATTEMPT LIMITER --------
	if cfg.Limits.Enabled && b.redis != nil {
		engine.limiter = rate.New(b.redis, rate.Config{
			MaxAttempts: cfg.Limits.MaxAttempts,
			Window:      cfg.Limits.Window,
			Prefix:      cfg.Limits.RedisPrefix,
		})
	}

	b.built = true

	return engine, nil
}
