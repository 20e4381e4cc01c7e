package flasky

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nmheeir/Flask-Web-Development/follow"
	"github.com/nmheeir/Flask-Web-Development/password"
	"github.com/nmheeir/Flask-Web-Development/permission"
)

// Config is the engine configuration. Build validates it; zero values are
// not filled in, so start from DefaultConfig.
type Config struct {
	Security SecurityConfig  `yaml:"security"`
	Accounts AccountsConfig  `yaml:"accounts"`
	Password password.Config `yaml:"password"`
	Limits   LimitsConfig    `yaml:"limits"`
	Audit    AuditConfig     `yaml:"audit"`
	Metrics  MetricsConfig   `yaml:"metrics"`
	Feed     FeedConfig      `yaml:"feed"`
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig controls token signing and lifetimes.
type SecurityConfig struct {
	SecretKey       string        `yaml:"secret_key"`
	TokenMaxAge     time.Duration `yaml:"token_max_age"`
	AuthTokenMaxAge time.Duration `yaml:"auth_token_max_age"`
	TokenLeeway     time.Duration `yaml:"token_leeway"`
	TokenIssuer     string        `yaml:"token_issuer"`
}

/*
====================================
ACCOUNTS CONFIG
====================================
*/

// AccountsConfig controls role bootstrap and assignment.
type AccountsConfig struct {
	AdminEmail  string       `yaml:"admin_email"`
	DefaultRole string       `yaml:"default_role"`
	Roles       []RoleConfig `yaml:"roles"`
}

// RoleConfig is one role definition. Permissions is a "|" separated list of
// permission names, such as "FOLLOW|COMMENT|WRITE".
type RoleConfig struct {
	Name        string `yaml:"name"`
	Permissions string `yaml:"permissions"`
}

// RoleDefs converts the configured roles to bootstrap definitions.
func (c AccountsConfig) RoleDefs() ([]permission.RoleDef, error) {
	defs := make([]permission.RoleDef, 0, len(c.Roles))
	for _, rc := range c.Roles {
		mask, err := permission.ParseMask(rc.Permissions)
		if err != nil {
			return nil, fmt.Errorf("role %q: %w", rc.Name, err)
		}
		defs = append(defs, permission.RoleDef{
			Name:        strings.TrimSpace(rc.Name),
			Permissions: mask.Permissions(),
		})
	}
	return defs, nil
}

/*
====================================
LIMITS CONFIG
====================================
*/

// LimitsConfig controls the Redis attempt limiter for token verification.
// It only takes effect when a Redis client is supplied.
type LimitsConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxAttempts int           `yaml:"max_attempts"`
	Window      time.Duration `yaml:"window"`
	RedisPrefix string        `yaml:"redis_prefix"`
}

/*
====================================
AUDIT / METRICS / FEED
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

// FeedConfig controls followed-post feeds.
type FeedConfig struct {
	PageSize int `yaml:"page_size"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns a configuration with every field but the secret key
// set. Roles are the stock User, Moderator and Administrator.
func DefaultConfig() Config {
	defs := permission.DefaultRoleDefs()
	roles := make([]RoleConfig, 0, len(defs))
	for _, def := range defs {
		var mask permission.Mask
		for _, p := range def.Permissions {
			mask = mask.Add(p)
		}
		roles = append(roles, RoleConfig{Name: def.Name, Permissions: permission.FormatMask(mask)})
	}

	return Config{
		Security: SecurityConfig{
			TokenMaxAge:     time.Hour,
			AuthTokenMaxAge: time.Hour,
			TokenLeeway:     30 * time.Second,
		},
		Accounts: AccountsConfig{
			DefaultRole: permission.DefaultRoleName,
			Roles:       roles,
		},
		Password: password.DefaultConfig(),
		Limits: LimitsConfig{
			Enabled:     true,
			MaxAttempts: 5,
			Window:      15 * time.Minute,
			RedisPrefix: "fl",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Feed: FeedConfig{
			PageSize: follow.DefaultPageSize,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Accounts.Roles = append([]RoleConfig(nil), cfg.Accounts.Roles...)
	return out
}

// Validate returns the first violation found in c.
func (c *Config) Validate() error {
	// Security
	if strings.TrimSpace(c.Security.SecretKey) == "" {
		return errors.New("Security SecretKey must be set")
	}
	if len(c.Security.SecretKey) < 16 {
		return errors.New("Security SecretKey must be at least 16 bytes")
	}
	if c.Security.TokenMaxAge <= 0 {
		return errors.New("Security TokenMaxAge must be > 0")
	}
	if c.Security.AuthTokenMaxAge <= 0 {
		return errors.New("Security AuthTokenMaxAge must be > 0")
	}
	if c.Security.TokenLeeway < 0 || c.Security.TokenLeeway > 2*time.Minute {
		return errors.New("Security TokenLeeway must be between 0 and 2m")
	}

	// Accounts
	defs, err := c.Accounts.RoleDefs()
	if err != nil {
		return fmt.Errorf("Accounts Roles: %w", err)
	}
	if err := permission.ValidateDefs(defs, c.Accounts.DefaultRole); err != nil {
		return fmt.Errorf("Accounts Roles: %w", err)
	}
	if c.Accounts.AdminEmail != "" && !strings.Contains(c.Accounts.AdminEmail, "@") {
		return errors.New("Accounts AdminEmail must be an email address")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}

	// Limits
	if c.Limits.Enabled {
		if c.Limits.MaxAttempts <= 0 {
			return errors.New("Limits MaxAttempts must be > 0")
		}
		if c.Limits.Window <= 0 {
			return errors.New("Limits Window must be > 0")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	// Feed
	if c.Feed.PageSize <= 0 {
		return errors.New("Feed PageSize must be > 0")
	}

	return nil
}
