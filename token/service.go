package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Purpose names the flow a token was minted for.
type Purpose string

const (
	PurposeConfirmEmail  Purpose = "confirm-email"
	PurposeResetPassword Purpose = "reset-password"
	PurposeChangeEmail   Purpose = "change-email"
	PurposeAuth          Purpose = "auth"
)

var purposes = [...]Purpose{
	PurposeConfirmEmail,
	PurposeResetPassword,
	PurposeChangeEmail,
	PurposeAuth,
}

// Valid reports whether p is one of the known purposes.
func (p Purpose) Valid() bool {
	for _, known := range purposes {
		if p == known {
			return true
		}
	}
	return false
}

// DefaultMaxAge matches the one hour lifetime used for emailed links.
const DefaultMaxAge = time.Hour

// maxTokenLength bounds the input accepted by Verify.
const maxTokenLength = 4096

var (
	// ErrInvalidToken covers malformed, unsigned and tampered tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the token is older than the allowed max age.
	ErrExpiredToken = errors.New("token expired")
	// ErrWrongPurpose is returned for a genuine token minted for another flow.
	ErrWrongPurpose = errors.New("token purpose mismatch")
	// ErrUnknownPurpose is returned when a caller asks for an undefined purpose.
	ErrUnknownPurpose = errors.New("unknown token purpose")
)

// Config controls a Service.
type Config struct {
	// Secret is the shared signing secret. Per-purpose keys are derived from it.
	Secret []byte
	// MaxAge is used by Verify when the caller passes a non-positive max age.
	MaxAge time.Duration
	// Leeway tolerates clock skew on the issue time. Defaults to 30s.
	Leeway time.Duration
	// Issuer, when set, is written to and required on every token.
	Issuer string
	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// Payload is the verified content of a token.
type Payload struct {
	Purpose  Purpose
	Subject  int64
	Extra    string
	IssuedAt time.Time
	ID       string
}

type claims struct {
	Purpose Purpose `json:"pur"`
	Extra   string  `json:"ext,omitempty"`
	jwt.RegisteredClaims
}

// Service signs and verifies tokens. It holds no mutable state and is safe
// for concurrent use.
type Service struct {
	config Config
	keys   map[Purpose][]byte
	parser *jwt.Parser
}

// NewService validates cfg and derives the per-purpose keys.
func NewService(cfg Config) (*Service, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token secret must not be empty")
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	if cfg.MaxAge < 0 {
		return nil, errors.New("invalid max age configuration")
	}
	if cfg.Leeway == 0 {
		cfg.Leeway = 30 * time.Second
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	keys := make(map[Purpose][]byte, len(purposes))
	for _, p := range purposes {
		keys[p] = deriveKey(cfg.Secret, p)
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	}

	return &Service{
		config: cfg,
		keys:   keys,
		parser: jwt.NewParser(options...),
	}, nil
}

// deriveKey salts the secret with the purpose name.
func deriveKey(secret []byte, p Purpose) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte("flasky/"))
	mac.Write([]byte(p))
	return mac.Sum(nil)
}

// MaxAge returns the default max age applied by Verify.
func (s *Service) MaxAge() time.Duration {
	return s.config.MaxAge
}

// Issue mints a token for purpose carrying subject and an optional extra
// value, such as the new address for an email change.
func (s *Service) Issue(purpose Purpose, subject int64, extra string) (string, error) {
	key, ok := s.keys[purpose]
	if !ok {
		return "", ErrUnknownPurpose
	}

	now := s.config.Now()
	c := claims{
		Purpose: purpose,
		Extra:   extra,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  strconv.FormatInt(subject, 10),
			IssuedAt: jwt.NewNumericDate(now),
			ID:       uuid.NewString(),
			Issuer:   s.config.Issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks tok against purpose. Checks run in order: signature and
// structure, then age (issued-at plus maxAge must not be before now), then
// purpose. A non-positive maxAge uses the configured default.
func (s *Service) Verify(purpose Purpose, tok string, maxAge time.Duration) (Payload, error) {
	if !purpose.Valid() {
		return Payload{}, ErrUnknownPurpose
	}
	if maxAge <= 0 {
		maxAge = s.config.MaxAge
	}
	if tok == "" || len(tok) > maxTokenLength {
		return Payload{}, ErrInvalidToken
	}

	c := &claims{}
	parsed, err := s.parser.ParseWithClaims(tok, c, func(t *jwt.Token) (interface{}, error) {
		tc, ok := t.Claims.(*claims)
		if !ok {
			return nil, ErrInvalidToken
		}
		key, ok := s.keys[tc.Purpose]
		if !ok {
			return nil, ErrInvalidToken
		}
		return key, nil
	})
	if err != nil || !parsed.Valid {
		return Payload{}, ErrInvalidToken
	}

	subject, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return Payload{}, ErrInvalidToken
	}
	if c.IssuedAt == nil {
		return Payload{}, ErrInvalidToken
	}
	if s.config.Issuer != "" && c.Issuer != s.config.Issuer {
		return Payload{}, ErrInvalidToken
	}

	now := s.config.Now()
	issued := c.IssuedAt.Time
	if issued.After(now.Add(s.config.Leeway)) {
		return Payload{}, ErrInvalidToken
	}
	if issued.Add(maxAge).Before(now) {
		return Payload{}, ErrExpiredToken
	}

	if c.Purpose != purpose {
		return Payload{}, ErrWrongPurpose
	}

	return Payload{
		Purpose:  c.Purpose,
		Subject:  subject,
		Extra:    c.Extra,
		IssuedAt: issued,
		ID:       c.ID,
	}, nil
}

// Issue mints a token with secret using the wall clock.
func Issue(secret []byte, purpose Purpose, subject int64, extra string) (string, error) {
	svc, err := NewService(Config{Secret: secret})
	if err != nil {
		return "", err
	}
	return svc.Issue(purpose, subject, extra)
}

// Verify checks tok with secret using the wall clock. Setup errors, such as
// an empty secret, are reported as ErrInvalidToken.
func Verify(secret []byte, purpose Purpose, tok string, maxAge time.Duration) (Payload, error) {
	svc, err := NewService(Config{Secret: secret})
	if err != nil {
		return Payload{}, ErrInvalidToken
	}
	return svc.Verify(purpose, tok, maxAge)
}
