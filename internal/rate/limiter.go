package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces limiter keys when Config.Prefix is empty.
const DefaultPrefix = "fl"

// Config holds rate limiter tuning parameters.
type Config struct {
	MaxAttempts int
	Window      time.Duration
	Prefix      string
}

// Limiter counts failed verification attempts per scope and subject using
// Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// Check returns ErrRateLimited when subject has already reached the budget
// for scope. It does not count the attempt.
func (l *Limiter) Check(ctx context.Context, scope, subject string) error {
	count, err := l.redis.Get(ctx, l.key(scope, subject)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count >= int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

// Fail records a failed attempt. It returns ErrRateLimited when this
// failure exhausts the budget.
func (l *Limiter) Fail(ctx context.Context, scope, subject string) error {
	count, err := l.incrementWithTTL(ctx, l.key(scope, subject))
	if err != nil {
		return err
	}
	if count >= int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

// Reset clears the counter after a successful attempt.
func (l *Limiter) Reset(ctx context.Context, scope, subject string) error {
	if err := l.redis.Del(ctx, l.key(scope, subject)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Attempts returns the current counter. Missing keys count as zero.
func (l *Limiter) Attempts(ctx context.Context, scope, subject string) (int, error) {
	count, err := l.redis.Get(ctx, l.key(scope, subject)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Limiter) key(scope, subject string) string {
	return l.config.Prefix + ":" + scope + ":" + subject
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
