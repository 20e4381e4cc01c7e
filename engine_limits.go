package flasky

import (
	"context"
	"errors"

	"github.com/nmheeir/Flask-Web-Development/internal/rate"
)

// Limiter scopes. Keys end up as "<prefix>:<scope>:<subject>".
const (
	limitScopeLogin = "login"
)

// limitCheck refuses the attempt when subject has no budget left. Without a
// limiter, or without a subject, every attempt is allowed.
func (e *Engine) limitCheck(ctx context.Context, scope, subject string, userID int64) error {
	if e.limiter == nil || subject == "" {
		return nil
	}
	err := e.limiter.Check(ctx, scope, subject)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rate.ErrRateLimited):
		e.emitRateLimit(ctx, scope, userID)
		return ErrRateLimited
	default:
		e.logger.Warn(ctx, "attempt limiter unavailable", "scope", scope, "error", err)
		return ErrLimiterUnavailable
	}
}

// limitFail counts a failed attempt. Exhausting the budget is reported
// through audit; the caller still returns its own error for this attempt.
func (e *Engine) limitFail(ctx context.Context, scope, subject string, userID int64) {
	if e.limiter == nil || subject == "" {
		return
	}
	err := e.limiter.Fail(ctx, scope, subject)
	switch {
	case err == nil:
	case errors.Is(err, rate.ErrRateLimited):
		e.emitRateLimit(ctx, scope, userID)
	default:
		e.logger.Warn(ctx, "attempt limiter unavailable", "scope", scope, "error", err)
	}
}

func (e *Engine) limitReset(ctx context.Context, scope, subject string) {
	if e.limiter == nil || subject == "" {
		return
	}
	if err := e.limiter.Reset(ctx, scope, subject); err != nil {
		e.logger.Warn(ctx, "attempt limiter reset failed", "scope", scope, "error", err)
	}
}
