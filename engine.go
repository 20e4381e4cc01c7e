package flasky

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nmheeir/Flask-Web-Development/follow"
	"github.com/nmheeir/Flask-Web-Development/internal/logging"
	"github.com/nmheeir/Flask-Web-Development/internal/rate"
	"github.com/nmheeir/Flask-Web-Development/models"
	"github.com/nmheeir/Flask-Web-Development/password"
	"github.com/nmheeir/Flask-Web-Development/permission"
	"github.com/nmheeir/Flask-Web-Development/storage"
	"github.com/nmheeir/Flask-Web-Development/token"
)

// Engine is the account, role, follow and post service. Build it with
// [Builder]; its methods are safe for concurrent use.
type Engine struct {
	config  Config
	store   storage.Manager
	tokens  *token.Service
	hasher  password.Hasher
	limiter *rate.Limiter
	audit   *auditDispatcher
	metrics *Metrics
	logger  logging.Logger
	now     func() time.Time
}

// Close stops the audit dispatcher. It does not close the storage manager,
// which the caller owns.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() error {
	if e == nil || e.store == nil || e.tokens == nil {
		return ErrEngineNotReady
	}
	return nil
}

// timestamp returns the engine clock in UTC at microsecond precision, the
// finest resolution every storage backend keeps.
func (e *Engine) timestamp() time.Time {
	return e.now().UTC().Truncate(time.Microsecond)
}

func (e *Engine) graph(tx storage.Tx) *follow.Graph {
	return follow.New(tx.Follows(),
		follow.WithClock(e.timestamp),
		follow.WithPageSize(e.config.Feed.PageSize),
	)
}

// persistErr wraps a storage failure in ErrPersistence and logs it. Errors
// that already carry an engine sentinel pass through untouched.
func (e *Engine) persistErr(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if isDomainError(err) {
		return err
	}
	e.logger.Error(ctx, "storage operation failed", "op", op, "error", err)
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

func isDomainError(err error) bool {
	for _, target := range []error{
		ErrPersistence,
		ErrSubjectMismatch,
		ErrUserNotFound,
		ErrPostNotFound,
		ErrCommentNotFound,
		ErrDuplicateEmail,
		ErrDuplicateUsername,
		ErrInvalidEmail,
		ErrInvalidUsername,
		ErrInvalidCredentials,
		ErrEmptyBody,
		ErrPermissionDenied,
		ErrRateLimited,
		ErrLimiterUnavailable,
		token.ErrInvalidToken,
		token.ErrExpiredToken,
		token.ErrWrongPurpose,
		password.ErrPasswordPolicy,
		follow.ErrTransientUser,
		permission.ErrNoDefaultRole,
		context.Canceled,
		context.DeadlineExceeded,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// loadUser maps a missing row to ErrUserNotFound.
func (e *Engine) loadUser(ctx context.Context, users storage.Users, id int64) (*models.User, error) {
	if id == 0 {
		return nil, ErrUserNotFound
	}
	user, err := users.UserByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, e.persistErr(ctx, "load user", err)
	}
	return user, nil
}

func subjectKey(id int64) string {
	return strconv.FormatInt(id, 10)
}
