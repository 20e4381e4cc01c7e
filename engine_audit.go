package flasky

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nmheeir/Flask-Web-Development/models"
	"github.com/nmheeir/Flask-Web-Development/password"
	"github.com/nmheeir/Flask-Web-Development/storage"
	"github.com/nmheeir/Flask-Web-Development/token"
)

const (
	auditEventAccountCreated      = "account_created"
	auditEventAccountDeleted      = "account_deleted"
	auditEventLogin               = "login"
	auditEventLogout              = "logout"
	auditEventAuthenticate        = "authenticate"
	auditEventEmailConfirm        = "email_confirm"
	auditEventPasswordReset       = "password_reset"
	auditEventPasswordResetIssued = "password_reset_request"
	auditEventEmailChange         = "email_change"
	auditEventEmailChangeIssued   = "email_change_request"
	auditEventAuthToken           = "auth_token"
	auditEventRateLimitTriggered  = "rate_limit_triggered"
	auditEventFollow              = "follow"
	auditEventUnfollow            = "unfollow"
	auditEventPostCreated         = "post_created"
	auditEventCommentModerated    = "comment_moderated"
	auditEventPermissionDenied    = "permission_denied"
)

// AuditErrorCode is the stable, log-safe form of an engine error.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrExpiredToken       AuditErrorCode = "expired_token"
	auditErrWrongPurpose       AuditErrorCode = "wrong_purpose"
	auditErrSubjectMismatch    AuditErrorCode = "subject_mismatch"
	auditErrUserNotFound       AuditErrorCode = "user_not_found"
	auditErrNotFound           AuditErrorCode = "not_found"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrInvalidInput       AuditErrorCode = "invalid_input"
	auditErrPasswordPolicy     AuditErrorCode = "password_policy"
	auditErrPermissionDenied   AuditErrorCode = "permission_denied"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID int64,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		ID:        uuid.NewString(),
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(ctx context.Context, scope string, userID int64) {
	e.metricInc(MetricRateLimitHit)
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, userID, ErrRateLimited, func() map[string]string {
		return map[string]string{"scope": scope}
	})
}

func (e *Engine) emitDenied(ctx context.Context, userID int64, action string) {
	e.metricInc(MetricPermissionDenied)
	e.emitAudit(ctx, auditEventPermissionDenied, false, userID, ErrPermissionDenied, func() map[string]string {
		return map[string]string{"action": action}
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, token.ErrExpiredToken):
		return auditErrExpiredToken
	case errors.Is(err, token.ErrWrongPurpose):
		return auditErrWrongPurpose
	case errors.Is(err, token.ErrInvalidToken):
		return auditErrInvalidToken
	case errors.Is(err, ErrSubjectMismatch):
		return auditErrSubjectMismatch
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrPostNotFound),
		errors.Is(err, ErrCommentNotFound):
		return auditErrNotFound
	case errors.Is(err, ErrDuplicateEmail),
		errors.Is(err, ErrDuplicateUsername):
		return auditErrDuplicate
	case errors.Is(err, ErrInvalidEmail),
		errors.Is(err, ErrInvalidUsername),
		errors.Is(err, ErrEmptyBody):
		return auditErrInvalidInput
	case errors.Is(err, password.ErrPasswordPolicy):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrPermissionDenied):
		return auditErrPermissionDenied
	case errors.Is(err, ErrLimiterUnavailable),
		errors.Is(err, ErrPersistence):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}

// RecordAccountEvent appends a login or logout row to the user's event log.
// An empty sourceAddress falls back to the address attached with
// WithClientIP.
func (e *Engine) RecordAccountEvent(ctx context.Context, userID int64, action, sourceAddress string) (*models.UserLog, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	action = strings.ToLower(strings.TrimSpace(action))
	var eventType string
	switch action {
	case models.ActionLogin:
		eventType = auditEventLogin
	case models.ActionLogout:
		eventType = auditEventLogout
	default:
		return nil, fmt.Errorf("unknown account event action %q", action)
	}

	if sourceAddress == "" {
		sourceAddress = clientIPFromContext(ctx)
	}

	var entry *models.UserLog
	err := e.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := e.loadUser(ctx, tx.Users(), userID); err != nil {
			return err
		}
		entry = &models.UserLog{
			UserID:    userID,
			Action:    action,
			Timestamp: e.timestamp(),
			IP:        sourceAddress,
		}
		return tx.Logs().CreateUserLog(ctx, entry)
	})
	if err != nil {
		return nil, e.persistErr(ctx, "record account event", err)
	}

	e.metricInc(MetricAccountEvent)
	e.emitAudit(ctx, eventType, true, userID, nil, func() map[string]string {
		return map[string]string{"source": sourceAddress}
	})
	return entry, nil
}
