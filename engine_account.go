package flasky

import (
	"context"
	"errors"
	"time"

	"github.com/nmheeir/Flask-Web-Development/internal/flows"
	"github.com/nmheeir/Flask-Web-Development/models"
	"github.com/nmheeir/Flask-Web-Development/storage"
	"github.com/nmheeir/Flask-Web-Development/token"
)

// verifyToken checks tok and records the verification latency.
func (e *Engine) verifyToken(purpose token.Purpose, tok string, maxAge time.Duration) (token.Payload, error) {
	start := time.Now()
	payload, err := e.tokens.Verify(purpose, tok, maxAge)
	e.metrics.Observe(MetricTokenVerifyLatency, time.Since(start))
	return payload, err
}

func (e *Engine) lifecycleDeps(ctx context.Context, tx storage.Tx) flows.LifecycleDeps {
	return flows.LifecycleDeps{
		Verify: e.verifyToken,
		Issue:  e.tokens.Issue,
		LookupUser: func(id int64) (*models.User, error) {
			user, err := tx.Users().UserByID(ctx, id)
			if errors.Is(err, storage.ErrNotFound) {
				return nil, nil
			}
			return user, err
		},
		EmailOwner: func(email string) (int64, error) {
			user, err := tx.Users().UserByEmail(ctx, email)
			if errors.Is(err, storage.ErrNotFound) {
				return 0, nil
			}
			if err != nil {
				return 0, err
			}
			return user.ID, nil
		},
		HashPassword: e.hasher.Hash,
		Errors: flows.LifecycleErrors{
			SubjectMismatch: ErrSubjectMismatch,
			UserNotFound:    ErrUserNotFound,
			DuplicateEmail:  ErrDuplicateEmail,
		},
	}
}

// isTokenFailure reports whether err counts against the attempt budget.
func isTokenFailure(err error) bool {
	return errors.Is(err, token.ErrInvalidToken) ||
		errors.Is(err, token.ErrExpiredToken) ||
		errors.Is(err, token.ErrWrongPurpose) ||
		errors.Is(err, ErrSubjectMismatch)
}

// tokenAttempt describes one limited token verification.
type tokenAttempt struct {
	purpose token.Purpose
	// subject keys the attempt budget. Empty disables limiting.
	subject string
	userID  int64
	event   string
	success MetricID
	failure MetricID
}

// attempt runs fn in a transaction under the attempt limiter and records the
// outcome. fn returns the id of the affected user for audit.
func (e *Engine) attempt(ctx context.Context, a tokenAttempt, fn func(ctx context.Context, tx storage.Tx) (int64, error)) error {
	scope := string(a.purpose)
	if err := e.limitCheck(ctx, scope, a.subject, a.userID); err != nil {
		return err
	}

	userID := a.userID
	err := e.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		id, err := fn(ctx, tx)
		if id != 0 {
			userID = id
		}
		return err
	})
	if err != nil {
		if isTokenFailure(err) {
			e.limitFail(ctx, scope, a.subject, userID)
		}
		e.metricInc(a.failure)
		e.emitAudit(ctx, a.event, false, userID, err, nil)
		return e.persistErr(ctx, scope, err)
	}

	e.limitReset(ctx, scope, a.subject)
	e.metricInc(a.success)
	e.emitAudit(ctx, a.event, true, userID, nil, nil)
	return nil
}

// ConfirmEmail marks userID as confirmed when tok is a confirm-email token
// issued for it. Confirming an already confirmed account succeeds.
func (e *Engine) ConfirmEmail(ctx context.Context, userID int64, tok string) error {
	if err := e.ready(); err != nil {
		return err
	}

	return e.attempt(ctx, tokenAttempt{
		purpose: token.PurposeConfirmEmail,
		subject: subjectKey(userID),
		userID:  userID,
		event:   auditEventEmailConfirm,
		success: MetricEmailConfirmSuccess,
		failure: MetricEmailConfirmFailure,
	}, func(ctx context.Context, tx storage.Tx) (int64, error) {
		user, err := e.loadUser(ctx, tx.Users(), userID)
		if err != nil {
			return 0, err
		}
		if _, err := flows.RunConfirmEmail(user, tok, e.config.Security.TokenMaxAge, e.lifecycleDeps(ctx, tx)); err != nil {
			return 0, err
		}
		return user.ID, tx.Users().UpdateUser(ctx, user)
	})
}

// ResetPassword sets a new password for the subject of a reset-password
// token. Tokens older than Security.TokenMaxAge are rejected. Attempts are
// limited per client address.
func (e *Engine) ResetPassword(ctx context.Context, tok, newPassword string) error {
	if err := e.ready(); err != nil {
		return err
	}

	return e.attempt(ctx, tokenAttempt{
		purpose: token.PurposeResetPassword,
		subject: clientIPFromContext(ctx),
		event:   auditEventPasswordReset,
		success: MetricPasswordResetSuccess,
		failure: MetricPasswordResetFailure,
	}, func(ctx context.Context, tx storage.Tx) (int64, error) {
		user, _, err := flows.RunResetPassword(tok, newPassword, e.config.Security.TokenMaxAge, e.lifecycleDeps(ctx, tx))
		if err != nil {
			return 0, err
		}
		return user.ID, tx.Users().UpdateUser(ctx, user)
	})
}

// ChangeEmail moves userID to the address carried by a change-email token.
func (e *Engine) ChangeEmail(ctx context.Context, userID int64, tok string) error {
	if err := e.ready(); err != nil {
		return err
	}

	return e.attempt(ctx, tokenAttempt{
		purpose: token.PurposeChangeEmail,
		subject: subjectKey(userID),
		userID:  userID,
		event:   auditEventEmailChange,
		success: MetricEmailChangeSuccess,
		failure: MetricEmailChangeFailure,
	}, func(ctx context.Context, tx storage.Tx) (int64, error) {
		user, err := e.loadUser(ctx, tx.Users(), userID)
		if err != nil {
			return 0, err
		}
		if _, err := flows.RunChangeEmail(user, tok, e.config.Security.TokenMaxAge, e.lifecycleDeps(ctx, tx)); err != nil {
			return 0, err
		}
		err = tx.Users().UpdateUser(ctx, user)
		if errors.Is(err, storage.ErrConflict) {
			return user.ID, ErrDuplicateEmail
		}
		return user.ID, err
	})
}

// VerifyAuthToken resolves an API token to its user. Tokens older than
// Security.AuthTokenMaxAge are rejected.
func (e *Engine) VerifyAuthToken(ctx context.Context, tok string) (*models.User, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	var user *models.User
	err := e.attempt(ctx, tokenAttempt{
		purpose: token.PurposeAuth,
		subject: clientIPFromContext(ctx),
		event:   auditEventAuthToken,
		success: MetricAuthTokenValid,
		failure: MetricAuthTokenInvalid,
	}, func(ctx context.Context, tx storage.Tx) (int64, error) {
		var err error
		user, err = flows.RunVerifyAuthToken(tok, e.config.Security.AuthTokenMaxAge, e.lifecycleDeps(ctx, tx))
		if err != nil {
			return 0, err
		}
		return user.ID, nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// IdentityFromAuthToken resolves an API token to a Member.
func (e *Engine) IdentityFromAuthToken(ctx context.Context, tok string) (Identity, error) {
	user, err := e.VerifyAuthToken(ctx, tok)
	if err != nil {
		return nil, err
	}
	return e.member(ctx, e.store, user)
}

// GenerateConfirmationToken issues a confirm-email token for userID.
func (e *Engine) GenerateConfirmationToken(ctx context.Context, userID int64) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}
	user, err := e.loadUser(ctx, e.store.Users(), userID)
	if err != nil {
		return "", err
	}
	return e.tokens.Issue(token.PurposeConfirmEmail, user.ID, "")
}

// GenerateResetToken issues a reset-password token for the account with
// email.
func (e *Engine) GenerateResetToken(ctx context.Context, email string) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}

	e.metricInc(MetricPasswordResetRequest)
	user, err := e.UserByEmail(ctx, email)
	if err != nil {
		e.emitAudit(ctx, auditEventPasswordResetIssued, false, 0, err, nil)
		return "", err
	}

	tok, err := e.tokens.Issue(token.PurposeResetPassword, user.ID, "")
	if err != nil {
		return "", err
	}
	e.emitAudit(ctx, auditEventPasswordResetIssued, true, user.ID, nil, nil)
	return tok, nil
}

// GenerateEmailChangeToken issues a change-email token that moves userID to
// newEmail. The address is checked now and again when the token is used.
func (e *Engine) GenerateEmailChangeToken(ctx context.Context, userID int64, newEmail string) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}

	e.metricInc(MetricEmailChangeRequest)
	email, err := validateEmail(newEmail)
	if err != nil {
		return "", err
	}
	user, err := e.loadUser(ctx, e.store.Users(), userID)
	if err != nil {
		return "", err
	}

	_, err = e.store.Users().UserByEmail(ctx, email)
	switch {
	case err == nil:
		e.emitAudit(ctx, auditEventEmailChangeIssued, false, user.ID, ErrDuplicateEmail, nil)
		return "", ErrDuplicateEmail
	case !errors.Is(err, storage.ErrNotFound):
		return "", e.persistErr(ctx, "email change token", err)
	}

	tok, err := e.tokens.Issue(token.PurposeChangeEmail, user.ID, email)
	if err != nil {
		return "", err
	}
	e.emitAudit(ctx, auditEventEmailChangeIssued, true, user.ID, nil, nil)
	return tok, nil
}

// GenerateAuthToken issues an API token for userID.
func (e *Engine) GenerateAuthToken(ctx context.Context, userID int64) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}
	user, err := e.loadUser(ctx, e.store.Users(), userID)
	if err != nil {
		return "", err
	}

	tok, err := flows.RunGenerateAuthToken(user.ID, e.lifecycleDeps(ctx, e.store))
	if err != nil {
		return "", err
	}
	e.metricInc(MetricAuthTokenIssued)
	return tok, nil
}

// AuthTokenExpiration is the lifetime of tokens from GenerateAuthToken.
func (e *Engine) AuthTokenExpiration() time.Duration {
	if e == nil {
		return 0
	}
	return e.config.Security.AuthTokenMaxAge
}
