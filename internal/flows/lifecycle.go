package flows

import (
	"fmt"
	"time"

	"github.com/nmheeir/Flask-Web-Development/models"
	"github.com/nmheeir/Flask-Web-Development/token"
)

// RunConfirmEmail marks user as confirmed when tok is a confirm-email token
// for user. Confirming twice succeeds.
func RunConfirmEmail(user *models.User, tok string, maxAge time.Duration, deps LifecycleDeps) (bool, error) {
	payload, err := deps.Verify(token.PurposeConfirmEmail, tok, maxAge)
	if err != nil {
		return false, err
	}
	if user == nil || payload.Subject != user.ID {
		return false, deps.Errors.SubjectMismatch
	}

	user.Confirmed = true
	return true, nil
}

// RunResetPassword replaces the password hash of the token's subject. The
// returned user carries the new hash.
func RunResetPassword(tok, newPassword string, maxAge time.Duration, deps LifecycleDeps) (*models.User, bool, error) {
	payload, err := deps.Verify(token.PurposeResetPassword, tok, maxAge)
	if err != nil {
		return nil, false, err
	}

	user, err := deps.LookupUser(payload.Subject)
	if err != nil {
		return nil, false, err
	}
	if user == nil {
		return nil, false, deps.Errors.UserNotFound
	}

	hash, err := deps.HashPassword(newPassword)
	if err != nil {
		return nil, false, err
	}

	user.PasswordHash = hash
	return user, true, nil
}

// RunChangeEmail moves user to the address carried by tok.
func RunChangeEmail(user *models.User, tok string, maxAge time.Duration, deps LifecycleDeps) (bool, error) {
	payload, err := deps.Verify(token.PurposeChangeEmail, tok, maxAge)
	if err != nil {
		return false, err
	}
	if user == nil || payload.Subject != user.ID {
		return false, deps.Errors.SubjectMismatch
	}

	newEmail := models.NormalizeEmail(payload.Extra)
	if newEmail == "" {
		return false, fmt.Errorf("%w: missing new email", token.ErrInvalidToken)
	}

	owner, err := deps.EmailOwner(newEmail)
	if err != nil {
		return false, err
	}
	// Any registered address is taken, the user's current one included.
	if owner != 0 {
		return false, deps.Errors.DuplicateEmail
	}

	user.Email = newEmail
	user.AvatarHash = models.AvatarHash(newEmail)
	return true, nil
}

// RunGenerateAuthToken issues an API token for subjectID.
func RunGenerateAuthToken(subjectID int64, deps LifecycleDeps) (string, error) {
	if subjectID == 0 {
		return "", deps.Errors.UserNotFound
	}
	return deps.Issue(token.PurposeAuth, subjectID, "")
}

// RunVerifyAuthToken resolves an API token to its user.
func RunVerifyAuthToken(tok string, maxAge time.Duration, deps LifecycleDeps) (*models.User, error) {
	payload, err := deps.Verify(token.PurposeAuth, tok, maxAge)
	if err != nil {
		return nil, err
	}

	user, err := deps.LookupUser(payload.Subject)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, deps.Errors.UserNotFound
	}
	return user, nil
}
