package flasky

import "errors"

var (
	// ErrEngineNotReady is returned by a nil or half-built Engine.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrSubjectMismatch is returned when a token was issued for another user.
	ErrSubjectMismatch = errors.New("token subject mismatch")
	// ErrUserNotFound is returned when an operation names a missing user.
	ErrUserNotFound = errors.New("user not found")
	// ErrPostNotFound is returned when an operation names a missing post.
	ErrPostNotFound = errors.New("post not found")
	// ErrCommentNotFound is returned when an operation names a missing comment.
	ErrCommentNotFound = errors.New("comment not found")
	// ErrDuplicateEmail is returned when an address already belongs to another account.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrDuplicateUsername is returned when a username is already taken.
	ErrDuplicateUsername = errors.New("username already in use")
	// ErrInvalidEmail is returned for addresses that do not parse.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrInvalidUsername is returned for usernames outside the allowed alphabet.
	ErrInvalidUsername = errors.New("invalid username")
	// ErrInvalidCredentials is returned when an email and password do not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmptyBody is returned when a post or comment has no text.
	ErrEmptyBody = errors.New("empty body")
	// ErrPermissionDenied is returned when the acting identity lacks a permission.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrRateLimited is returned when verification attempts are exhausted.
	ErrRateLimited = errors.New("too many attempts")
	// ErrLimiterUnavailable is returned when the attempt limiter cannot be reached.
	ErrLimiterUnavailable = errors.New("attempt limiter unavailable")
	// ErrPersistence wraps storage failures. The cause stays in the chain.
	ErrPersistence = errors.New("persistence failure")
)
