package internaldefs

import (
	flasky "github.com/nmheeir/Flask-Web-Development"
)

// CounterDef maps an engine counter to its exported name.
type CounterDef struct {
	ID   flasky.MetricID
	Name string
	Help string
}

// HistogramDef maps an engine histogram to its exported name.
type HistogramDef struct {
	ID   flasky.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in MetricID order.
var CounterDefs = []CounterDef{
	{ID: flasky.MetricAccountCreated, Name: "flasky_account_created_total", Help: "Created accounts."},
	{ID: flasky.MetricAccountCreationDuplicate, Name: "flasky_account_creation_duplicate_total", Help: "Account creation attempts rejected as duplicate."},
	{ID: flasky.MetricAccountDeleted, Name: "flasky_account_deleted_total", Help: "Deleted accounts."},
	{ID: flasky.MetricLoginSuccess, Name: "flasky_login_success_total", Help: "Successful password authentications."},
	{ID: flasky.MetricLoginFailure, Name: "flasky_login_failure_total", Help: "Failed password authentications."},
	{ID: flasky.MetricPasswordRehashed, Name: "flasky_password_rehashed_total", Help: "Stored hashes upgraded after login."},
	{ID: flasky.MetricEmailConfirmSuccess, Name: "flasky_email_confirm_success_total", Help: "Successful email confirmations."},
	{ID: flasky.MetricEmailConfirmFailure, Name: "flasky_email_confirm_failure_total", Help: "Failed email confirmations."},
	{ID: flasky.MetricPasswordResetRequest, Name: "flasky_password_reset_request_total", Help: "Password reset token requests."},
	{ID: flasky.MetricPasswordResetSuccess, Name: "flasky_password_reset_success_total", Help: "Successful password resets."},
	{ID: flasky.MetricPasswordResetFailure, Name: "flasky_password_reset_failure_total", Help: "Failed password resets."},
	{ID: flasky.MetricEmailChangeRequest, Name: "flasky_email_change_request_total", Help: "Email change token requests."},
	{ID: flasky.MetricEmailChangeSuccess, Name: "flasky_email_change_success_total", Help: "Successful email changes."},
	{ID: flasky.MetricEmailChangeFailure, Name: "flasky_email_change_failure_total", Help: "Failed email changes."},
	{ID: flasky.MetricAuthTokenIssued, Name: "flasky_auth_token_issued_total", Help: "Issued API auth tokens."},
	{ID: flasky.MetricAuthTokenValid, Name: "flasky_auth_token_valid_total", Help: "API auth tokens accepted."},
	{ID: flasky.MetricAuthTokenInvalid, Name: "flasky_auth_token_invalid_total", Help: "API auth tokens rejected."},
	{ID: flasky.MetricRateLimitHit, Name: "flasky_rate_limit_hit_total", Help: "Attempts refused or budgets exhausted by the limiter."},
	{ID: flasky.MetricFollow, Name: "flasky_follow_total", Help: "Follow operations."},
	{ID: flasky.MetricUnfollow, Name: "flasky_unfollow_total", Help: "Unfollow operations."},
	{ID: flasky.MetricPostCreated, Name: "flasky_post_created_total", Help: "Created posts."},
	{ID: flasky.MetricPostEdited, Name: "flasky_post_edited_total", Help: "Edited posts."},
	{ID: flasky.MetricCommentCreated, Name: "flasky_comment_created_total", Help: "Created comments."},
	{ID: flasky.MetricCommentModerated, Name: "flasky_comment_moderated_total", Help: "Comment moderation changes."},
	{ID: flasky.MetricPermissionDenied, Name: "flasky_permission_denied_total", Help: "Operations refused for a missing permission."},
	{ID: flasky.MetricAccountEvent, Name: "flasky_account_event_total", Help: "Login and logout rows written to the account event log."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: flasky.MetricTokenVerifyLatency, Name: "flasky_token_verify_latency_seconds", Help: "Signed token verification latency."},
}

// HistogramBounds are the upper bounds, in seconds, of the engine's eight
// latency buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix names each bucket for exporters without a le label.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight bucket array, zero-filling
// missing entries and ignoring extras.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
