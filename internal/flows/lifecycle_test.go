package flows

import (
	"errors"
	"testing"
	"time"

	"github.com/nmheeir/Flask-Web-Development/models"
	"github.com/nmheeir/Flask-Web-Development/token"
)

var (
	errMismatch  = errors.New("mismatch")
	errNotFound  = errors.New("not found")
	errDuplicate = errors.New("duplicate")
)

type fixture struct {
	now   time.Time
	svc   *token.Service
	users map[int64]*models.User
	deps  LifecycleDeps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		now:   time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
		users: map[int64]*models.User{},
	}
	svc, err := token.NewService(token.Config{
		Secret: []byte("flows-test-secret"),
		Now:    func() time.Time { return f.now },
	})
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	f.svc = svc
	f.deps = LifecycleDeps{
		Verify: svc.Verify,
		Issue:  svc.Issue,
		LookupUser: func(id int64) (*models.User, error) {
			u, ok := f.users[id]
			if !ok {
				return nil, nil
			}
			cp := *u
			return &cp, nil
		},
		EmailOwner: func(email string) (int64, error) {
			for id, u := range f.users {
				if u.Email == email {
					return id, nil
				}
			}
			return 0, nil
		},
		HashPassword: func(pw string) (string, error) {
			if len(pw) < 3 {
				return "", errors.New("too short")
			}
			return "hashed:" + pw, nil
		},
		Errors: LifecycleErrors{
			SubjectMismatch: errMismatch,
			UserNotFound:    errNotFound,
			DuplicateEmail:  errDuplicate,
		},
	}
	return f
}

func (f *fixture) issue(t *testing.T, p token.Purpose, subject int64, extra string) string {
	t.Helper()
	tok, err := f.svc.Issue(p, subject, extra)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return tok
}

func TestConfirmEmail(t *testing.T) {
	f := newFixture(t)
	user := &models.User{ID: 1}
	tok := f.issue(t, token.PurposeConfirmEmail, 1, "")

	ok, err := RunConfirmEmail(user, tok, time.Hour, f.deps)
	if err != nil || !ok {
		t.Fatalf("expected success, got %v, %v", ok, err)
	}
	if !user.Confirmed {
		t.Fatal("user was not confirmed")
	}

	ok, err = RunConfirmEmail(user, tok, time.Hour, f.deps)
	if err != nil || !ok || !user.Confirmed {
		t.Fatalf("confirming twice must succeed, got %v, %v", ok, err)
	}
}

func TestConfirmEmailSubjectMismatch(t *testing.T) {
	f := newFixture(t)
	other := &models.User{ID: 2}
	tok := f.issue(t, token.PurposeConfirmEmail, 1, "")

	ok, err := RunConfirmEmail(other, tok, time.Hour, f.deps)
	if ok || !errors.Is(err, errMismatch) {
		t.Fatalf("expected subject mismatch, got %v, %v", ok, err)
	}
	if other.Confirmed {
		t.Fatal("failed confirmation mutated the user")
	}
}

func TestConfirmEmailRejectsOtherPurposes(t *testing.T) {
	f := newFixture(t)
	user := &models.User{ID: 1}

	for _, p := range []token.Purpose{token.PurposeResetPassword, token.PurposeChangeEmail, token.PurposeAuth} {
		tok := f.issue(t, p, 1, "x@example.com")
		ok, err := RunConfirmEmail(user, tok, time.Hour, f.deps)
		if ok || !errors.Is(err, token.ErrWrongPurpose) {
			t.Fatalf("%s token: expected ErrWrongPurpose, got %v, %v", p, ok, err)
		}
	}
	if user.Confirmed {
		t.Fatal("user must stay unconfirmed")
	}
}

func TestConfirmEmailExpiryBoundary(t *testing.T) {
	f := newFixture(t)
	user := &models.User{ID: 1}
	tok := f.issue(t, token.PurposeConfirmEmail, 1, "")

	f.now = f.now.Add(time.Hour - time.Second)
	if ok, err := RunConfirmEmail(user, tok, time.Hour, f.deps); err != nil || !ok {
		t.Fatalf("expected valid just before expiry, got %v, %v", ok, err)
	}

	user.Confirmed = false
	f.now = f.now.Add(2 * time.Second)
	ok, err := RunConfirmEmail(user, tok, time.Hour, f.deps)
	if ok || !errors.Is(err, token.ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v, %v", ok, err)
	}
}

func TestResetPassword(t *testing.T) {
	f := newFixture(t)
	f.users[7] = &models.User{ID: 7, PasswordHash: "old"}
	tok := f.issue(t, token.PurposeResetPassword, 7, "")

	user, ok, err := RunResetPassword(tok, "new-password", time.Hour, f.deps)
	if err != nil || !ok {
		t.Fatalf("expected success, got %v, %v", ok, err)
	}
	if user.PasswordHash != "hashed:new-password" {
		t.Fatalf("unexpected hash %q", user.PasswordHash)
	}
}

func TestResetPasswordFailures(t *testing.T) {
	f := newFixture(t)
	f.users[7] = &models.User{ID: 7, PasswordHash: "old"}

	tests := []struct {
		name  string
		tok   string
		pw    string
		after time.Duration
		want  error
	}{
		{"unknown user", f.issue(t, token.PurposeResetPassword, 99, ""), "new-password", 0, errNotFound},
		{"wrong purpose", f.issue(t, token.PurposeConfirmEmail, 7, ""), "new-password", 0, token.ErrWrongPurpose},
		{"garbage", "not.a.token", "new-password", 0, token.ErrInvalidToken},
		{"expired", f.issue(t, token.PurposeResetPassword, 7, ""), "new-password", 2 * time.Hour, token.ErrExpiredToken},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			saved := f.now
			f.now = f.now.Add(tc.after)
			defer func() { f.now = saved }()

			user, ok, err := RunResetPassword(tc.tok, tc.pw, time.Hour, f.deps)
			if ok || user != nil || !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v, %v, %v", tc.want, user, ok, err)
			}
		})
	}

	tok := f.issue(t, token.PurposeResetPassword, 7, "")
	if _, ok, err := RunResetPassword(tok, "no", time.Hour, f.deps); ok || err == nil {
		t.Fatal("hasher rejection must fail the reset")
	}
	if f.users[7].PasswordHash != "old" {
		t.Fatal("failed reset mutated the stored user")
	}
}

func TestChangeEmail(t *testing.T) {
	f := newFixture(t)
	user := &models.User{ID: 1, Email: "old@example.com"}
	f.users[1] = user
	tok := f.issue(t, token.PurposeChangeEmail, 1, " New@Example.com")

	ok, err := RunChangeEmail(user, tok, time.Hour, f.deps)
	if err != nil || !ok {
		t.Fatalf("expected success, got %v, %v", ok, err)
	}
	if user.Email != "new@example.com" {
		t.Fatalf("unexpected email %q", user.Email)
	}
	if user.AvatarHash != models.AvatarHash("new@example.com") {
		t.Fatal("avatar hash was not recomputed")
	}
}

func TestChangeEmailCollision(t *testing.T) {
	f := newFixture(t)
	user := &models.User{ID: 1, Email: "a@example.com"}
	f.users[1] = user
	f.users[2] = &models.User{ID: 2, Email: "b@example.com"}
	tok := f.issue(t, token.PurposeChangeEmail, 1, "b@example.com")

	ok, err := RunChangeEmail(user, tok, time.Hour, f.deps)
	if ok || !errors.Is(err, errDuplicate) {
		t.Fatalf("expected duplicate, got %v, %v", ok, err)
	}
	if user.Email != "a@example.com" {
		t.Fatal("failed change mutated the user")
	}
}

func TestChangeEmailToCurrentAddressRejected(t *testing.T) {
	f := newFixture(t)
	user := &models.User{ID: 1, Email: "a@example.com"}
	f.users[1] = user
	tok := f.issue(t, token.PurposeChangeEmail, 1, "A@example.com")

	ok, err := RunChangeEmail(user, tok, time.Hour, f.deps)
	if ok || !errors.Is(err, errDuplicate) {
		t.Fatalf("expected duplicate for the current address, got %v, %v", ok, err)
	}
}

func TestChangeEmailMissingAddress(t *testing.T) {
	f := newFixture(t)
	user := &models.User{ID: 1, Email: "a@example.com"}
	tok := f.issue(t, token.PurposeChangeEmail, 1, "")

	ok, err := RunChangeEmail(user, tok, time.Hour, f.deps)
	if ok || !errors.Is(err, token.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v, %v", ok, err)
	}
}

func TestAuthTokenRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.users[3] = &models.User{ID: 3, Username: "api"}

	tok, err := RunGenerateAuthToken(3, f.deps)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	user, err := RunVerifyAuthToken(tok, time.Hour, f.deps)
	if err != nil || user.Username != "api" {
		t.Fatalf("verify: %v, %v", user, err)
	}

	delete(f.users, 3)
	if _, err := RunVerifyAuthToken(tok, time.Hour, f.deps); !errors.Is(err, errNotFound) {
		t.Fatalf("expected not found for deleted user, got %v", err)
	}
	if _, err := RunGenerateAuthToken(0, f.deps); !errors.Is(err, errNotFound) {
		t.Fatalf("expected transient user to be rejected, got %v", err)
	}
}
