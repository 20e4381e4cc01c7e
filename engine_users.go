package flasky

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"github.com/nmheeir/Flask-Web-Development/models"
	"github.com/nmheeir/Flask-Web-Development/permission"
	"github.com/nmheeir/Flask-Web-Development/storage"
)

const (
	maxEmailLength    = 64
	maxUsernameLength = 64
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.]*$`)

// NewUser is the input of CreateUser.
type NewUser struct {
	Email     string
	Username  string
	Password  string
	Name      string
	Location  string
	AboutMe   string
	Confirmed bool
}

// ProfileUpdate replaces the free-text profile fields of a user.
type ProfileUpdate struct {
	Name     string
	Location string
	AboutMe  string
}

func validateEmail(email string) (string, error) {
	email = models.NormalizeEmail(email)
	if email == "" || len(email) > maxEmailLength {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func validateUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if len(username) > maxUsernameLength || !usernamePattern.MatchString(username) {
		return "", ErrInvalidUsername
	}
	return username, nil
}

// CreateUser stores a new account. The role is the Administrator role when
// the email is Accounts.AdminEmail and the default role otherwise. The user
// follows itself so its own posts appear in its feed.
func (e *Engine) CreateUser(ctx context.Context, in NewUser) (*models.User, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	email, err := validateEmail(in.Email)
	if err != nil {
		return nil, err
	}
	username, err := validateUsername(in.Username)
	if err != nil {
		return nil, err
	}
	hash, err := e.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := e.timestamp()
	user := &models.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Confirmed:    in.Confirmed,
		Name:         strings.TrimSpace(in.Name),
		Location:     strings.TrimSpace(in.Location),
		AboutMe:      in.AboutMe,
		MemberSince:  now,
		LastSeen:     now,
		AvatarHash:   models.AvatarHash(email),
	}

	err = e.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		users := tx.Users()
		if _, err := users.UserByEmail(ctx, email); err == nil {
			return ErrDuplicateEmail
		} else if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		if _, err := users.UserByUsername(ctx, username); err == nil {
			return ErrDuplicateUsername
		} else if !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		role, err := permission.AssignRole(ctx, tx.Roles(), email, e.config.Accounts.AdminEmail)
		if err != nil {
			return err
		}
		user.RoleID = role.ID

		if err := users.CreateUser(ctx, user); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				return ErrDuplicateEmail
			}
			return err
		}
		return e.graph(tx).Follow(ctx, user.ID, user.ID)
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) || errors.Is(err, ErrDuplicateUsername) {
			e.metricInc(MetricAccountCreationDuplicate)
		}
		e.emitAudit(ctx, auditEventAccountCreated, false, 0, err, nil)
		return nil, e.persistErr(ctx, "create user", err)
	}

	e.metricInc(MetricAccountCreated)
	e.emitAudit(ctx, auditEventAccountCreated, true, user.ID, nil, func() map[string]string {
		return map[string]string{"role_id": fmt.Sprint(user.RoleID)}
	})
	e.logger.Info(ctx, "user created", "user_id", user.ID, "role_id", user.RoleID)
	return user, nil
}

// User loads a user by id.
func (e *Engine) User(ctx context.Context, id int64) (*models.User, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.loadUser(ctx, e.store.Users(), id)
}

// UserByEmail loads a user by address, compared case-insensitively.
func (e *Engine) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	user, err := e.store.Users().UserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, e.persistErr(ctx, "load user by email", err)
	}
	return user, nil
}

// Identity resolves id to a Member carrying its role. Zero is the Guest.
func (e *Engine) Identity(ctx context.Context, id int64) (Identity, error) {
	if id == 0 {
		return Guest{}, nil
	}
	if err := e.ready(); err != nil {
		return nil, err
	}

	user, err := e.loadUser(ctx, e.store.Users(), id)
	if err != nil {
		return nil, err
	}
	return e.member(ctx, e.store, user)
}

func (e *Engine) member(ctx context.Context, tx storage.Tx, user *models.User) (Member, error) {
	m := Member{User: user}
	if user.RoleID == 0 {
		return m, nil
	}
	role, err := tx.Roles().RoleByID(ctx, user.RoleID)
	if errors.Is(err, permission.ErrRoleNotFound) {
		return m, nil
	}
	if err != nil {
		return Member{}, e.persistErr(ctx, "load role", err)
	}
	m.Role = role
	return m, nil
}

// DeleteUser removes the user with its follow edges, posts, comments and
// event log.
func (e *Engine) DeleteUser(ctx context.Context, id int64) error {
	if err := e.ready(); err != nil {
		return err
	}
	if id == 0 {
		return ErrUserNotFound
	}

	err := e.store.Users().DeleteUser(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return e.persistErr(ctx, "delete user", err)
	}

	e.metricInc(MetricAccountDeleted)
	e.emitAudit(ctx, auditEventAccountDeleted, true, id, nil, nil)
	return nil
}

// Ping moves the user's last-seen time to now.
func (e *Engine) Ping(ctx context.Context, id int64) error {
	if err := e.ready(); err != nil {
		return err
	}
	return e.updateUser(ctx, id, "ping", func(u *models.User) error {
		u.LastSeen = e.timestamp()
		return nil
	})
}

// UpdateProfile replaces the user's name, location and about text.
func (e *Engine) UpdateProfile(ctx context.Context, id int64, p ProfileUpdate) (*models.User, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	var out *models.User
	err := e.updateUser(ctx, id, "update profile", func(u *models.User) error {
		u.Name = strings.TrimSpace(p.Name)
		u.Location = strings.TrimSpace(p.Location)
		u.AboutMe = p.AboutMe
		out = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) updateUser(ctx context.Context, id int64, op string, mutate func(*models.User) error) error {
	err := e.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		user, err := e.loadUser(ctx, tx.Users(), id)
		if err != nil {
			return err
		}
		if err := mutate(user); err != nil {
			return err
		}
		return tx.Users().UpdateUser(ctx, user)
	})
	return e.persistErr(ctx, op, err)
}

// Authenticate checks email and password. Unknown addresses and wrong
// passwords both return ErrInvalidCredentials. Hashes written with weaker
// parameters, or by the legacy scheme, are upgraded on success.
func (e *Engine) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	subject := models.NormalizeEmail(email)
	if err := e.limitCheck(ctx, limitScopeLogin, subject, 0); err != nil {
		return nil, err
	}

	fail := func(userID int64, cause error) (*models.User, error) {
		e.metricInc(MetricLoginFailure)
		e.limitFail(ctx, limitScopeLogin, subject, userID)
		e.emitAudit(ctx, auditEventAuthenticate, false, userID, ErrInvalidCredentials, nil)
		if cause != nil {
			e.logger.Debug(ctx, "authentication failed", "user_id", userID, "error", cause)
		}
		return nil, ErrInvalidCredentials
	}

	user, err := e.store.Users().UserByEmail(ctx, subject)
	if errors.Is(err, storage.ErrNotFound) {
		return fail(0, nil)
	}
	if err != nil {
		return nil, e.persistErr(ctx, "authenticate", err)
	}

	ok, err := e.hasher.Verify(password, user.PasswordHash)
	if err != nil || !ok {
		return fail(user.ID, err)
	}

	e.limitReset(ctx, limitScopeLogin, subject)
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventAuthenticate, true, user.ID, nil, nil)

	if stale, err := e.hasher.NeedsRehash(user.PasswordHash); err == nil && stale {
		e.rehash(ctx, user, password)
	}
	return user, nil
}

func (e *Engine) rehash(ctx context.Context, user *models.User, password string) {
	hash, err := e.hasher.Hash(password)
	if err != nil {
		e.logger.Warn(ctx, "password rehash failed", "user_id", user.ID, "error", err)
		return
	}
	user.PasswordHash = hash
	if err := e.store.Users().UpdateUser(ctx, user); err != nil {
		e.logger.Warn(ctx, "password rehash not stored", "user_id", user.ID, "error", err)
		return
	}
	e.metricInc(MetricPasswordRehashed)
}
