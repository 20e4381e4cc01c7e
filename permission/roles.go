package permission

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Canonical role names created by DefaultRoleDefs.
const (
	RoleUser          = "User"
	RoleModerator     = "Moderator"
	RoleAdministrator = "Administrator"

	// DefaultRoleName is the role handed to accounts that are not the
	// configured administrator.
	DefaultRoleName = RoleUser
)

var (
	// ErrNoDefaultRole is returned when no stored role carries the default flag.
	// Hosts must treat it as a fatal startup condition.
	ErrNoDefaultRole = errors.New("no default role configured")
	// ErrRoleNotFound is returned by RoleStore lookups that match nothing.
	ErrRoleNotFound = errors.New("role not found")
	// ErrInvalidRoleDef is returned when a role definition cannot be applied.
	ErrInvalidRoleDef = errors.New("invalid role definition")
)

// Role is a named permission mask. At most one stored role is the default.
type Role struct {
	ID          int64
	Name        string
	Permissions Mask
	Default     bool
}

// HasPermission reports whether the role grants perm.
func (r Role) HasPermission(perm Permission) bool {
	return r.Permissions.Has(perm)
}

// AddPermission grants perm to the role.
func (r *Role) AddPermission(perm Permission) {
	r.Permissions = r.Permissions.Add(perm)
}

// RemovePermission revokes perm from the role.
func (r *Role) RemovePermission(perm Permission) {
	r.Permissions = r.Permissions.Remove(perm)
}

// ResetPermissions clears every bit.
func (r *Role) ResetPermissions() {
	r.Permissions = 0
}

// RoleDef is the desired state of one role.
type RoleDef struct {
	Name        string
	Permissions []Permission
}

// DefaultRoleDefs returns the stock User, Moderator and Administrator roles
// in bootstrap order.
func DefaultRoleDefs() []RoleDef {
	return []RoleDef{
		{Name: RoleUser, Permissions: []Permission{Follow, Comment, Write}},
		{Name: RoleModerator, Permissions: []Permission{Follow, Comment, Write, Moderate}},
		{Name: RoleAdministrator, Permissions: []Permission{Follow, Comment, Write, Moderate, Admin}},
	}
}

// RoleStore persists roles. Implementations return ErrRoleNotFound (possibly
// wrapped) when a lookup matches nothing. SaveRole inserts when role.ID is
// zero and updates otherwise, filling in the ID on insert.
type RoleStore interface {
	RoleByName(ctx context.Context, name string) (Role, error)
	RoleByID(ctx context.Context, id int64) (Role, error)
	DefaultRole(ctx context.Context) (Role, error)
	ListRoles(ctx context.Context) ([]Role, error)
	SaveRole(ctx context.Context, role *Role) error
}

// ValidateDefs checks that defs can be bootstrapped with defaultRole.
func ValidateDefs(defs []RoleDef, defaultRole string) error {
	if len(defs) == 0 {
		return fmt.Errorf("%w: no roles", ErrInvalidRoleDef)
	}

	seen := make(map[string]struct{}, len(defs))
	hasDefault := false
	for _, def := range defs {
		if strings.TrimSpace(def.Name) == "" {
			return fmt.Errorf("%w: empty role name", ErrInvalidRoleDef)
		}
		if _, dup := seen[def.Name]; dup {
			return fmt.Errorf("%w: duplicate role %q", ErrInvalidRoleDef, def.Name)
		}
		seen[def.Name] = struct{}{}

		for _, perm := range def.Permissions {
			if !perm.Valid() {
				return fmt.Errorf("%w: role %q has undefined permission bits %#x", ErrInvalidRoleDef, def.Name, uint32(perm))
			}
		}
		if def.Name == defaultRole {
			hasDefault = true
		}
	}

	if !hasDefault {
		return fmt.Errorf("%w: default role %q is not defined", ErrInvalidRoleDef, defaultRole)
	}
	return nil
}

// Bootstrap reconciles store with defs. Each role is looked up by name or
// created, its mask is rebuilt from scratch, and its default flag is set
// when its name equals defaultRole. Roles outside defs keep their masks but
// lose the default flag, so exactly one default remains.
//
// Running Bootstrap twice with the same input leaves the store unchanged.
// Bootstrap does not open a transaction; pass a transaction-scoped store to
// make it all-or-nothing.
func Bootstrap(ctx context.Context, store RoleStore, defs []RoleDef, defaultRole string) error {
	if store == nil {
		return errors.New("permission: nil role store")
	}
	if err := ValidateDefs(defs, defaultRole); err != nil {
		return err
	}

	existing, err := store.ListRoles(ctx)
	if err != nil {
		return fmt.Errorf("list roles: %w", err)
	}

	defined := make(map[string]struct{}, len(defs))
	for _, def := range defs {
		defined[def.Name] = struct{}{}

		role, err := store.RoleByName(ctx, def.Name)
		switch {
		case errors.Is(err, ErrRoleNotFound):
			role = Role{Name: def.Name}
		case err != nil:
			return fmt.Errorf("load role %q: %w", def.Name, err)
		}

		role.ResetPermissions()
		for _, perm := range def.Permissions {
			role.AddPermission(perm)
		}
		role.Default = role.Name == defaultRole

		if err := store.SaveRole(ctx, &role); err != nil {
			return fmt.Errorf("save role %q: %w", def.Name, err)
		}
	}

	for _, role := range existing {
		if _, ok := defined[role.Name]; ok || !role.Default {
			continue
		}
		role.Default = false
		if err := store.SaveRole(ctx, &role); err != nil {
			return fmt.Errorf("clear default on role %q: %w", role.Name, err)
		}
	}

	return nil
}

// AssignRole returns the role for a new account with the given email: the
// Administrator role when email matches adminEmail, the default role
// otherwise. An empty adminEmail never matches.
func AssignRole(ctx context.Context, store RoleStore, email, adminEmail string) (Role, error) {
	if store == nil {
		return Role{}, errors.New("permission: nil role store")
	}

	if IsAdminEmail(email, adminEmail) {
		role, err := store.RoleByName(ctx, RoleAdministrator)
		if err == nil {
			return role, nil
		}
		if !errors.Is(err, ErrRoleNotFound) {
			return Role{}, fmt.Errorf("load administrator role: %w", err)
		}
	}

	role, err := store.DefaultRole(ctx)
	if err != nil {
		if errors.Is(err, ErrRoleNotFound) {
			return Role{}, ErrNoDefaultRole
		}
		return Role{}, fmt.Errorf("load default role: %w", err)
	}
	return role, nil
}

// IsAdminEmail reports whether email is the configured administrator address.
func IsAdminEmail(email, adminEmail string) bool {
	adminEmail = strings.TrimSpace(adminEmail)
	if adminEmail == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(email), adminEmail)
}
