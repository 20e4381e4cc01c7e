package flasky

import (
	"context"
	"errors"

	"github.com/nmheeir/Flask-Web-Development/permission"
	"github.com/nmheeir/Flask-Web-Development/storage"
)

// BootstrapRoles reconciles the stored roles with Accounts.Roles in one
// transaction. Running it again with the same configuration changes nothing.
func (e *Engine) BootstrapRoles(ctx context.Context) error {
	if err := e.ready(); err != nil {
		return err
	}

	defs, err := e.config.Accounts.RoleDefs()
	if err != nil {
		return err
	}

	err = e.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return permission.Bootstrap(ctx, tx.Roles(), defs, e.config.Accounts.DefaultRole)
	})
	if err != nil {
		if errors.Is(err, permission.ErrInvalidRoleDef) {
			return err
		}
		return e.persistErr(ctx, "bootstrap roles", err)
	}

	e.logger.Info(ctx, "roles bootstrapped", "count", len(defs), "default", e.config.Accounts.DefaultRole)
	return nil
}

// CheckRoles returns permission.ErrNoDefaultRole when no stored role is the
// default. Hosts call it before serving traffic.
func (e *Engine) CheckRoles(ctx context.Context) error {
	if err := e.ready(); err != nil {
		return err
	}

	_, err := e.store.Roles().DefaultRole(ctx)
	if errors.Is(err, permission.ErrRoleNotFound) {
		e.logger.Error(ctx, "no default role stored")
		return permission.ErrNoDefaultRole
	}
	if err != nil {
		return e.persistErr(ctx, "check roles", err)
	}
	return nil
}

// Roles lists the stored roles by id.
func (e *Engine) Roles(ctx context.Context) ([]permission.Role, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	roles, err := e.store.Roles().ListRoles(ctx)
	if err != nil {
		return nil, e.persistErr(ctx, "list roles", err)
	}
	return roles, nil
}
