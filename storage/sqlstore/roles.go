package sqlstore

import (
	"context"
	"errors"

	"github.com/nmheeir/Flask-Web-Development/permission"
	"github.com/nmheeir/Flask-Web-Development/storage"
)

type roleRepo struct {
	h handle
}

const roleColumns = `id, name, permissions, is_default`

func scanRole(row scanner) (permission.Role, error) {
	var (
		role permission.Role
		mask int64
	)
	if err := row.Scan(&role.ID, &role.Name, &mask, &role.Default); err != nil {
		err = mapErr(err)
		if errors.Is(err, storage.ErrNotFound) {
			return permission.Role{}, permission.ErrRoleNotFound
		}
		return permission.Role{}, err
	}
	role.Permissions = permission.Mask(mask)
	return role, nil
}

func (r *roleRepo) RoleByName(ctx context.Context, name string) (permission.Role, error) {
	return scanRole(r.h.queryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE name = ?`, name))
}

func (r *roleRepo) RoleByID(ctx context.Context, id int64) (permission.Role, error) {
	return scanRole(r.h.queryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = ?`, id))
}

func (r *roleRepo) DefaultRole(ctx context.Context) (permission.Role, error) {
	return scanRole(r.h.queryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE is_default = ? ORDER BY id LIMIT 1`, true))
}

func (r *roleRepo) ListRoles(ctx context.Context) ([]permission.Role, error) {
	rows, err := r.h.query(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY id`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var roles []permission.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, mapErr(rows.Err())
}

func (r *roleRepo) SaveRole(ctx context.Context, role *permission.Role) error {
	if role.ID == 0 {
		err := r.h.queryRow(ctx,
			`INSERT INTO roles (name, permissions, is_default) VALUES (?, ?, ?) RETURNING id`,
			role.Name, int64(role.Permissions), role.Default,
		).Scan(&role.ID)
		return mapErr(err)
	}

	res, err := r.h.exec(ctx,
		`UPDATE roles SET name = ?, permissions = ?, is_default = ? WHERE id = ?`,
		role.Name, int64(role.Permissions), role.Default, role.ID,
	)
	if err != nil {
		return mapErr(err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return permission.ErrRoleNotFound
	}
	return nil
}
