package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nmheeir/Flask-Web-Development/models"
	"github.com/nmheeir/Flask-Web-Development/storage"
)

type userRepo struct {
	h handle
}

const userColumns = `id, email, username, role_id, password_hash, confirmed,
	name, location, about_me, member_since, last_seen, avatar_hash`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	u := &models.User{}
	var roleID sql.NullInt64
	err := row.Scan(&u.ID, &u.Email, &u.Username, &roleID, &u.PasswordHash, &u.Confirmed,
		&u.Name, &u.Location, &u.AboutMe, &u.MemberSince, &u.LastSeen, &u.AvatarHash)
	if err != nil {
		return nil, mapErr(err)
	}
	u.RoleID = roleID.Int64
	u.MemberSince = u.MemberSince.UTC()
	u.LastSeen = u.LastSeen.UTC()
	return u, nil
}

func nullableID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

func (r *userRepo) CreateUser(ctx context.Context, u *models.User) error {
	query := `INSERT INTO users (email, username, role_id, password_hash, confirmed,
			name, location, about_me, member_since, last_seen, avatar_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`

	err := r.h.queryRow(ctx, query,
		models.NormalizeEmail(u.Email), u.Username, nullableID(u.RoleID), u.PasswordHash, u.Confirmed,
		u.Name, u.Location, u.AboutMe, u.MemberSince.UTC(), u.LastSeen.UTC(), u.AvatarHash,
	).Scan(&u.ID)
	if err != nil {
		return mapErr(err)
	}
	u.Email = models.NormalizeEmail(u.Email)
	return nil
}

func (r *userRepo) UserByID(ctx context.Context, id int64) (*models.User, error) {
	return scanUser(r.h.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (r *userRepo) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.h.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, models.NormalizeEmail(email)))
}

func (r *userRepo) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	return scanUser(r.h.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username))
}

func (r *userRepo) UpdateUser(ctx context.Context, u *models.User) error {
	query := `UPDATE users SET email = ?, username = ?, role_id = ?, password_hash = ?,
			confirmed = ?, name = ?, location = ?, about_me = ?, last_seen = ?, avatar_hash = ?
		WHERE id = ?`

	res, err := r.h.exec(ctx, query,
		models.NormalizeEmail(u.Email), u.Username, nullableID(u.RoleID), u.PasswordHash,
		u.Confirmed, u.Name, u.Location, u.AboutMe, u.LastSeen.UTC(), u.AvatarHash,
		u.ID,
	)
	if err != nil {
		return mapErr(err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	u.Email = models.NormalizeEmail(u.Email)
	return nil
}

// DeleteUser removes dependents explicitly so the cascade holds even on
// connections opened without foreign key enforcement.
func (r *userRepo) DeleteUser(ctx context.Context, id int64) error {
	steps := []struct {
		what  string
		query string
		args  []any
	}{
		{"follows", `DELETE FROM follows WHERE follower_id = ? OR followed_id = ?`, []any{id, id}},
		{"comments", `DELETE FROM comments WHERE author_id = ? OR post_id IN (SELECT id FROM posts WHERE author_id = ?)`, []any{id, id}},
		{"posts", `DELETE FROM posts WHERE author_id = ?`, []any{id}},
		{"user_logs", `DELETE FROM user_logs WHERE user_id = ?`, []any{id}},
	}
	for _, step := range steps {
		if _, err := r.h.exec(ctx, step.query, step.args...); err != nil {
			return fmt.Errorf("delete %s: %w", step.what, mapErr(err))
		}
	}

	res, err := r.h.exec(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return mapErr(err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *userRepo) UserIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.h.query(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, mapErr(err)
		}
		ids = append(ids, id)
	}
	return ids, mapErr(rows.Err())
}
