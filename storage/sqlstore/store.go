// Package sqlstore implements the storage contracts on database/sql for
// SQLite (modernc.org/sqlite) and PostgreSQL (pgx stdlib driver). Queries are
// written with '?' placeholders and rebound for PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/nmheeir/Flask-Web-Development/follow"
	"github.com/nmheeir/Flask-Web-Development/internal/dbx"
	"github.com/nmheeir/Flask-Web-Development/permission"
	"github.com/nmheeir/Flask-Web-Development/storage"
)

// Store is a storage.Manager over a *sql.DB.
type Store struct {
	db      *sql.DB
	dialect dbx.Dialect
	handle
}

var _ storage.Manager = (*Store)(nil)

// Open connects to dsn with the driver matching dialect. SQLite connections
// get foreign keys and a busy timeout, and are limited to one open
// connection so that writers never contend.
func Open(dialect dbx.Dialect, dsn string) (*Store, error) {
	var driver string
	switch dialect {
	case dbx.SQLite:
		driver = "sqlite"
		dsn = withSQLitePragmas(dsn)
	case dbx.Postgres:
		driver = "pgx"
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if dialect == dbx.SQLite {
		db.SetMaxOpenConns(1)
	}
	return New(db, dialect), nil
}

// New wraps an already opened database.
func New(db *sql.DB, dialect dbx.Dialect) *Store {
	return &Store{
		db:      db,
		dialect: dialect,
		handle:  handle{q: db, dialect: dialect},
	}
}

func withSQLitePragmas(dsn string) string {
	var add []string
	if !strings.Contains(dsn, "foreign_keys") {
		add = append(add, "_pragma=foreign_keys(1)")
	}
	if !strings.Contains(dsn, "busy_timeout") {
		add = append(add, "_pragma=busy_timeout(5000)")
	}
	if len(add) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(add, "&")
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect reports the SQL flavour of the connection.
func (s *Store) Dialect() dbx.Dialect {
	return s.dialect
}

// WithTx runs fn inside one transaction. All stores reached through the tx
// argument share it.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, q dbx.DBTX) error {
		return fn(ctx, handle{q: q, dialect: s.dialect})
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}

// handle binds the per-entity repositories to one DBTX.
type handle struct {
	q       dbx.DBTX
	dialect dbx.Dialect
}

func (h handle) Users() storage.Users { return &userRepo{h} }
func (h handle) Roles() permission.RoleStore { return &roleRepo{h} }
func (h handle) Follows() follow.Store { return &followRepo{h} }
func (h handle) Posts() storage.Posts { return &postRepo{h} }
func (h handle) Logs() storage.Logs { return &logRepo{h} }

func (h handle) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return h.q.ExecContext(ctx, dbx.Rebind(h.dialect, query), args...)
}

func (h handle) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return h.q.QueryContext(ctx, dbx.Rebind(h.dialect, query), args...)
}

func (h handle) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return h.q.QueryRowContext(ctx, dbx.Rebind(h.dialect, query), args...)
}

// mapErr translates driver errors to the storage sentinels.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return storage.ErrNotFound
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %v", storage.ErrConflict, err)
	default:
		return fmt.Errorf("db error: %w", err)
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return false
}

func rowsAffected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func limitOf(limit int) int {
	if limit <= 0 {
		return 20
	}
	return limit
}
