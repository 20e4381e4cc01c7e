package sqlstore

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"

	"github.com/nmheeir/Flask-Web-Development/internal/dbx"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

func migrationSource(d dbx.Dialect) (goose.Dialect, fs.FS, error) {
	var (
		dialect goose.Dialect
		dir     string
	)
	switch d {
	case dbx.SQLite:
		dialect, dir = goose.DialectSQLite3, "migrations/sqlite"
	case dbx.Postgres:
		dialect, dir = goose.DialectPostgres, "migrations/postgres"
	default:
		return "", nil, fmt.Errorf("unsupported dialect %q", d)
	}
	sub, err := fs.Sub(migrations, dir)
	if err != nil {
		return "", nil, err
	}
	return dialect, sub, nil
}

// Migrate applies every pending embedded migration.
func (s *Store) Migrate(ctx context.Context) error {
	dialect, fsys, err := migrationSource(s.dialect)
	if err != nil {
		return err
	}

	provider, err := goose.NewProvider(dialect, s.db, fsys)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// MigrationVersion returns the current schema version.
func (s *Store) MigrationVersion(ctx context.Context) (int64, error) {
	dialect, fsys, err := migrationSource(s.dialect)
	if err != nil {
		return 0, err
	}
	provider, err := goose.NewProvider(dialect, s.db, fsys)
	if err != nil {
		return 0, fmt.Errorf("goose provider: %w", err)
	}
	return provider.GetDBVersion(ctx)
}
