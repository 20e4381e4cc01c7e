package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmheeir/Flask-Web-Development/internal/dbx"
)

func mapLookup(m map[string]string) lookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestLoadSettingsDefaults(t *testing.T) {
	s, err := loadSettings("", nil)
	require.NoError(t, err)
	assert.Equal(t, defaultDatabaseURL, s.DatabaseURL)
	assert.Equal(t, "info", s.LogLevel)
	assert.Equal(t, "User", s.Engine.Accounts.DefaultRole)
	assert.Empty(t, s.Engine.Security.SecretKey)
}

func TestLoadSettingsFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flasky.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database_url: postgres://flasky:pw@db.internal/flasky
log_level: debug
security:
  secret_key: from-the-yaml-file-123
  token_max_age: 30m
accounts:
  admin_email: yaml-admin@example.com
feed:
  page_size: 7
`), 0o600))

	s, err := loadSettings(path, mapLookup(map[string]string{
		"FLASKY_ADMIN": "env-admin@example.com",
		"REDIS_URL":    "redis://localhost:6379/2",
		"LOG_LEVEL":    "  ",
	}))
	require.NoError(t, err)

	assert.Equal(t, "postgres://flasky:pw@db.internal/flasky", s.DatabaseURL)
	assert.Equal(t, "debug", s.LogLevel, "blank env values must not override")
	assert.Equal(t, "from-the-yaml-file-123", s.Engine.Security.SecretKey)
	assert.Equal(t, 30*time.Minute, s.Engine.Security.TokenMaxAge)
	assert.Equal(t, time.Hour, s.Engine.Security.AuthTokenMaxAge, "unset fields keep defaults")
	assert.Equal(t, "env-admin@example.com", s.Engine.Accounts.AdminEmail)
	assert.Equal(t, "redis://localhost:6379/2", s.RedisURL)
	assert.Equal(t, 7, s.Engine.Feed.PageSize)
	require.NoError(t, s.Engine.Validate())
}

func TestLoadSettingsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("security: [unterminated"), 0o600))

	_, err := loadSettings(path, nil)
	require.Error(t, err)

	_, err = loadSettings(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
}

func TestEnvLookupPrefersProcessEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SECRET_KEY=dotenv-secret\nFLASKY_ADMIN=dot@example.com\n"), 0o600))
	t.Setenv("SECRET_KEY", "process-secret")

	lookup, err := envLookup(path)
	require.NoError(t, err)

	v, ok := lookup("SECRET_KEY")
	assert.True(t, ok)
	assert.Equal(t, "process-secret", v)

	v, ok = lookup("FLASKY_ADMIN")
	assert.True(t, ok)
	assert.Equal(t, "dot@example.com", v)

	_, err = envLookup(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err, "a missing dotenv file is ignored")
}

func TestResolveDatabase(t *testing.T) {
	dialect, dsn, err := resolveDatabase("sqlite:data-dev.sqlite")
	require.NoError(t, err)
	assert.Equal(t, dbx.SQLite, dialect)
	assert.Equal(t, "data-dev.sqlite", dsn)

	dialect, dsn, err = resolveDatabase("postgres://flasky:pw@localhost/flasky")
	require.NoError(t, err)
	assert.Equal(t, dbx.Postgres, dialect)
	assert.Contains(t, dsn, "dbname=flasky")

	_, _, err = resolveDatabase("mysql://root@localhost/flasky")
	require.Error(t, err)

	_, _, err = resolveDatabase("::not a url")
	require.Error(t, err)
}

func TestRunDeployThenRoles(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SECRET_KEY", "cli-test-secret-0123456789")
	ctx := context.Background()
	args := []string{"-env", "", "-db", "sqlite:flasky-test.sqlite", "-log-level", "warn"}

	var out, errOut bytes.Buffer
	require.NoError(t, run(ctx, append(args, "deploy"), &out, &errOut), errOut.String())
	assert.Contains(t, out.String(), "deployed schema version")

	out.Reset()
	require.NoError(t, run(ctx, append(args, "deploy"), &out, &errOut), "deploy must be re-runnable")
	assert.Contains(t, out.String(), "0 self-follows added")

	out.Reset()
	require.NoError(t, run(ctx, append(args, "roles"), &out, &errOut))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, out.String(), "FOLLOW|COMMENT|WRITE (default)")
	assert.Contains(t, out.String(), "Administrator")
}

func TestRunUsageErrors(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SECRET_KEY", "cli-test-secret-0123456789")
	ctx := context.Background()

	var out, errOut bytes.Buffer
	err := run(ctx, []string{"-env", ""}, &out, &errOut)
	require.ErrorIs(t, err, errUsage)

	err = run(ctx, []string{"-env", "", "-db", "sqlite:usage.sqlite", "explode"}, &out, &errOut)
	require.ErrorIs(t, err, errUsage)
	assert.Contains(t, errOut.String(), "usage: flasky")
}
