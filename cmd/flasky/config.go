package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/xo/dburl"
	"gopkg.in/yaml.v3"

	flasky "github.com/nmheeir/Flask-Web-Development"
	"github.com/nmheeir/Flask-Web-Development/internal/dbx"
)

const defaultDatabaseURL = "sqlite:data-dev.sqlite"

// settings is everything the CLI needs to build an engine.
type settings struct {
	Engine      flasky.Config `yaml:",inline"`
	DatabaseURL string        `yaml:"database_url"`
	RedisURL    string        `yaml:"redis_url"`
	LogLevel    string        `yaml:"log_level"`
}

// lookupFunc resolves an environment variable.
type lookupFunc func(key string) (string, bool)

// envLookup prefers the process environment and falls back to the values
// read from envFile. A missing envFile is not an error.
func envLookup(envFile string) (lookupFunc, error) {
	dotenv := map[string]string{}
	if envFile != "" {
		values, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			dotenv = values
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read %s: %w", envFile, err)
		}
	}
	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}, nil
}

// loadSettings starts from the engine defaults, applies the YAML file at
// path (if any), then the environment.
func loadSettings(path string, lookup lookupFunc) (settings, error) {
	s := settings{
		Engine:      flasky.DefaultConfig(),
		DatabaseURL: defaultDatabaseURL,
		LogLevel:    "info",
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return settings{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &s); err != nil {
			return settings{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if lookup == nil {
		return s, nil
	}
	overlay := []struct {
		key string
		dst *string
	}{
		{"SECRET_KEY", &s.Engine.Security.SecretKey},
		{"FLASKY_ADMIN", &s.Engine.Accounts.AdminEmail},
		{"DATABASE_URL", &s.DatabaseURL},
		{"REDIS_URL", &s.RedisURL},
		{"LOG_LEVEL", &s.LogLevel},
	}
	for _, o := range overlay {
		if v, ok := lookup(o.key); ok && strings.TrimSpace(v) != "" {
			*o.dst = strings.TrimSpace(v)
		}
	}
	return s, nil
}

// resolveDatabase maps a database URL to a storage dialect and driver DSN.
func resolveDatabase(raw string) (dbx.Dialect, string, error) {
	u, err := dburl.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("parse database url: %w", err)
	}
	switch u.Driver {
	case "sqlite3":
		return dbx.SQLite, u.DSN, nil
	case "postgres":
		return dbx.Postgres, u.DSN, nil
	default:
		return "", "", fmt.Errorf("unsupported database driver %q", u.Driver)
	}
}
