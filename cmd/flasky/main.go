// Command flasky prepares a database for the flasky engine.
//
//	flasky [flags] deploy   migrate, bootstrap roles, repair self-follows
//	flasky [flags] roles    print the stored roles
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	flasky "github.com/nmheeir/Flask-Web-Development"
	"github.com/nmheeir/Flask-Web-Development/internal/logging"
	"github.com/nmheeir/Flask-Web-Development/permission"
	"github.com/nmheeir/Flask-Web-Development/storage/sqlstore"
)

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, "flasky:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("flasky", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath = fs.String("config", "", "YAML config `file`")
		envFile    = fs.String("env", ".env", "dotenv `file` read when present")
		dbURL      = fs.String("db", "", "database url, overrides DATABASE_URL")
		redisURL   = fs.String("redis", "", "redis url, overrides REDIS_URL")
		logLevel   = fs.String("log-level", "", "debug, info, warn or error")
	)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: flasky [flags] deploy|roles")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errUsage
	}

	lookup, err := envLookup(*envFile)
	if err != nil {
		return err
	}
	s, err := loadSettings(*configPath, lookup)
	if err != nil {
		return err
	}
	if *dbURL != "" {
		s.DatabaseURL = *dbURL
	}
	if *redisURL != "" {
		s.RedisURL = *redisURL
	}
	if *logLevel != "" {
		s.LogLevel = *logLevel
	}

	logger, err := logging.New(stderr, s.LogLevel)
	if err != nil {
		return err
	}

	store, err := openStore(ctx, s.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()

	builder := flasky.New().
		WithConfig(s.Engine).
		WithStorage(store).
		WithLogger(logger.Slog())
	if s.RedisURL != "" {
		opts, err := redis.ParseURL(s.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()
		builder = builder.WithRedis(client)
	}

	engine, err := builder.Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	switch cmd := fs.Arg(0); cmd {
	case "deploy":
		return deploy(ctx, store, engine, logger, stdout)
	case "roles":
		return printRoles(ctx, engine, stdout)
	default:
		fs.Usage()
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func openStore(ctx context.Context, rawURL string) (*sqlstore.Store, error) {
	dialect, dsn, err := resolveDatabase(rawURL)
	if err != nil {
		return nil, err
	}
	store, err := sqlstore.Open(dialect, dsn)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.DB().PingContext(pingCtx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return store, nil
}

func deploy(ctx context.Context, store *sqlstore.Store, engine *flasky.Engine, logger *logging.SlogLogger, out io.Writer) error {
	if err := store.Migrate(ctx); err != nil {
		return err
	}
	version, err := store.MigrationVersion(ctx)
	if err != nil {
		return err
	}
	logger.Info(ctx, "schema migrated", "version", version)

	if err := engine.BootstrapRoles(ctx); err != nil {
		return err
	}
	if err := engine.CheckRoles(ctx); err != nil {
		return err
	}

	repaired, err := engine.EnsureSelfFollows(ctx)
	if err != nil {
		return err
	}
	logger.Info(ctx, "self-follows repaired", "users", repaired)

	fmt.Fprintf(out, "deployed schema version %d, %d self-follows added\n", version, repaired)
	return nil
}

func printRoles(ctx context.Context, engine *flasky.Engine, out io.Writer) error {
	roles, err := engine.Roles(ctx)
	if err != nil {
		return err
	}
	for _, role := range roles {
		marker := ""
		if role.Default {
			marker = " (default)"
		}
		fmt.Fprintf(out, "%-14s %s%s\n", role.Name, permission.FormatMask(role.Permissions), marker)
	}
	return nil
}
