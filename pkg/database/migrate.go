package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// migrationLockID serializes migrations across replicas starting together.
const migrationLockID int64 = 0x72657669657773 // "reviews"

// isConnectionError reports whether err is a transient connection problem
// rather than a SQL error. Only connection errors are retried.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return false
	}
	msg := err.Error()
	for _, p := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"server closed the connection unexpectedly",
		"could not connect",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// RunMigrations applies every *.up.sql file at the root of migrations in
// lexical order, recording each in schema_migrations. Applied versions are
// skipped. Each migration runs in its own transaction under an advisory lock.
// Connection errors are retried with backoff; SQL errors are returned as is.
func RunMigrations(ctx context.Context, db DBTX, migrations fs.FS, logger *slog.Logger) error {
	err := runMigrationsOnce(ctx, db, migrations, logger)
	for attempt := 0; err != nil && isConnectionError(err) && attempt < defaultRetryAttempts-1; attempt++ {
		wait := retryBackoff(attempt)
		logger.Warn("migration failed due to connection error, retrying",
			slog.Int("attempt", attempt+2),
			slog.Int("max_attempts", defaultRetryAttempts),
			slog.Duration("backoff", wait),
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("run migrations: %w", ctx.Err())
		case <-time.After(wait):
		}
		err = runMigrationsOnce(ctx, db, migrations, logger)
	}
	if err != nil && isConnectionError(err) {
		return fmt.Errorf("run migrations after %d attempts: %w", defaultRetryAttempts, err)
	}
	return err
}

// migrationFiles lists *.up.sql names at the root of fsys, sorted.
func migrationFiles(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func runMigrationsOnce(ctx context.Context, db DBTX, migrations fs.FS, logger *slog.Logger) error {
	if _, err := db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	names, err := migrationFiles(migrations)
	if err != nil {
		return err
	}

	for _, name := range names {
		applied, err := applyMigration(ctx, db, migrations, name)
		if err != nil {
			return err
		}
		if applied {
			logger.Info("migration applied", slog.String("version", name))
		} else {
			logger.Debug("migration already applied", slog.String("version", name))
		}
	}
	return nil
}

func applyMigration(ctx context.Context, db DBTX, migrations fs.FS, name string) (bool, error) {
	content, err := fs.ReadFile(migrations, name)
	if err != nil {
		return false, fmt.Errorf("read migration %s: %w", name, err)
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx for migration %s: %w", name, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", migrationLockID); err != nil {
		return false, fmt.Errorf("lock migrations: %w", err)
	}

	var exists bool
	if err := tx.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", name,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("check migration %s: %w", name, err)
	}
	if exists {
		return false, nil
	}

	if _, err := tx.Exec(ctx, string(content)); err != nil {
		return false, fmt.Errorf("execute migration %s: %w", name, err)
	}
	if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", name); err != nil {
		return false, fmt.Errorf("record migration %s: %w", name, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit migration %s: %w", name, err)
	}
	return true, nil
}
