package db

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// ErrDirtyMigration is returned when a previous migration failed halfway.
var ErrDirtyMigration = errors.New("platform/db: database is in a dirty migration state")

// Migrate applies every pending up migration in fsys and returns the resulting schema version.
func Migrate(dsn string, fsys fs.FS, logger *slog.Logger) (uint, error) {
	if logger == nil {
		logger = slog.Default()
	}
	src, err := iofs.New(fsys, ".")
	if err != nil {
		return 0, fmt.Errorf("platform/db: open migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, MigrateURL(dsn))
	if err != nil {
		return 0, fmt.Errorf("platform/db: init migrate: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Warn("close migrate", slog.Any("source_error", srcErr), slog.Any("database_error", dbErr))
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("platform/db: migrate up: %w", err)
	}
	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, nil
		}
		return 0, fmt.Errorf("platform/db: migration version: %w", err)
	}
	if dirty {
		return version, ErrDirtyMigration
	}
	logger.Info("schema up to date", slog.Uint64("version", uint64(version)))
	return version, nil
}

// MigrateURL rewrites a postgres DSN for the pgx v5 migrate driver.
func MigrateURL(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}
