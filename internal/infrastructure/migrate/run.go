package migrate

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"gorm.io/gorm"

	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

// MigrationsTable keeps the currency schema history apart from other
// services sharing the database.
const MigrationsTable = "currency_schema_migrations"

var ErrDirtySchema = errors.New("currency schema is dirty")

type schemaMigrator interface {
	Up() error
	Version() (version uint, dirty bool, err error)
}

// RunMigrations brings the currency schema (series, rates, shedlock and the
// import journal) up to the latest version found under migrationPath.
func RunMigrations(db *gorm.DB, migrationPath string, logger *slog.Logger) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB from gorm.DB: %w", err)
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: MigrationsTable})
	if err != nil {
		return fmt.Errorf("creating postgres driver: %w", err)
	}

	source, err := sourceURL(migrationPath)
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance(source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("creating migrate instance for %s: %w", source, err)
	}

	return upgrade(m, logger)
}

func sourceURL(migrationPath string) (string, error) {
	abs, err := filepath.Abs(migrationPath)
	if err != nil {
		return "", fmt.Errorf("resolve migrations path %q: %w", migrationPath, err)
	}
	return "file://" + filepath.ToSlash(abs), nil
}

// upgrade refuses to touch a dirty schema; a failed migration needs a manual
// force before the service may start.
func upgrade(m schemaMigrator, logger *slog.Logger) error {
	from, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if dirty {
		return fmt.Errorf("%w at version %d", ErrDirtySchema, from)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("currency schema up to date", "version", from)
			return nil
		}
		return fmt.Errorf("applying migrations: %w", err)
	}

	to, _, err := m.Version()
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	logger.Info("currency schema migrated", "from", from, "to", to)
	return nil
}
