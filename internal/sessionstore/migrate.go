package sessionstore

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/ConfabulousDev/chat-insights/internal/logger"
	"github.com/ConfabulousDev/chat-insights/internal/sessionstore/migrations"
)

// Migrate applies all pending schema migrations for the driver. It opens its
// own connection and closes it when done.
func Migrate(driver, dsn string) error {
	d, err := dialectFor(driver)
	if err != nil {
		return err
	}

	src, err := iofs.New(migrations.FS, d.name)
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	db, err := sql.Open(d.sqlDriver, dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	var target database.Driver
	switch d.name {
	case DriverPostgres:
		target, err = pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	case DriverSQLite:
		target, err = sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	}
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, d.name, target)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	// Closing the migrator closes db as well.
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	logger.Info("database schema up to date", "driver", d.name, "version", version, "dirty", dirty)
	return nil
}
