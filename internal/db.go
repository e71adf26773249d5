package internal

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prappser/prappser_upload/internal/migrations"
	"github.com/rs/zerolog/log"
)

const (
	DriverSQLite3  = "sqlite3"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// NewDB opens the artifact catalogue and migrates it to the latest
// schema. It returns a nil *sql.DB when the catalogue is disabled.
func NewDB(config DatabaseConfig) (*sql.DB, error) {
	if config.Driver == DriverNone || config.Driver == "" {
		return nil, nil
	}

	if config.Driver == DriverSQLite3 {
		if dir := filepath.Dir(config.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create db directory: %w", err)
			}
		}
	}

	db, err := sql.Open(config.Driver, config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := migrateUp(db, config.Driver); err != nil {
		db.Close()
		return nil, err
	}

	log.Info().Str("driver", config.Driver).Msg("Database ready")
	return db, nil
}

func migrateUp(db *sql.DB, driverName string) error {
	var (
		driver database.Driver
		err    error
	)
	switch driverName {
	case DriverSQLite3:
		driver, err = sqlite3.WithInstance(db, &sqlite3.Config{})
	case DriverPostgres:
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	default:
		return fmt.Errorf("unsupported database driver %q", driverName)
	}
	if err != nil {
		return fmt.Errorf("failed to create driver: %w", err)
	}

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, driverName, driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}
