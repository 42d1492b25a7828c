package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// SchemaVersion is the kv table layout the queries in this package expect.
const SchemaVersion uint = 1

// ErrDirtySchema means an earlier migration stopped halfway and the kv table
// needs manual repair before the ledger can use the file.
var ErrDirtySchema = errors.New("kv schema is dirty")

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations creates or upgrades the kv table at dbPath and returns the
// resulting schema version. It runs on its own connection; the migrate
// driver closes it.
func RunMigrations(dbPath string) (uint, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return 0, fmt.Errorf("open %s for migration: %w", dbPath, err)
	}
	defer conn.Close()

	driver, err := sqlite.WithInstance(conn, &sqlite.Config{})
	if err != nil {
		return 0, fmt.Errorf("kv migration driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("kv migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return 0, fmt.Errorf("kv migrator: %w", err)
	}
	defer m.Close()

	if _, dirty, err := m.Version(); err == nil && dirty {
		return 0, ErrDirtySchema
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("migrate kv table: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("read kv schema version: %w", err)
	}
	if dirty {
		return version, ErrDirtySchema
	}
	if version < SchemaVersion {
		return version, fmt.Errorf("kv schema at version %d, need %d", version, SchemaVersion)
	}
	return version, nil
}
