package sqlite

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// MIGRATIONS:
// The SQL lives in migrations/*.sql and is compiled into the binary with
// go:embed, so a deployed binary never depends on files next to it.
// golang-migrate records the applied version in schema_migrations.
//
// The up migration uses CREATE TABLE IF NOT EXISTS so it can be applied to a
// file whose users table was created by hand or by an earlier tool.

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate applies all pending up-migrations. Already up to date is not an error.
func (db *DB) Migrate() error {
	m, err := db.migrator()
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("sqlite: applying migrations: %w", err)
	}
	return nil
}

// Rollback reverts every applied migration, dropping the users table.
func (db *DB) Rollback() error {
	m, err := db.migrator()
	if err != nil {
		return err
	}
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("sqlite: rolling back migrations: %w", err)
	}
	return nil
}

// SchemaVersion reports the applied migration version. A database with no
// migrations applied reports version 0.
func (db *DB) SchemaVersion() (version uint, dirty bool, err error) {
	m, err := db.migrator()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("sqlite: reading schema version: %w", err)
	}
	return version, dirty, nil
}

// migrator builds a migrate.Migrate bound to the existing pool.
//
// We never call m.Close(): the sqlite driver's Close closes the *sql.DB it
// was given, which is the pool the rest of the app is still using.
func (db *DB) migrator() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db.conn, &migratesqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("sqlite: creating migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("sqlite: creating migrator: %w", err)
	}
	return m, nil
}
