package db

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Migrate applies all pending schema migrations from dir against the
// database at dsn. A no-op when the schema is already current.
func Migrate(dsn, dir string) error {
	if dir == "" {
		return errors.New("platform/db: migrations dir is empty")
	}
	m, err := migrate.New(fmt.Sprintf("file://%s", dir), dsn)
	if err != nil {
		return fmt.Errorf("platform/db: open migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("platform/db: apply migrations: %w", err)
	}
	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		return fmt.Errorf("platform/db: close migration source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("platform/db: close migration db: %w", dbErr)
	}
	return nil
}
