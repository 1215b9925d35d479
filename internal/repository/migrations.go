package repository

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mongodb"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

const migrationsCollection = "schema_migrations"

// RunMigrations applies the JSON command migrations in dir against database.
func RunMigrations(uri, database, dir string) error {
	dbURL, err := migrationURL(uri, database)
	if err != nil {
		return err
	}

	m, err := migrate.New(fmt.Sprintf("file://%s", dir), dbURL)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}
	defer m.Close()

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

// migrationURL puts the database name into the URI path, which is where the
// migrate mongodb driver reads it from.
func migrationURL(uri, database string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid mongo uri: %w", err)
	}
	u.Path = "/" + database
	q := u.Query()
	q.Set("x-migrations-collection", migrationsCollection)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
