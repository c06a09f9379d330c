// Package migrations embeds the PostgreSQL schema migrations applied by
// cmd/migrate and the database integration tests.
package migrations

import (
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
)

// FS holds the numbered up/down migration files at its root.
//
//go:embed *.sql
var FS embed.FS

// New returns a migrator for the embedded migrations against the
// postgres:// database URL dsn. Callers must Close it.
func New(dsn string) (*migrate.Migrate, error) {
	source, err := iofs.New(FS, ".")
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, dsn)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}
