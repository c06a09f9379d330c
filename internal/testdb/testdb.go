// Package testdb opens a migrated PostgreSQL database for integration tests.
// Tests are skipped unless FORMWISE_TEST_DATABASE_DSN is set.
package testdb

import (
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/google/uuid"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/JaimeStill/formwise/migrations"
)

// EnvDSN names the variable holding the integration database DSN.
const EnvDSN = "FORMWISE_TEST_DATABASE_DSN"

// Open migrates the database named by EnvDSN to the latest version and
// returns a pool closed when the test ends.
func Open(t testing.TB) *sql.DB {
	t.Helper()

	dsn := os.Getenv(EnvDSN)
	if dsn == "" {
		t.Skipf("%s not set, skipping database integration test", EnvDSN)
	}

	m, err := migrations.New(dsn)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("apply migrations: %v", err)
	}
	m.Close()

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

// Field mirrors a template field definition for seeding.
type Field struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Type     string   `json:"type"`
	Pattern  string   `json:"pattern,omitempty"`
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
}

// InsertTemplate stores a template with a unique name and returns its id.
// The submissions and events that reference it are removed when the test ends.
func InsertTemplate(t testing.TB, db *sql.DB, name, status string, fields ...Field) uuid.UUID {
	t.Helper()

	if fields == nil {
		fields = []Field{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("encode fields: %v", err)
	}

	id := uuid.New()
	_, err = db.Exec(
		`INSERT INTO form_templates (id, name, description, fields, status) VALUES ($1, $2, $3, $4, $5)`,
		id, name+" "+id.String()[:8], "integration test template", string(data), status,
	)
	if err != nil {
		t.Fatalf("insert template: %v", err)
	}

	t.Cleanup(func() {
		db.Exec(`DELETE FROM submissions WHERE form_id = $1`, id)
		db.Exec(`DELETE FROM form_templates WHERE id = $1`, id)
	})

	return id
}
