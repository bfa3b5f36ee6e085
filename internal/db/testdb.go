package db

import (
	"context"
	"os"
	"strings"
	"testing"
)

// TestPostgresEnv names a Postgres DSN that NewTestDB uses instead of an
// in-memory SQLite database. Its tables are emptied before each test.
const TestPostgresEnv = "TURTLEALBUM_TEST_POSTGRES"

// NewTestDB returns a migrated database owned by the test and closed with it.
func NewTestDB(t testing.TB) *DB {
	t.Helper()
	ctx := context.Background()

	driver, dsn := string(SQLite), ":memory:"
	if pg := os.Getenv(TestPostgresEnv); pg != "" {
		driver, dsn = string(Postgres), pg
	}

	d, err := Open(driver, dsn)
	if err != nil {
		t.Fatalf("opening %s test database: %v", driver, err)
	}
	t.Cleanup(func() { d.Close() })

	if err := Migrate(ctx, d); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}

	if d.Dialect() == Postgres {
		stmt := "TRUNCATE " + strings.Join(Tables(), ", ") + " CASCADE"
		if _, err := d.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("emptying test database: %v", err)
		}
	}
	return d
}
