package db

import (
	"context"
	"testing"
)

func TestRebind(t *testing.T) {
	tests := []struct {
		dialect Dialect
		in      string
		want    string
	}{
		{SQLite, "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = ? AND b = ?"},
		{Postgres, "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = $1 AND b = $2"},
		{Postgres, "SELECT '?' FROM t WHERE a = ?", "SELECT '?' FROM t WHERE a = $1"},
		{Postgres, "SELECT 1", "SELECT 1"},
	}

	for _, tt := range tests {
		if got := tt.dialect.Rebind(tt.in); got != tt.want {
			t.Errorf("%s Rebind(%q) = %q, want %q", tt.dialect, tt.in, got, tt.want)
		}
	}
}

func TestPlaceholders(t *testing.T) {
	if got := Placeholders(3); got != "?, ?, ?" {
		t.Errorf("Placeholders(3) = %q", got)
	}
	if got := Placeholders(0); got != "" {
		t.Errorf("Placeholders(0) = %q", got)
	}
}

func TestByteOrder(t *testing.T) {
	if got := SQLite.ByteOrder("code_prefix"); got != "code_prefix" {
		t.Errorf("sqlite ByteOrder = %q", got)
	}
	if got := Postgres.ByteOrder("code_prefix"); got != `code_prefix COLLATE "C"` {
		t.Errorf("postgres ByteOrder = %q", got)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	ctx := context.Background()
	d := NewTestDB(t)

	v, err := SchemaVersion(ctx, d)
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if want := migrations[len(migrations)-1].version; v != want {
		t.Fatalf("schema version = %d, want %d", v, want)
	}

	if err := Migrate(ctx, d); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}

	var applied int
	if err := d.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&applied); err != nil {
		t.Fatalf("counting migrations: %v", err)
	}
	if applied != len(migrations) {
		t.Errorf("applied migrations = %d, want %d", applied, len(migrations))
	}

	for _, table := range Tables() {
		var n int
		if err := d.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			t.Errorf("table %s: %v", table, err)
		}
	}
}

func TestTables(t *testing.T) {
	tables := Tables()
	if len(tables) != 12 {
		t.Fatalf("Tables() = %v, want 12 tables", tables)
	}
	if tables[0] != "users" || tables[len(tables)-1] != "featured_breeders" {
		t.Errorf("Tables() = %v", tables)
	}
}

func TestMigrationVersionsIncrease(t *testing.T) {
	for i := 1; i < len(migrations); i++ {
		if migrations[i].version <= migrations[i-1].version {
			t.Errorf("migration %q has version %d after %d",
				migrations[i].name, migrations[i].version, migrations[i-1].version)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open("oracle", "x"); err == nil {
		t.Error("expected error for unknown driver")
	}
}
