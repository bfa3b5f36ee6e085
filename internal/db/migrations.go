package db

import (
	"context"
	"fmt"
	"time"
)

// migration is a schema change applied once, after EnsureSchema, in version
// order. Versions are never reused.
type migration struct {
	version int
	name    string
	stmt    string
}

var migrations = []migration{
	{1, "featured breeders lookup",
		`CREATE INDEX IF NOT EXISTS idx_breeders_featured ON breeders(is_featured, created_at)`},
	{2, "one featured entry per breeder",
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_featured_breeders_breeder ON featured_breeders(breeder_id)`},
	{3, "revoked token expiry",
		`CREATE INDEX IF NOT EXISTS idx_revoked_tokens_expires ON revoked_tokens(expires_at)`},
}

const createMigrationsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
    version    INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
)`

// Migrate creates the schema and applies the migrations newer than the
// recorded version, each in its own transaction.
func Migrate(ctx context.Context, d *DB) error {
	if err := EnsureSchema(ctx, d); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	if _, err := d.ExecContext(ctx, createMigrationsTable); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	current, err := SchemaVersion(ctx, d)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		err := d.InTx(ctx, func(tx *Tx) error {
			if _, err := tx.ExecContext(ctx, m.stmt); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
				m.version, time.Now().UTC())
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
	}
	return nil
}

// SchemaVersion returns the highest applied migration, 0 if none.
func SchemaVersion(ctx context.Context, q Querier) (int, error) {
	var v int
	if err := q.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`,
	).Scan(&v); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}
