package db

import (
	"context"
	"fmt"
	"strings"
)

// schema is the full database schema, one statement per element so it runs
// on drivers that reject multi-statement strings. Types are chosen to be
// valid in both SQLite and PostgreSQL. Event and record dates are TEXT in
// timeline.Layout so that comparisons and MAX() are chronological.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'editor' CHECK (role IN ('admin', 'editor')),
    created_at    TIMESTAMP NOT NULL,
    deleted_at    TIMESTAMP
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL`,

	`CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at TIMESTAMP NOT NULL
)`,

	`CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
)`,

	`CREATE TABLE IF NOT EXISTS site_settings (
    id                       TEXT PRIMARY KEY,
    company_name             TEXT NOT NULL DEFAULT '',
    company_logo             TEXT NOT NULL DEFAULT '',
    company_description      TEXT NOT NULL DEFAULT '',
    contact_phone            TEXT NOT NULL DEFAULT '',
    contact_email            TEXT NOT NULL DEFAULT '',
    contact_address          TEXT NOT NULL DEFAULT '',
    customer_service_qr_code TEXT NOT NULL DEFAULT '',
    wechat_number            TEXT NOT NULL DEFAULT '',
    updated_at               TIMESTAMP NOT NULL
)`,

	`CREATE TABLE IF NOT EXISTS series (
    id          TEXT PRIMARY KEY,
    code        TEXT,
    name        TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    sort_order  INTEGER NOT NULL DEFAULT 0,
    is_active   BOOLEAN NOT NULL DEFAULT TRUE,
    created_at  TIMESTAMP NOT NULL,
    updated_at  TIMESTAMP NOT NULL
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_series_name ON series(LOWER(name))`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_series_code ON series(code)`,

	`CREATE TABLE IF NOT EXISTS breeders (
    id                   TEXT PRIMARY KEY,
    code                 TEXT NOT NULL UNIQUE,
    name                 TEXT NOT NULL DEFAULT '',
    description          TEXT NOT NULL DEFAULT '',
    series_id            TEXT REFERENCES series(id),
    sex                  TEXT CHECK (sex IN ('male', 'female')),
    offspring_unit_price DOUBLE PRECISION,
    sire_code            TEXT,
    dam_code             TEXT,
    sire_image_url       TEXT,
    dam_image_url        TEXT,
    mate_code            TEXT,
    price                DOUBLE PRECISION NOT NULL DEFAULT 0,
    cost_price           DOUBLE PRECISION NOT NULL DEFAULT 0,
    has_sample           BOOLEAN NOT NULL DEFAULT FALSE,
    in_stock             BOOLEAN NOT NULL DEFAULT TRUE,
    popularity_score     INTEGER NOT NULL DEFAULT 0,
    is_featured          BOOLEAN NOT NULL DEFAULT FALSE,
    code_prefix          TEXT,
    code_parent_number   INTEGER,
    code_child_number    INTEGER,
    code_child_letter    TEXT,
    created_at           TIMESTAMP NOT NULL,
    updated_at           TIMESTAMP NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_breeders_series_sex ON breeders(series_id, sex)`,
	`CREATE INDEX IF NOT EXISTS idx_breeders_code_sort
    ON breeders(code_prefix, code_parent_number, code_child_number, code_child_letter)`,
	`CREATE INDEX IF NOT EXISTS idx_breeders_sire ON breeders(sire_code)`,
	`CREATE INDEX IF NOT EXISTS idx_breeders_dam ON breeders(dam_code)`,
	`CREATE INDEX IF NOT EXISTS idx_breeders_mate ON breeders(mate_code)`,

	`CREATE TABLE IF NOT EXISTS breeder_images (
    id         TEXT PRIMARY KEY,
    breeder_id TEXT NOT NULL REFERENCES breeders(id) ON DELETE CASCADE,
    url        TEXT NOT NULL,
    alt        TEXT NOT NULL DEFAULT '',
    type       TEXT NOT NULL DEFAULT 'gallery',
    sort_order INTEGER NOT NULL DEFAULT 0,
    variants   TEXT NOT NULL DEFAULT '{}',
    created_at TIMESTAMP NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_breeder_images_breeder ON breeder_images(breeder_id, sort_order)`,

	`CREATE TABLE IF NOT EXISTS mating_records (
    id         TEXT PRIMARY KEY,
    female_id  TEXT NOT NULL REFERENCES breeders(id) ON DELETE CASCADE,
    male_id    TEXT NOT NULL REFERENCES breeders(id) ON DELETE CASCADE,
    mated_at   TEXT NOT NULL,
    notes      TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_mating_records_female ON mating_records(female_id, mated_at)`,
	`CREATE INDEX IF NOT EXISTS idx_mating_records_male ON mating_records(male_id, mated_at)`,

	`CREATE TABLE IF NOT EXISTS egg_records (
    id         TEXT PRIMARY KEY,
    female_id  TEXT NOT NULL REFERENCES breeders(id) ON DELETE CASCADE,
    laid_at    TEXT NOT NULL,
    count      INTEGER,
    notes      TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_egg_records_female ON egg_records(female_id, laid_at)`,

	`CREATE TABLE IF NOT EXISTS breeder_events (
    id            TEXT PRIMARY KEY,
    breeder_id    TEXT NOT NULL REFERENCES breeders(id) ON DELETE CASCADE,
    event_type    TEXT NOT NULL CHECK (event_type IN ('mating', 'egg', 'change_mate')),
    event_date    TEXT NOT NULL,
    male_code     TEXT,
    egg_count     INTEGER,
    note          TEXT,
    old_mate_code TEXT,
    new_mate_code TEXT,
    created_at    TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_breeder_events_timeline
    ON breeder_events(breeder_id, event_date, created_at, id)`,
	`CREATE INDEX IF NOT EXISTS idx_breeder_events_male ON breeder_events(event_type, male_code)`,

	`CREATE TABLE IF NOT EXISTS carousels (
    id          TEXT PRIMARY KEY,
    title       TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    image_url   TEXT NOT NULL,
    link_url    TEXT NOT NULL DEFAULT '',
    is_active   BOOLEAN NOT NULL DEFAULT TRUE,
    sort_order  INTEGER NOT NULL DEFAULT 0,
    created_at  TIMESTAMP NOT NULL,
    updated_at  TIMESTAMP NOT NULL
)`,

	`CREATE TABLE IF NOT EXISTS featured_breeders (
    id         TEXT PRIMARY KEY,
    breeder_id TEXT NOT NULL REFERENCES breeders(id) ON DELETE CASCADE,
    is_active  BOOLEAN NOT NULL DEFAULT TRUE,
    sort_order INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
)`,
}

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(ctx context.Context, d *DB) error {
	for i, stmt := range schema {
		if _, err := d.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema (statement %d): %w", i+1, err)
		}
	}
	return nil
}

// Tables lists the tables EnsureSchema creates, in creation order.
func Tables() []string {
	const prefix = "CREATE TABLE IF NOT EXISTS "
	var names []string
	for _, stmt := range schema {
		if rest, ok := strings.CutPrefix(stmt, prefix); ok {
			names = append(names, strings.Fields(rest)[0])
		}
	}
	return names
}
