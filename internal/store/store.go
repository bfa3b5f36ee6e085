// Package store holds the SQL queries behind every resource. Functions take a
// db.Querier so they run on the pool or inside a transaction alike; getters
// return nil, nil when the row does not exist.
package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/erazemk/turtlealbum/internal/timeline"
)

var (
	// ErrNotFound is returned by mutations whose target row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrCodeExists is returned when a breeder code is already taken.
	ErrCodeExists = errors.New("breeder code already exists")
	// ErrSeriesNameExists is returned when a series name is already taken.
	ErrSeriesNameExists = errors.New("series name already exists")
	// ErrSeriesInUse is returned when deleting a series that still has breeders.
	ErrSeriesInUse = errors.New("series still has breeders")
	// ErrUsernameTaken is returned when an active user already has the name.
	ErrUsernameTaken = errors.New("username already taken")
)

func newID() string {
	return uuid.NewString()
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// nullString maps "" to NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// parseStamp parses a TEXT date column written with timeline.FormatTime.
func parseStamp(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t, err := timeline.ParseTime(ns.String)
	if err != nil {
		return nil
	}
	return &t
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
