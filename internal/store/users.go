package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erazemk/turtlealbum/internal/db"
	"github.com/erazemk/turtlealbum/internal/model"
)

const userColumns = `id, username, password_hash, role, created_at, deleted_at`

// CreateUser inserts an account. Usernames are unique among active users.
func CreateUser(ctx context.Context, q db.Querier, username, passwordHash, role string) (*model.User, error) {
	id := newID()
	_, err := q.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, role, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, username, passwordHash, role, now(),
	)
	switch {
	case isUniqueViolation(err):
		return nil, ErrUsernameTaken
	case err != nil:
		return nil, fmt.Errorf("creating user %q: %w", username, err)
	}
	return GetUser(ctx, q, id)
}

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.DeletedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func getUser(ctx context.Context, q db.Querier, where string, arg any) (*model.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetUser returns a user by id, including soft-deleted ones.
func GetUser(ctx context.Context, q db.Querier, id string) (*model.User, error) {
	return getUser(ctx, q, `id = ?`, id)
}

// GetUserByUsername returns the active user with the given username.
func GetUserByUsername(ctx context.Context, q db.Querier, username string) (*model.User, error) {
	return getUser(ctx, q, `username = ? AND deleted_at IS NULL`, username)
}

// ListUsers returns the active users, oldest first.
func ListUsers(ctx context.Context, q db.Querier) ([]model.User, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE deleted_at IS NULL ORDER BY created_at, username`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// CountUsers returns the number of active users. Zero means first run.
func CountUsers(ctx context.Context, q db.Querier) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE deleted_at IS NULL`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

// updateActiveUser sets one column of an active user, or returns
// ErrNotFound.
func updateActiveUser(ctx context.Context, q db.Querier, id, column string, value any) error {
	res, err := q.ExecContext(ctx,
		`UPDATE users SET `+column+` = ? WHERE id = ? AND deleted_at IS NULL`, value, id)
	if err != nil {
		return fmt.Errorf("updating user %s: %w", column, err)
	}
	return checkAffected(res)
}

func UpdateUserRole(ctx context.Context, q db.Querier, id, role string) error {
	return updateActiveUser(ctx, q, id, "role", role)
}

func UpdateUserPassword(ctx context.Context, q db.Querier, id, passwordHash string) error {
	return updateActiveUser(ctx, q, id, "password_hash", passwordHash)
}

// DeleteUser soft-deletes a user, freeing the username.
func DeleteUser(ctx context.Context, q db.Querier, id string) error {
	return updateActiveUser(ctx, q, id, "deleted_at", now())
}
