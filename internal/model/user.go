package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// User is an admin-panel account. Deleted users keep their row so the
// username can be reused without losing history.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	CreatedAt    time.Time  `json:"createdAt"`
	DeletedAt    *time.Time `json:"deletedAt,omitempty"`
}

// Active reports whether the account can still log in.
func (u *User) Active() bool { return u != nil && u.DeletedAt == nil }

const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
)

var roleLevel = map[string]int{
	RoleEditor: 1,
	RoleAdmin:  2,
}

const (
	MinPasswordLength = 8
	MaxUsernameLength = 64
)

var (
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrUsernameInvalid  = errors.New("username must be 1-64 characters without spaces")
)

// RoleAtLeast reports whether role grants everything minimum does. Unknown
// roles on either side never qualify.
func RoleAtLeast(role, minimum string) bool {
	have, want := roleLevel[role], roleLevel[minimum]
	return have > 0 && want > 0 && have >= want
}

// ValidRole reports whether role is known.
func ValidRole(role string) bool {
	_, ok := roleLevel[role]
	return ok
}

func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

// NormalizeUsername trims username and checks it is usable as a login name.
func NormalizeUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || utf8.RuneCountInString(username) > MaxUsernameLength ||
		strings.ContainsFunc(username, func(r rune) bool { return r == ' ' || r == '\t' || r == '\n' }) {
		return "", ErrUsernameInvalid
	}
	return username, nil
}
