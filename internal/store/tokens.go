package store

import (
	"context"
	"fmt"
	"time"

	"github.com/erazemk/turtlealbum/internal/db"
)

// RevokeToken records a logged-out token id. The entry is kept until the
// token would have expired on its own; revoking twice is a no-op.
func RevokeToken(ctx context.Context, q db.Querier, jti string, expiresAt time.Time) error {
	if expiresAt.IsZero() {
		return fmt.Errorf("revoking token %s: missing expiry", jti)
	}
	if _, err := q.ExecContext(ctx,
		`INSERT INTO revoked_tokens (jti, expires_at) VALUES (?, ?) ON CONFLICT (jti) DO NOTHING`,
		jti, expiresAt.UTC(),
	); err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}
	return nil
}

// IsTokenRevoked reports whether jti was logged out.
func IsTokenRevoked(ctx context.Context, q db.Querier, jti string) (bool, error) {
	var revoked bool
	if err := q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = ?)`, jti,
	).Scan(&revoked); err != nil {
		return false, fmt.Errorf("checking token revocation: %w", err)
	}
	return revoked, nil
}

// PurgeRevokedTokens drops revocations whose token expired before cutoff and
// returns how many were removed.
func PurgeRevokedTokens(ctx context.Context, q db.Querier, cutoff time.Time) (int64, error) {
	res, err := q.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("purging revoked tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purging revoked tokens: %w", err)
	}
	return n, nil
}
