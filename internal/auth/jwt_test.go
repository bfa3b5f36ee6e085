package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/turtlealbum/internal/model"
)

var admin = &model.User{ID: "u-1", Username: "admin", Role: model.RoleAdmin}

func TestIssueAndVerify(t *testing.T) {
	iss := NewIssuer("test-secret-key", 0)

	token, expires, err := iss.Issue(admin)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := iss.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID())
	assert.Equal(t, "admin", claims.Username)
	assert.Equal(t, model.RoleAdmin, claims.Role)
	assert.Equal(t, IssuerName, claims.Issuer)
	assert.WithinDuration(t, time.Now().Add(DefaultTTL), claims.Expiry(), 5*time.Second)
	// NumericDate has second precision.
	assert.WithinDuration(t, expires, claims.Expiry(), time.Second)
}

func TestVerifyRejects(t *testing.T) {
	iss := NewIssuer("secret1", time.Hour)
	token := mustIssue(t, iss)

	foreign := func(method jwt.SigningMethod, key any, claims Claims) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	valid := Claims{
		Role: model.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID: "j", Subject: "u-1", Issuer: IssuerName,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	otherIssuer := valid
	otherIssuer.Issuer = "someone-else"
	noExpiry := valid
	noExpiry.ExpiresAt = nil
	noSubject := valid
	noSubject.Subject = ""
	badRole := valid
	badRole.Role = "owner"

	for name, tok := range map[string]string{
		"wrong secret":  mustIssue(t, NewIssuer("secret2", time.Hour)),
		"garbage":       "not-a-token",
		"other issuer":  foreign(jwt.SigningMethodHS256, []byte("secret1"), otherIssuer),
		"no expiry":     foreign(jwt.SigningMethodHS256, []byte("secret1"), noExpiry),
		"no subject":    foreign(jwt.SigningMethodHS256, []byte("secret1"), noSubject),
		"unknown role":  foreign(jwt.SigningMethodHS256, []byte("secret1"), badRole),
		"hs512":         foreign(jwt.SigningMethodHS512, []byte("secret1"), valid),
		"unsigned none": foreign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, valid),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := iss.Verify(tok)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	_, err := iss.Verify(token)
	assert.NoError(t, err)
}

func mustIssue(t *testing.T, iss *Issuer) string {
	t.Helper()
	tok, _, err := iss.Issue(admin)
	require.NoError(t, err)
	return tok
}

func TestVerifyExpired(t *testing.T) {
	iss := NewIssuer("s", time.Hour)
	start := time.Now()
	iss.now = func() time.Time { return start }

	token := mustIssue(t, iss)

	iss.now = func() time.Time { return start.Add(59 * time.Minute) }
	_, err := iss.Verify(token)
	require.NoError(t, err)

	iss.now = func() time.Time { return start.Add(61 * time.Minute) }
	_, err = iss.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokensHaveUniqueIDs(t *testing.T) {
	iss := NewIssuer("s", 0)

	ca, err := iss.Verify(mustIssue(t, iss))
	require.NoError(t, err)
	cb, err := iss.Verify(mustIssue(t, iss))
	require.NoError(t, err)

	assert.NotEmpty(t, ca.ID)
	assert.NotEqual(t, ca.ID, cb.ID)
}
