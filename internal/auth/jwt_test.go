// internal/auth/jwt_test.go
package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finflow-lending/internal/domain"
	"finflow-lending/internal/util"
)

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokenManager("test-secret", 30*time.Minute, "finflow-lending")
	user := &domain.User{ID: 42, Role: domain.RoleAdmin}

	token, expiresAt, err := tokens.Issue(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), expiresAt, 5*time.Second)

	p, err := tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), p.UserID)
	assert.True(t, p.IsAdmin())
}

func TestTokenRejected(t *testing.T) {
	user := &domain.User{ID: 7, Role: domain.RoleUser}
	issuer := NewTokenManager("test-secret", time.Minute, "finflow-lending")
	valid, _, err := issuer.Issue(user)
	require.NoError(t, err)

	t.Run("Expired", func(t *testing.T) {
		later := NewTokenManager("test-secret", time.Minute, "finflow-lending")
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

		_, err := later.Parse(valid)
		assert.ErrorIs(t, err, util.ErrUnauthorized)
		assert.Contains(t, err.Error(), "expired")
	})

	t.Run("WrongSecret", func(t *testing.T) {
		_, err := NewTokenManager("other-secret", time.Minute, "finflow-lending").Parse(valid)
		assert.ErrorIs(t, err, util.ErrUnauthorized)
	})

	t.Run("WrongIssuer", func(t *testing.T) {
		_, err := NewTokenManager("test-secret", time.Minute, "someone-else").Parse(valid)
		assert.ErrorIs(t, err, util.ErrUnauthorized)
	})

	t.Run("WrongAlgorithm", func(t *testing.T) {
		claims := Claims{
			Role: domain.RoleUser,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "7",
				Issuer:    "finflow-lending",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
		require.NoError(t, err)

		_, err = issuer.Parse(token)
		assert.ErrorIs(t, err, util.ErrUnauthorized)
	})

	t.Run("UnknownRole", func(t *testing.T) {
		claims := Claims{
			Role: domain.Role("ROOT"),
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "7",
				Issuer:    "finflow-lending",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
		require.NoError(t, err)

		_, err = issuer.Parse(token)
		assert.ErrorIs(t, err, util.ErrUnauthorized)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := issuer.Parse("not-a-token")
		assert.ErrorIs(t, err, util.ErrUnauthorized)
	})
}
