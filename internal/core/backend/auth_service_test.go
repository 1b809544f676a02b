package backend_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/stockdesk/internal/core/backend"
	"github.com/rl1809/stockdesk/internal/core/domain"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reg := domain.Registration{Username: "alice", Password: "secret1", Email: "alice@example.com", Role: domain.RoleAdmin}
	user, err := f.auth.Register(ctx, reg)
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", user.PasswordHash)

	_, err = f.auth.Register(ctx, reg)
	requireRejection(t, err, domain.ErrValidation, backend.MsgUsernameTaken)

	token, err := f.auth.Authenticate(ctx, "alice", "secret1")
	require.NoError(t, err)

	claims, err := f.auth.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
	assert.WithinDuration(t, time.Now(), claims.IssuedAt, 5*time.Second)
	assert.True(t, claims.Expiry.After(claims.IssuedAt))

	_, err = f.auth.Authenticate(ctx, "alice", "wrong")
	requireRejection(t, err, domain.ErrUnauthorized, backend.MsgBadCredentials)

	_, err = f.auth.Authenticate(ctx, "nobody", "secret1")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.auth.Register(context.Background(), domain.Registration{Username: "al", Password: "x", Email: "nope", Role: "root"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestEnsureUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg := domain.Registration{Username: "admin", Password: "changeme", Email: "admin@example.com", Role: domain.RoleAdmin}

	require.NoError(t, f.auth.EnsureUser(ctx, reg))
	require.NoError(t, f.auth.EnsureUser(ctx, reg))
}

func TestVerify_Rejects(t *testing.T) {
	f := newFixture(t)

	sign := func(secret string, method jwt.SigningMethod, claims jwt.MapClaims) string {
		token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return token
	}
	now := time.Now()

	cases := map[string]string{
		"wrong secret": sign("other", jwt.SigningMethodHS256, jwt.MapClaims{"sub": "bob", "role": "user", "iat": now.Unix(), "exp": now.Add(time.Hour).Unix()}),
		"expired":      sign("test-secret", jwt.SigningMethodHS256, jwt.MapClaims{"sub": "bob", "role": "user", "iat": now.Add(-2 * time.Hour).Unix(), "exp": now.Add(-time.Hour).Unix()}),
		"no expiry":    sign("test-secret", jwt.SigningMethodHS256, jwt.MapClaims{"sub": "bob", "role": "user", "iat": now.Unix()}),
		"bad role":     sign("test-secret", jwt.SigningMethodHS256, jwt.MapClaims{"sub": "bob", "role": "root", "iat": now.Unix(), "exp": now.Add(time.Hour).Unix()}),
		"other alg":    sign("test-secret", jwt.SigningMethodHS512, jwt.MapClaims{"sub": "bob", "role": "user", "iat": now.Unix(), "exp": now.Add(time.Hour).Unix()}),
		"garbage":      "not.a.token",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.auth.Verify(token)
			assert.ErrorIs(t, err, domain.ErrUnauthorized)
		})
	}
}
