package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/cms-mirror/internal/core/domain"
)

func testClaims(ttl time.Duration) *domain.TokenClaims {
	now := time.Now()
	return &domain.TokenClaims{
		Subject:   "admin",
		Role:      domain.RoleAdmin,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}
}

func TestNewAdapter_DefaultCost(t *testing.T) {
	a := NewAdapter("secret")
	assert.Equal(t, 10, a.bcryptCost)
	assert.Equal(t, []byte("secret"), a.secret)
}

func TestHashAndVerifyPassword(t *testing.T) {
	a := NewAdapterWithCost("secret", 4)

	hash, err := a.HashPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)
	assert.True(t, strings.HasPrefix(hash, "$2a$04$"))

	assert.True(t, a.VerifyPassword("hunter2", hash))
	assert.False(t, a.VerifyPassword("hunter3", hash))
	assert.False(t, a.VerifyPassword("hunter2", "not-a-hash"))
}

func TestHashPassword_Salted(t *testing.T) {
	a := NewAdapterWithCost("secret", 4)

	h1, err := a.HashPassword("same")
	require.NoError(t, err)
	h2, err := a.HashPassword("same")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestToken_RoundTrip(t *testing.T) {
	a := NewAdapter("secret")
	in := testClaims(time.Hour)

	token, err := a.GenerateToken(in)
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)

	out, err := a.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestParseToken_Expired(t *testing.T) {
	a := NewAdapter("secret")
	c := testClaims(-time.Hour)
	c.IssuedAt = time.Now().Add(-2 * time.Hour).Unix()

	token, err := a.GenerateToken(c)
	require.NoError(t, err)

	_, err = a.ParseToken(token)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, err := NewAdapter("one").GenerateToken(testClaims(time.Hour))
	require.NoError(t, err)

	_, err = NewAdapter("two").ParseToken(token)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestParseToken_Garbage(t *testing.T) {
	_, err := NewAdapter("secret").ParseToken("not.a.token")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestParseToken_RejectsOtherAlgorithms(t *testing.T) {
	c := claims{
		Role: domain.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   "admin",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, c).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewAdapter("secret").ParseToken(token)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestParseToken_WrongIssuer(t *testing.T) {
	c := claims{
		Role: domain.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			Subject:   "admin",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewAdapter("secret").ParseToken(token)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}
