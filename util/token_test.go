package util

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndParseSessionToken(t *testing.T) {
	SetJWTSecret("token-test-secret")
	defer SetJWTSecret("")

	tok, err := CreateSessionToken(42, "ana@example.com", "PROFESSIONAL", time.Hour)
	require.NoError(t, err)

	claims, err := ParseSessionToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", claims.Email)
	assert.Equal(t, "PROFESSIONAL", claims.Role)
	assert.NotEmpty(t, claims.ID)

	uid, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint(42), uid)
}

func TestSessionTokensAreUnique(t *testing.T) {
	SetJWTSecret("token-test-secret")
	defer SetJWTSecret("")

	a, err := CreateSessionToken(1, "a@example.com", "USER", time.Hour)
	require.NoError(t, err)
	b, err := CreateSessionToken(1, "a@example.com", "USER", time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestParseSessionTokenWrongSecret(t *testing.T) {
	SetJWTSecret("first-secret")
	tok, err := CreateSessionToken(1, "a@example.com", "USER", time.Hour)
	require.NoError(t, err)

	SetJWTSecret("second-secret")
	defer SetJWTSecret("")

	_, err = ParseSessionToken(tok)
	assert.Error(t, err)
}

func TestParseSessionTokenExpired(t *testing.T) {
	SetJWTSecret("token-test-secret")
	defer SetJWTSecret("")

	tok, err := CreateSessionToken(1, "a@example.com", "USER", -time.Minute)
	require.NoError(t, err)

	_, err = ParseSessionToken(tok)
	assert.Error(t, err)
}

func TestParseSessionTokenRejectsNoneAlg(t *testing.T) {
	claims := SessionClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "1"}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseSessionToken(tok)
	assert.Error(t, err)
}

func TestSessionClaimsUserIDInvalid(t *testing.T) {
	for _, sub := range []string{"", "0", "abc", "-3"} {
		c := SessionClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: sub}}
		_, err := c.UserID()
		assert.Error(t, err, "subject %q", sub)
	}
}
