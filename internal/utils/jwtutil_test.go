package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")

	token, exp, err := GenerateToken(secret, "staff", RoleAdmin, time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := ParseToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, claims.Role)
	assert.Equal(t, "staff", claims.Subject)
}

func TestParseTokenRejects(t *testing.T) {
	secret := []byte("test-secret")

	token, _, err := GenerateToken(secret, "staff", RoleAdmin, time.Hour)
	require.NoError(t, err)
	_, err = ParseToken([]byte("other"), token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, _, err := GenerateToken(secret, "staff", RoleAdmin, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(secret, expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseToken(secret, "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, _, err = GenerateToken(nil, "staff", RoleAdmin, time.Hour)
	assert.Error(t, err)
}
