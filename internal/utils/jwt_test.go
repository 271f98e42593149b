package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	const secret = "test-secret"

	tok, err := NewAccessToken(secret, "9d9e8b1a-0000-4000-8000-000000000001", "MEMBER", 15)
	require.NoError(t, err)
	require.NotEmpty(t, tok.Token)

	userID, role, err := ParseAccessToken(secret, tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "9d9e8b1a-0000-4000-8000-000000000001", userID)
	assert.Equal(t, "MEMBER", role)
}

func TestParseAccessTokenWrongSecret(t *testing.T) {
	tok, err := NewAccessToken("secret-a", "user-1", "ADMIN", 15)
	require.NoError(t, err)

	_, _, err = ParseAccessToken("secret-b", tok.Token)
	assert.Error(t, err)
}

func TestParseAccessTokenExpired(t *testing.T) {
	tok, err := NewAccessToken("secret", "user-1", "MEMBER", -1)
	require.NoError(t, err)

	_, _, err = ParseAccessToken("secret", tok.Token)
	assert.Error(t, err)
}

func TestParseAccessTokenGarbage(t *testing.T) {
	_, _, err := ParseAccessToken("secret", "not.a.jwt")
	assert.Error(t, err)
}

func TestNewRefreshTokenUnique(t *testing.T) {
	a, err := NewRefreshToken(30)
	require.NoError(t, err)
	b, err := NewRefreshToken(30)
	require.NoError(t, err)

	assert.Len(t, a.Raw, 96)
	assert.NotEqual(t, a.Raw, b.Raw)
	assert.True(t, a.Exp.After(time.Now().UTC().Add(29*24*time.Hour)))
}

func TestHashRefreshRawDeterministic(t *testing.T) {
	assert.Equal(t, HashRefreshRaw("abc"), HashRefreshRaw("abc"))
	assert.NotEqual(t, HashRefreshRaw("abc"), HashRefreshRaw("abd"))
	assert.Len(t, HashRefreshRaw("abc"), 64)
}
