package token

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWT_GenerateAndParseSessionToken(t *testing.T) {
	manager := NewJWT("test-secret")
	userID := uuid.New()

	tokenString, err := manager.GenerateSessionToken(userID)
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	parsed, err := manager.ParseSessionToken(tokenString)
	require.NoError(t, err)
	assert.Equal(t, userID, parsed)
}

func TestJWT_ParseSessionToken_WrongSecret(t *testing.T) {
	tokenString, err := NewJWT("test-secret").GenerateSessionToken(uuid.New())
	require.NoError(t, err)

	_, err = NewJWT("other-secret").ParseSessionToken(tokenString)
	require.Error(t, err)
}

func TestJWT_ParseSessionToken_Garbage(t *testing.T) {
	_, err := NewJWT("test-secret").ParseSessionToken("not.a.token")
	require.Error(t, err)
}

func TestExtractExpiry(t *testing.T) {
	manager := NewJWT("test-secret")

	tokenString, err := manager.GenerateSessionToken(uuid.New())
	require.NoError(t, err)

	expiry, err := ExtractExpiry(tokenString)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(sessionTTL), expiry, 5*time.Second)
}

func TestExtractExpiry_Garbage(t *testing.T) {
	_, err := ExtractExpiry("not.a.token")
	require.Error(t, err)
}
