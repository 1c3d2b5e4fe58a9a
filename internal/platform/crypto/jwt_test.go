package crypto

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken_WithJTI(t *testing.T) {
	token, jti, err := GenerateToken("test-secret", "cli", "owner", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotEmpty(t, jti)

	claims, err := ParseToken("test-secret", token)
	require.NoError(t, err)
	assert.Equal(t, jti, claims.ID)
	assert.Equal(t, "cli", claims.Sub)
	assert.Equal(t, "owner", claims.Role)
}

func TestParseToken_Rejects(t *testing.T) {
	token, _, err := GenerateToken("test-secret", "cli", "owner", time.Hour)
	require.NoError(t, err)

	_, err = ParseToken("other-secret", token)
	assert.Error(t, err)

	expired, _, err := GenerateToken("test-secret", "cli", "owner", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken("test-secret", expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	_, err = ParseToken("test-secret", "invalid.token.here")
	assert.Error(t, err)
}

func TestStateToken(t *testing.T) {
	scopes := []string{"https://www.googleapis.com/auth/drive.file"}
	state, err := GenerateStateToken("s3cret", scopes, 10*time.Minute)
	require.NoError(t, err)

	claims, err := ParseStateToken("s3cret", state)
	require.NoError(t, err)
	assert.Equal(t, scopes, claims.Scopes)
	assert.NotEmpty(t, claims.ID)

	_, err = ParseStateToken("wrong", state)
	assert.ErrorIs(t, err, ErrInvalidState)

	// an API token is not a valid state
	api, _, err := GenerateToken("s3cret", "cli", "owner", time.Hour)
	require.NoError(t, err)
	_, err = ParseStateToken("s3cret", api)
	assert.ErrorIs(t, err, ErrInvalidState)
}
