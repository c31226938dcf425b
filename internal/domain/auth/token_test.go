package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := MintToken("secret", "u-1", "Agent One", RoleAgent, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "Agent One", claims.DisplayName)
	assert.Equal(t, RoleAgent, claims.Role)
}

func TestParseTokenRejectsBadInput(t *testing.T) {
	token, err := MintToken("secret", "u-1", "Agent One", RoleAgent, time.Hour)
	require.NoError(t, err)

	_, err = ParseToken("other-secret", token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseToken("secret", "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := MintToken("secret", "u-1", "Agent One", RoleAgent, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken("secret", expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	badRole, err := MintToken("secret", "u-1", "Agent One", "superuser", time.Hour)
	require.NoError(t, err)
	_, err = ParseToken("secret", badRole)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
