package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("secret", "medseq"))

	token, expiresAt, err := svc.GenerateAccessToken("ops@clinic", []string{RoleSequenceAdmin}, time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	user, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops@clinic", user.UserID)
	assert.Equal(t, []string{RoleSequenceAdmin}, user.Roles)
}

func TestJWTService_RejectsWrongSecret(t *testing.T) {
	issuer := NewJWTService(DefaultJWTConfig("secret-a", "medseq"))
	verifier := NewJWTService(DefaultJWTConfig("secret-b", "medseq"))

	token, _, err := issuer.GenerateAccessToken("ops", nil, 0)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestJWTService_RejectsWrongIssuer(t *testing.T) {
	token, _, err := NewJWTService(DefaultJWTConfig("secret", "other")).GenerateAccessToken("ops", nil, 0)
	require.NoError(t, err)

	_, err = NewJWTService(DefaultJWTConfig("secret", "medseq")).ValidateToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
}

func TestJWTService_RejectsExpired(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("secret", "medseq"))
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := svc.GenerateAccessToken("ops", nil, time.Hour)
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestJWTService_RequiresSubject(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("secret", "medseq"))
	_, _, err := svc.GenerateAccessToken("", nil, 0)
	assert.Error(t, err)
}
