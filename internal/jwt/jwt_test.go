package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "sportsfest/pkg/domain"
	dErrors "sportsfest/pkg/domain-errors"
)

func TestIssueAndValidate(t *testing.T) {
	svc := NewService("test-signing-key", "sportsfest-test", 30*time.Minute)
	actorID := id.NewActorID()

	token, expiresAt, err := svc.IssueAccessToken(actorID, id.RoleStudent, time.Now())
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), expiresAt, 5*time.Second)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, actorID, claims.ActorID)
	assert.Equal(t, id.RoleStudent, claims.Role)
	assert.NotEmpty(t, claims.JTI)
}

func TestValidateToken_Rejections(t *testing.T) {
	svc := NewService("test-signing-key", "sportsfest-test", 30*time.Minute)

	t.Run("expired token", func(t *testing.T) {
		expired := NewService("test-signing-key", "sportsfest-test", -time.Minute)
		token, _, err := expired.IssueAccessToken(id.NewActorID(), id.RoleAdmin, time.Now())
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("wrong signing key", func(t *testing.T) {
		other := NewService("another-key", "sportsfest-test", 30*time.Minute)
		token, _, err := other.IssueAccessToken(id.NewActorID(), id.RoleAdmin, time.Now())
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.ValidateToken("not.a.token")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
