package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maptech/stf-service/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	mgr := NewTokenManager("secret", 15, "stf-service")
	user := &domain.User{ID: "u1", Role: domain.RoleEmployee}

	token, expiresAt, err := mgr.Issue(user)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.False(t, expiresAt.IsZero())

	claims, err := mgr.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, domain.RoleEmployee, claims.Role)
	assert.Equal(t, "stf-service", claims.Issuer)
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenManager("secret-a", 15, "stf-service")
	verifier := NewTokenManager("secret-b", 15, "stf-service")

	token, _, err := issuer.Issue(&domain.User{ID: "u1", Role: domain.RoleClient})
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.Error(t, err)
}

func TestTokenRejectsExpired(t *testing.T) {
	mgr := NewTokenManager("secret", -1, "stf-service")

	token, _, err := mgr.Issue(&domain.User{ID: "u1", Role: domain.RoleClient})
	require.NoError(t, err)

	_, err = mgr.Verify(token)
	assert.Error(t, err)
}

func TestTokenRejectsGarbage(t *testing.T) {
	mgr := NewTokenManager("secret", 15, "stf-service")
	_, err := mgr.Verify("not.a.token")
	assert.Error(t, err)
}

func TestHasherRoundTrip(t *testing.T) {
	h := NewHasher(4)

	hash, err := h.Hash("s3cret-pass")
	require.NoError(t, err)
	assert.True(t, h.Compare(hash, "s3cret-pass"))
	assert.False(t, h.Compare(hash, "wrong"))
	assert.False(t, h.Compare("not-a-hash", "s3cret-pass"))
}
