package jwt

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_RoundTrip(t *testing.T) {
	m := NewManager("secret", time.Hour)
	userID := uuid.New()

	token, err := m.GenerateToken(Subject{
		UserID:       userID,
		Email:        "cashier@example.com",
		Name:         "Cashier",
		RoleCode:     "CASHIER",
		Privileges:   []string{"sale:create"},
		TokenVersion: "v1",
		TenantID:     "tenant-1",
	})
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "cashier@example.com", claims.Email)
	assert.Equal(t, []string{"sale:create"}, claims.Privileges)
	assert.Equal(t, "v1", claims.TokenVersion)
	assert.Equal(t, "tenant-1", claims.TenantID)
}

func TestManager_Rejects(t *testing.T) {
	m := NewManager("secret", time.Hour)
	token, err := m.GenerateToken(Subject{UserID: uuid.New()})
	require.NoError(t, err)

	t.Run("empty token", func(t *testing.T) {
		_, err := m.ValidateToken("")
		assert.ErrorIs(t, err, ErrMissingToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewManager("other", time.Hour).ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		late := NewManager("secret", time.Hour)
		late.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := late.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.ValidateToken("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestNewManager_DefaultTTL(t *testing.T) {
	assert.Equal(t, 24*time.Hour, NewManager("s", 0).TTL())
}
