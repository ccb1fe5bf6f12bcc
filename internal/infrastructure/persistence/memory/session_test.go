package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/xiebiao/library/pkg/errors"
)

func TestSessionStore_Expiry(t *testing.T) {
	s := NewSessionStore()
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }
	ctx := context.Background()

	require.NoError(t, s.SaveSession(ctx, 1, map[string]interface{}{"user_id": 1, "email": "a@example.com"}, time.Minute))
	data, err := s.GetSession(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "1", data["user_id"])

	require.NoError(t, s.AddToBlacklist(ctx, "tok", time.Minute))
	revoked, err := s.IsInBlacklist(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, revoked)

	clock = clock.Add(2 * time.Minute)

	_, err = s.GetSession(ctx, 1)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	revoked, err = s.IsInBlacklist(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestSessionStore_Delete(t *testing.T) {
	s := NewSessionStore()
	ctx := context.Background()

	require.NoError(t, s.SaveSession(ctx, 2, map[string]interface{}{"email": "b@example.com"}, time.Hour))
	require.NoError(t, s.DeleteSession(ctx, 2))
	_, err := s.GetSession(ctx, 2)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}
