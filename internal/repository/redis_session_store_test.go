package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/mansoorceksport/mentorlink/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisSessionStore_RefreshTokenLifecycle(t *testing.T) {
	mr, client := newMiniRedis(t)
	store := NewRedisSessionStore(client)
	ctx := context.Background()

	token := &domain.RefreshToken{
		UserID:    "user-1",
		TokenHash: "hash-1",
		ExpiresAt: time.Now().Add(time.Hour),
		UserAgent: "test",
		IPAddress: "127.0.0.1",
	}
	require.NoError(t, store.SaveRefreshToken(ctx, token))

	found, err := store.FindRefreshToken(ctx, "hash-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "user-1", found.UserID)
	assert.Equal(t, "hash-1", found.TokenHash)

	require.NoError(t, store.RevokeRefreshToken(ctx, "hash-1"))
	found, err = store.FindRefreshToken(ctx, "hash-1")
	require.NoError(t, err)
	assert.Nil(t, found)

	// expiry follows the token
	require.NoError(t, store.SaveRefreshToken(ctx, &domain.RefreshToken{
		UserID: "user-1", TokenHash: "hash-2", ExpiresAt: time.Now().Add(time.Minute),
	}))
	mr.FastForward(2 * time.Minute)
	found, err = store.FindRefreshToken(ctx, "hash-2")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestRedisSessionStore_RevokeAll(t *testing.T) {
	_, client := newMiniRedis(t)
	store := NewRedisSessionStore(client)
	ctx := context.Background()

	for _, h := range []string{"a", "b", "c"} {
		require.NoError(t, store.SaveRefreshToken(ctx, &domain.RefreshToken{
			UserID: "user-1", TokenHash: h, ExpiresAt: time.Now().Add(time.Hour),
		}))
	}
	require.NoError(t, store.SaveRefreshToken(ctx, &domain.RefreshToken{
		UserID: "user-2", TokenHash: "other", ExpiresAt: time.Now().Add(time.Hour),
	}))

	require.NoError(t, store.RevokeAllRefreshTokens(ctx, "user-1"))

	for _, h := range []string{"a", "b", "c"} {
		found, err := store.FindRefreshToken(ctx, h)
		require.NoError(t, err)
		assert.Nil(t, found, h)
	}
	found, err := store.FindRefreshToken(ctx, "other")
	require.NoError(t, err)
	assert.NotNil(t, found)
}

func TestRedisSessionStore_DenyAccessToken(t *testing.T) {
	mr, client := newMiniRedis(t)
	store := NewRedisSessionStore(client)
	ctx := context.Background()

	denied, err := store.IsAccessTokenDenied(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, denied)

	require.NoError(t, store.DenyAccessToken(ctx, "jti-1", time.Now().Add(10*time.Minute)))
	denied, err = store.IsAccessTokenDenied(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, denied)

	mr.FastForward(11 * time.Minute)
	denied, err = store.IsAccessTokenDenied(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, denied)

	// already expired tokens are not stored
	require.NoError(t, store.DenyAccessToken(ctx, "jti-2", time.Now().Add(-time.Minute)))
	assert.False(t, mr.Exists(deniedAccessKeyPrefix+"jti-2"))
}
