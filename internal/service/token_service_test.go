package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/mansoorceksport/mentorlink/internal/config"
	"github.com/mansoorceksport/mentorlink/internal/domain"
	"github.com/mansoorceksport/mentorlink/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisTokenService(t *testing.T, users domain.PrincipalRepository) *TokenService {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewTokenService(config.JWTConfig{
		Secret:             "test-secret-key-that-is-long-enough",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: time.Hour,
	}, repository.NewRedisSessionStore(client), users)
}

func TestTokenService_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tokens := newRedisTokenService(t, env.store.Users())
	mentee := env.principal(t, domain.RoleMentee, domain.ApprovalApproved)

	pair, err := tokens.GenerateTokenPair(ctx, mentee, "ua", "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, int64(900), pair.ExpiresIn)

	claims, err := tokens.ParseAccessToken(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, mentee.ID, claims.UserID)
	assert.Equal(t, domain.RoleMentee, claims.Role)
	assert.NotEmpty(t, claims.ID)

	rotated, err := tokens.RefreshAccessToken(ctx, pair.RefreshToken, "ua", "127.0.0.1")
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	_, err = tokens.RefreshAccessToken(ctx, pair.RefreshToken, "ua", "127.0.0.1")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated, "rotated refresh tokens are single use")

	claims, err = tokens.ParseAccessToken(ctx, rotated.AccessToken)
	require.NoError(t, err)
	require.NoError(t, tokens.Logout(ctx, rotated.RefreshToken, claims))

	_, err = tokens.ParseAccessToken(ctx, rotated.AccessToken)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated, "logged out access tokens are denied")

	_, err = tokens.RefreshAccessToken(ctx, rotated.RefreshToken, "ua", "127.0.0.1")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestTokenService_RejectsForeignTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	mentee := env.principal(t, domain.RoleMentee, domain.ApprovalApproved)

	other := NewTokenService(config.JWTConfig{
		Secret:            "another-secret-key-that-is-long-enough",
		AccessTokenExpiry: time.Minute,
	}, newMemSessions(), env.store.Users())
	pair, err := other.GenerateTokenPair(ctx, mentee, "", "")
	require.NoError(t, err)

	_, err = env.tokens.ParseAccessToken(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, err = env.tokens.ParseAccessToken(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}
