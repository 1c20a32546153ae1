package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mansoorceksport/mentorlink/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	refreshTokenKeyPrefix = "session:refresh:"
	userRefreshSetPrefix  = "session:user:"
	deniedAccessKeyPrefix = "session:denied:"
)

// RedisSessionStore implements domain.SessionStore. Keys expire with the
// tokens they describe.
type RedisSessionStore struct {
	client *redis.Client
}

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

// SaveRefreshToken stores the token and indexes it under its owner
func (s *RedisSessionStore) SaveRefreshToken(ctx context.Context, token *domain.RefreshToken) error {
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	ttl := time.Until(token.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("refresh token already expired")
	}

	data, err := json.Marshal(storedRefreshToken{
		UserID:    token.UserID,
		TokenHash: token.TokenHash,
		ExpiresAt: token.ExpiresAt,
		CreatedAt: token.CreatedAt,
		UserAgent: token.UserAgent,
		IPAddress: token.IPAddress,
	})
	if err != nil {
		return fmt.Errorf("marshal refresh token: %w", err)
	}

	setKey := userRefreshSetPrefix + token.UserID
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, refreshTokenKeyPrefix+token.TokenHash, data, ttl)
	pipe.SAdd(ctx, setKey, token.TokenHash)
	// Tokens share one lifetime, so the newest token bounds the index
	pipe.Expire(ctx, setKey, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) FindRefreshToken(ctx context.Context, hash string) (*domain.RefreshToken, error) {
	data, err := s.client.Get(ctx, refreshTokenKeyPrefix+hash).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}

	var stored storedRefreshToken
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("unmarshal refresh token: %w", err)
	}
	return &domain.RefreshToken{
		UserID:    stored.UserID,
		TokenHash: stored.TokenHash,
		ExpiresAt: stored.ExpiresAt,
		CreatedAt: stored.CreatedAt,
		UserAgent: stored.UserAgent,
		IPAddress: stored.IPAddress,
	}, nil
}

func (s *RedisSessionStore) RevokeRefreshToken(ctx context.Context, hash string) error {
	token, err := s.FindRefreshToken(ctx, hash)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, refreshTokenKeyPrefix+hash)
	if token != nil {
		pipe.SRem(ctx, userRefreshSetPrefix+token.UserID, hash)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeAllRefreshTokens logs a user out everywhere
func (s *RedisSessionStore) RevokeAllRefreshTokens(ctx context.Context, userID string) error {
	setKey := userRefreshSetPrefix + userID
	hashes, err := s.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return fmt.Errorf("list user sessions: %w", err)
	}

	keys := make([]string, 0, len(hashes)+1)
	for _, h := range hashes {
		keys = append(keys, refreshTokenKeyPrefix+h)
	}
	keys = append(keys, setKey)
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("revoke user sessions: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) DenyAccessToken(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, deniedAccessKeyPrefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("deny access token: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) IsAccessTokenDenied(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, deniedAccessKeyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("check denied token: %w", err)
	}
	return n > 0, nil
}

// storedRefreshToken keeps the hash, which domain.RefreshToken hides from JSON
type storedRefreshToken struct {
	UserID    string    `json:"user_id"`
	TokenHash string    `json:"token_hash"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UserAgent string    `json:"user_agent"`
	IPAddress string    `json:"ip_address"`
}
