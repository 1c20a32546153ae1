package domain

import (
	"context"
	"time"
)

// RefreshToken represents a stored refresh token for session management
type RefreshToken struct {
	UserID    string    `json:"user_id"`
	TokenHash string    `json:"-"` // SHA256 hash, never expose
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UserAgent string    `json:"user_agent"`
	IPAddress string    `json:"ip_address"`
}

// IsExpired checks if the refresh token has expired
func (r *RefreshToken) IsExpired() bool {
	return time.Now().After(r.ExpiresAt)
}

// SessionStore keeps refresh tokens and the access token deny list.
type SessionStore interface {
	SaveRefreshToken(ctx context.Context, token *RefreshToken) error
	// FindRefreshToken returns nil, nil when the hash is unknown or revoked.
	FindRefreshToken(ctx context.Context, hash string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, hash string) error
	RevokeAllRefreshTokens(ctx context.Context, userID string) error

	// DenyAccessToken blocks an access token id until it would have expired anyway.
	DenyAccessToken(ctx context.Context, tokenID string, until time.Time) error
	IsAccessTokenDenied(ctx context.Context, tokenID string) (bool, error)
}
