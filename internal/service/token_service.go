package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mansoorceksport/mentorlink/internal/config"
	"github.com/mansoorceksport/mentorlink/internal/domain"
)

// TokenService handles JWT access/refresh token generation and validation
type TokenService struct {
	jwtConfig config.JWTConfig
	sessions  domain.SessionStore
	users     domain.PrincipalRepository
}

// NewTokenService creates a new token service
func NewTokenService(
	jwtConfig config.JWTConfig,
	sessions domain.SessionStore,
	users domain.PrincipalRepository,
) *TokenService {
	return &TokenService{
		jwtConfig: jwtConfig,
		sessions:  sessions,
		users:     users,
	}
}

// TokenPair contains both access and refresh tokens
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // Seconds until access token expires
}

// GenerateTokenPair creates both access and refresh tokens for a principal
func (s *TokenService) GenerateTokenPair(ctx context.Context, p *domain.Principal, userAgent, ipAddress string) (*TokenPair, error) {
	accessToken, err := s.generateAccessToken(p)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.generateAndStoreRefreshToken(ctx, p.ID, userAgent, ipAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtConfig.AccessTokenExpiry.Seconds()),
	}, nil
}

// RefreshAccessToken validates a refresh token and rotates it
func (s *TokenService) RefreshAccessToken(ctx context.Context, refreshToken, userAgent, ipAddress string) (*TokenPair, error) {
	tokenHash := hashToken(refreshToken)

	storedToken, err := s.sessions.FindRefreshToken(ctx, tokenHash)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to find refresh token: %v", domain.ErrDependency, err)
	}
	if storedToken == nil || storedToken.IsExpired() {
		return nil, fmt.Errorf("%w: refresh token expired or revoked", domain.ErrUnauthenticated)
	}

	p, err := s.users.GetByID(ctx, storedToken.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown user", domain.ErrUnauthenticated)
		}
		return nil, fmt.Errorf("%w: failed to get user: %v", domain.ErrDependency, err)
	}

	// Revoke old refresh token (token rotation)
	if err := s.sessions.RevokeRefreshToken(ctx, tokenHash); err != nil {
		return nil, fmt.Errorf("%w: failed to revoke old token: %v", domain.ErrDependency, err)
	}

	return s.GenerateTokenPair(ctx, p, userAgent, ipAddress)
}

// ParseAccessToken verifies signature, expiry and the deny list
func (s *TokenService) ParseAccessToken(ctx context.Context, tokenString string) (*domain.SessionClaims, error) {
	claims := &domain.SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtConfig.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: invalid or expired token", domain.ErrUnauthenticated)
	}

	if claims.ID != "" {
		denied, err := s.sessions.IsAccessTokenDenied(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrDependency, err)
		}
		if denied {
			return nil, fmt.Errorf("%w: token revoked", domain.ErrUnauthenticated)
		}
	}
	return claims, nil
}

// Logout revokes the refresh token and deny-lists the access token until it expires
func (s *TokenService) Logout(ctx context.Context, refreshToken string, claims *domain.SessionClaims) error {
	if refreshToken != "" {
		if err := s.sessions.RevokeRefreshToken(ctx, hashToken(refreshToken)); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrDependency, err)
		}
	}
	if claims != nil && claims.ID != "" && claims.ExpiresAt != nil {
		if err := s.sessions.DenyAccessToken(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrDependency, err)
		}
	}
	return nil
}

// RevokeAllUserTokens invalidates all refresh tokens for a user (force logout)
func (s *TokenService) RevokeAllUserTokens(ctx context.Context, userID string) error {
	return s.sessions.RevokeAllRefreshTokens(ctx, userID)
}

// generateAccessToken creates a short-lived JWT access token.
// The jti lets logout deny-list it.
func (s *TokenService) generateAccessToken(p *domain.Principal) (string, error) {
	now := time.Now()
	claims := domain.SessionClaims{
		UserID: p.ID,
		Email:  p.Email,
		Role:   p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        domain.NewID(),
			Subject:   p.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtConfig.AccessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtConfig.Secret))
}

// generateAndStoreRefreshToken creates a random refresh token and stores its hash
func (s *TokenService) generateAndStoreRefreshToken(ctx context.Context, userID, userAgent, ipAddress string) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	rawToken := hex.EncodeToString(tokenBytes)

	// Only the hash is stored
	refreshToken := &domain.RefreshToken{
		UserID:    userID,
		TokenHash: hashToken(rawToken),
		ExpiresAt: time.Now().Add(s.jwtConfig.RefreshTokenExpiry),
		UserAgent: userAgent,
		IPAddress: ipAddress,
	}

	if err := s.sessions.SaveRefreshToken(ctx, refreshToken); err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	return rawToken, nil
}

// hashToken creates a SHA256 hash of the token
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
