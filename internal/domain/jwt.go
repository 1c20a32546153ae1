package domain

import (
	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims are the claims of an access token issued after identity verification.
// Role is informational; authorization always reloads the principal.
type SessionClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}
