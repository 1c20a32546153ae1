package middleware

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/mentorlink/internal/domain"
	"go.uber.org/zap"
)

// Context keys for storing session info
const (
	PrincipalKey = "principal"
	ClaimsKey    = "claims"
)

// TokenParser verifies access tokens
type TokenParser interface {
	ParseAccessToken(ctx context.Context, token string) (*domain.SessionClaims, error)
}

// PrincipalLoader reads the current principal row
type PrincipalLoader interface {
	GetByID(ctx context.Context, id string) (*domain.Principal, error)
}

// VerifyToken validates the access token and loads the principal it names.
// The role in the token is never trusted: a role or approval change takes
// effect on the next request.
func VerifyToken(tokens TokenParser, users PrincipalLoader, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := BearerToken(c)
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing authorization token",
			})
		}

		ctx := c.UserContext()
		claims, err := tokens.ParseAccessToken(ctx, tokenString)
		if err != nil {
			if errors.Is(err, domain.ErrUnauthenticated) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Invalid or expired token",
				})
			}
			logger.Error("access token check failed", zap.Error(err))
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": domain.ErrDependency.Error(),
			})
		}

		p, err := users.GetByID(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Unknown user",
				})
			}
			logger.Error("principal lookup failed", zap.String("user_id", claims.UserID), zap.Error(err))
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": domain.ErrDependency.Error(),
			})
		}

		c.Locals(PrincipalKey, p)
		c.Locals(ClaimsKey, claims)
		return c.Next()
	}
}

// RequireRole rejects principals whose current role is not listed.
// It only narrows route groups; every operation still runs the authorization gate.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := GetPrincipal(c)
		if p == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing user context",
			})
		}
		for _, r := range allowed {
			if p.Role == r {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": domain.ErrForbidden.Error(),
		})
	}
}

// GetPrincipal returns the principal loaded by VerifyToken, or nil
func GetPrincipal(c *fiber.Ctx) *domain.Principal {
	p, _ := c.Locals(PrincipalKey).(*domain.Principal)
	return p
}

// GetClaims returns the verified access token claims, or nil
func GetClaims(c *fiber.Ctx) *domain.SessionClaims {
	claims, _ := c.Locals(ClaimsKey).(*domain.SessionClaims)
	return claims
}

// principalID is the id used to scope rate limits and idempotency keys
func principalID(c *fiber.Ctx) string {
	if p := GetPrincipal(c); p != nil {
		return p.ID
	}
	return "anon"
}
