package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/mentorlink/internal/config"
	"github.com/mansoorceksport/mentorlink/internal/middleware"
	"github.com/mansoorceksport/mentorlink/internal/service"
	"go.uber.org/zap"
)

const refreshCookie = "mentorlink-refresh-token"

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService  *service.AuthService
	tokenService *service.TokenService
	jwtConfig    config.JWTConfig
	logger       *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, tokenService *service.TokenService, jwtConfig config.JWTConfig, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		tokenService: tokenService,
		jwtConfig:    jwtConfig,
		logger:       logger,
	}
}

// Login handles POST /v1/auth/login
// The Firebase ID token is sent as the bearer token. Unknown identities become mentees.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	token := middleware.BearerToken(c)
	if token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Missing Authorization header",
		})
	}

	result, err := h.authService.LoginOrRegister(c.UserContext(), token, clientInfo(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return h.issue(c, result, fiber.StatusOK)
}

// Signup handles POST /v1/auth/signup
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req service.SignupRequest
	if !parseBody(c, &req) {
		return nil
	}
	if req.FirebaseToken == "" {
		req.FirebaseToken = middleware.BearerToken(c)
	}

	result, err := h.authService.Signup(c.UserContext(), req, clientInfo(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	status := fiber.StatusOK
	if result.IsNewUser {
		status = fiber.StatusCreated
	}
	return h.issue(c, result, status)
}

// Refresh handles POST /v1/auth/refresh
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	refreshToken := h.refreshToken(c)
	if refreshToken == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "No refresh token provided",
		})
	}

	ci := clientInfo(c)
	tokenPair, err := h.tokenService.RefreshAccessToken(c.UserContext(), refreshToken, ci.UserAgent, ci.IPAddress)
	if err != nil {
		h.clearCookie(c)
		return respondError(c, h.logger, err)
	}

	h.setCookie(c, tokenPair.RefreshToken)
	return c.JSON(fiber.Map{
		"token":         tokenPair.AccessToken,
		"refresh_token": tokenPair.RefreshToken,
		"expires_in":    tokenPair.ExpiresIn,
	})
}

// Logout handles POST /v1/auth/logout
// Requires a valid access token so its id can be deny-listed.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.tokenService.Logout(c.UserContext(), h.refreshToken(c), middleware.GetClaims(c)); err != nil {
		return respondError(c, h.logger, err)
	}

	h.clearCookie(c)
	return c.JSON(fiber.Map{
		"message": "Logged out successfully",
	})
}

func (h *AuthHandler) issue(c *fiber.Ctx, result *service.AuthResult, status int) error {
	h.setCookie(c, result.Tokens.RefreshToken)

	message := "Welcome back!"
	if result.IsNewUser {
		message = "Welcome! Your account has been created."
		if !result.Principal.IsApproved() {
			message = "Your account has been created and is waiting for admin approval."
		}
	}

	return c.Status(status).JSON(fiber.Map{
		"token":         result.Tokens.AccessToken,
		"refresh_token": result.Tokens.RefreshToken,
		"expires_in":    result.Tokens.ExpiresIn,
		"is_new_user":   result.IsNewUser,
		"message":       message,
		"user":          result.Principal,
	})
}

// refreshToken reads the cookie, falling back to a JSON body for non-browser clients
func (h *AuthHandler) refreshToken(c *fiber.Ctx) string {
	if token := c.Cookies(refreshCookie); token != "" {
		return token
	}
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if len(c.Body()) > 0 {
		_ = c.BodyParser(&body)
	}
	return body.RefreshToken
}

func (h *AuthHandler) setCookie(c *fiber.Ctx, value string) {
	c.Cookie(&fiber.Cookie{
		Name:     refreshCookie,
		Value:    value,
		Expires:  time.Now().Add(h.jwtConfig.RefreshTokenExpiry),
		HTTPOnly: true,
		Secure:   h.jwtConfig.CookieSecure,
		SameSite: "Lax",
		Path:     "/v1/auth",
	})
}

func (h *AuthHandler) clearCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     refreshCookie,
		Value:    "",
		Expires:  time.Now().Add(-1 * time.Hour),
		HTTPOnly: true,
		Secure:   h.jwtConfig.CookieSecure,
		SameSite: "Lax",
		Path:     "/v1/auth",
	})
}

func clientInfo(c *fiber.Ctx) service.ClientInfo {
	return service.ClientInfo{
		UserAgent: c.Get(fiber.HeaderUserAgent),
		IPAddress: c.IP(),
	}
}
