package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/mentorlink/internal/domain"
	"github.com/mansoorceksport/mentorlink/internal/middleware"
	"go.uber.org/zap"
)

// respondError maps a service error to its status code and body.
// Dependency failures are logged and answered with a generic message.
func respondError(c *fiber.Ctx, logger *zap.Logger, err error) error {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		body := fiber.Map{"error": verr.Error()}
		if fields := verr.FieldMap(); fields != nil {
			body["fields"] = fields
		}
		return c.Status(fiber.StatusBadRequest).JSON(body)
	case errors.Is(err, domain.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, domain.ErrUnauthenticated):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": domain.ErrUnauthenticated.Error()})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": domain.ErrForbidden.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": domain.ErrNotFound.Error()})
	case errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}

	fields := []zap.Field{
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err),
	}
	if p := middleware.GetPrincipal(c); p != nil {
		fields = append(fields, zap.String("user_id", p.ID))
	}
	if errors.Is(err, domain.ErrDependency) {
		logger.Error("dependency failure", fields...)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": domain.ErrDependency.Error()})
	}
	logger.Error("unexpected error", fields...)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}

// parseBody decodes a JSON body, answering 400 itself on failure
func parseBody(c *fiber.Ctx, dst interface{}) bool {
	if err := c.BodyParser(dst); err != nil {
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		return false
	}
	return true
}
