package handler

import (
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/mentorlink/internal/domain"
	"github.com/mansoorceksport/mentorlink/internal/middleware"
	"github.com/mansoorceksport/mentorlink/internal/service"
	"go.uber.org/zap"
)

// ProfileHandler serves the signed-in principal's own profile
type ProfileHandler struct {
	profiles *service.ProfileService
	reviews  *service.ReviewService
	logger   *zap.Logger
}

func NewProfileHandler(profiles *service.ProfileService, reviews *service.ReviewService, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, reviews: reviews, logger: logger}
}

// Me GET /v1/me
func (h *ProfileHandler) Me(c *fiber.Ctx) error {
	p, err := h.profiles.Me(c.UserContext(), middleware.GetPrincipal(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(p)
}

// UpdateMe PATCH /v1/me
func (h *ProfileHandler) UpdateMe(c *fiber.Ctx) error {
	var req service.ContactInput
	if !parseBody(c, &req) {
		return nil
	}
	p, err := h.profiles.UpdateContact(c.UserContext(), middleware.GetPrincipal(c), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(p)
}

// UploadPhoto POST /v1/me/photo (multipart field "photo")
func (h *ProfileHandler) UploadPhoto(c *fiber.Ctx) error {
	file, err := c.FormFile("photo")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "photo file is required"})
	}
	if file.Size > domain.MaxPhotoBytes {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "photo must be at most 2 MiB"})
	}

	f, err := file.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "failed to read photo"})
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, domain.MaxPhotoBytes+1))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "failed to read photo"})
	}

	p, err := h.profiles.UploadPhoto(c.UserContext(), middleware.GetPrincipal(c), data)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(p)
}

// DeletePhoto DELETE /v1/me/photo
func (h *ProfileHandler) DeletePhoto(c *fiber.Ctx) error {
	p, err := h.profiles.DeletePhoto(c.UserContext(), middleware.GetPrincipal(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(p)
}

// MyReviews GET /v1/me/reviews
func (h *ProfileHandler) MyReviews(c *fiber.Ctx) error {
	reviews, err := h.reviews.ListMyReviews(c.UserContext(), middleware.GetPrincipal(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(reviews)
}

// ListCategories GET /v1/categories
func (h *ProfileHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.profiles.ListCategories(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(categories)
}

// GetMentorProfile GET /v1/mentor/profile
func (h *ProfileHandler) GetMentorProfile(c *fiber.Ctx) error {
	profile, err := h.profiles.GetMentorProfile(c.UserContext(), middleware.GetPrincipal(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(profile)
}

// SaveMentorProfile PUT /v1/mentor/profile
func (h *ProfileHandler) SaveMentorProfile(c *fiber.Ctx) error {
	var req service.MentorProfileInput
	if !parseBody(c, &req) {
		return nil
	}
	profile, err := h.profiles.SaveMentorProfile(c.UserContext(), middleware.GetPrincipal(c), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(profile)
}

// GetPartnerProfile GET /v1/partner/profile
func (h *ProfileHandler) GetPartnerProfile(c *fiber.Ctx) error {
	profile, err := h.profiles.GetPartnerProfile(c.UserContext(), middleware.GetPrincipal(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(profile)
}

// SavePartnerProfile PUT /v1/partner/profile
func (h *ProfileHandler) SavePartnerProfile(c *fiber.Ctx) error {
	var req service.PartnerProfileInput
	if !parseBody(c, &req) {
		return nil
	}
	profile, err := h.profiles.SavePartnerProfile(c.UserContext(), middleware.GetPrincipal(c), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(profile)
}
