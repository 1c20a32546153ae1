package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/mentorlink/internal/middleware"
	"github.com/mansoorceksport/mentorlink/internal/service"
	"go.uber.org/zap"
)

// BookingHandler serves the mentee and mentor side of the booking workflow
type BookingHandler struct {
	bookings *service.BookingService
	reviews  *service.ReviewService
	logger   *zap.Logger
}

func NewBookingHandler(bookings *service.BookingService, reviews *service.ReviewService, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{bookings: bookings, reviews: reviews, logger: logger}
}

// --- Mentee ---

// Submit POST /v1/bookings
func (h *BookingHandler) Submit(c *fiber.Ctx) error {
	var req service.SubmitBookingInput
	if !parseBody(c, &req) {
		return nil
	}
	b, err := h.bookings.SubmitBooking(c.UserContext(), middleware.GetPrincipal(c), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(b)
}

// ListMine GET /v1/bookings
func (h *BookingHandler) ListMine(c *fiber.Ctx) error {
	bookings, err := h.bookings.ListMyBookings(c.UserContext(), middleware.GetPrincipal(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(bookings)
}

// Get GET /v1/bookings/:id
func (h *BookingHandler) Get(c *fiber.Ctx) error {
	b, err := h.bookings.GetBooking(c.UserContext(), middleware.GetPrincipal(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(b)
}

// Cancel POST /v1/bookings/:id/cancel
func (h *BookingHandler) Cancel(c *fiber.Ctx) error {
	b, err := h.bookings.CancelBooking(c.UserContext(), middleware.GetPrincipal(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(b)
}

// Review POST /v1/bookings/:id/review
func (h *BookingHandler) Review(c *fiber.Ctx) error {
	var req service.SubmitReviewInput
	if !parseBody(c, &req) {
		return nil
	}
	r, err := h.reviews.SubmitReview(c.UserContext(), middleware.GetPrincipal(c), c.Params("id"), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(r)
}

// MenteeDashboard GET /v1/mentee/dashboard
func (h *BookingHandler) MenteeDashboard(c *fiber.Ctx) error {
	dash, err := h.bookings.MenteeDashboard(c.UserContext(), middleware.GetPrincipal(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(dash)
}

// --- Mentor ---

// MentorDashboard GET /v1/mentor/dashboard
func (h *BookingHandler) MentorDashboard(c *fiber.Ctx) error {
	dash, err := h.bookings.MentorDashboard(c.UserContext(), middleware.GetPrincipal(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(dash)
}

// Respond POST /v1/mentor/assignments/:id/respond
func (h *BookingHandler) Respond(c *fiber.Ctx) error {
	var req struct {
		Response string `json:"response"`
	}
	if !parseBody(c, &req) {
		return nil
	}
	a, err := h.bookings.RespondToAssignment(c.UserContext(), middleware.GetPrincipal(c), c.Params("id"), req.Response)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(a)
}

// MentorReviews GET /v1/mentors/:id/reviews
func (h *BookingHandler) MentorReviews(c *fiber.Ctx) error {
	reviews, err := h.reviews.ListMentorReviews(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(reviews)
}
