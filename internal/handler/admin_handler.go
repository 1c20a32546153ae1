package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/mentorlink/internal/middleware"
	"github.com/mansoorceksport/mentorlink/internal/service"
	"go.uber.org/zap"
)

// AdminHandler serves the admin queue and the superadmin directory
type AdminHandler struct {
	admin     *service.AdminService
	bookings  *service.BookingService
	directory *service.DirectoryService
	logger    *zap.Logger
}

func NewAdminHandler(admin *service.AdminService, bookings *service.BookingService, directory *service.DirectoryService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, bookings: bookings, directory: directory, logger: logger}
}

// Dashboard GET /v1/admin/dashboard
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	dash, err := h.admin.Dashboard(c.UserContext(), middleware.GetPrincipal(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(dash)
}

// ListMentors GET /v1/admin/mentors?category_id=a,b
// A single category returns a list, several return a map keyed by category.
func (h *AdminHandler) ListMentors(c *fiber.Ctx) error {
	var ids []string
	for _, id := range strings.Split(c.Query("category_id"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "category_id is required"})
	}

	actor := middleware.GetPrincipal(c)
	if len(ids) == 1 {
		mentors, err := h.bookings.ListAssignableMentors(c.UserContext(), actor, ids[0])
		if err != nil {
			return respondError(c, h.logger, err)
		}
		return c.JSON(mentors)
	}

	byCategory, err := h.bookings.ListAssignableMentorsByCategories(c.UserContext(), actor, ids)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(byCategory)
}

// Assign POST /v1/admin/bookings/:id/assign
func (h *AdminHandler) Assign(c *fiber.Ctx) error {
	var req struct {
		MentorID string `json:"mentor_id"`
	}
	if !parseBody(c, &req) {
		return nil
	}
	b, err := h.bookings.AssignMentor(c.UserContext(), middleware.GetPrincipal(c), c.Params("id"), req.MentorID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(b)
}

// Complete POST /v1/admin/bookings/:id/complete
func (h *AdminHandler) Complete(c *fiber.Ctx) error {
	b, err := h.bookings.CompleteBooking(c.UserContext(), middleware.GetPrincipal(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(b)
}

// BookingAssignments GET /v1/admin/bookings/:id/assignments
func (h *AdminHandler) BookingAssignments(c *fiber.Ctx) error {
	list, err := h.bookings.ListBookingAssignments(c.UserContext(), middleware.GetPrincipal(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(list)
}

// ApproveUser POST /v1/admin/users/:id/approve
func (h *AdminHandler) ApproveUser(c *fiber.Ctx) error {
	p, err := h.admin.ApproveUser(c.UserContext(), middleware.GetPrincipal(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(p)
}

// RejectUser POST /v1/admin/users/:id/reject
func (h *AdminHandler) RejectUser(c *fiber.Ctx) error {
	p, err := h.admin.RejectUser(c.UserContext(), middleware.GetPrincipal(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(p)
}

// --- Superadmin ---

// ListUsers GET /v1/superadmin/users?q=&role=
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	dir, err := h.directory.ListUsers(c.UserContext(), middleware.GetPrincipal(c), c.Query("q"), c.Query("role"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(dir)
}

// ChangeRole PUT /v1/superadmin/users/:id/role
func (h *AdminHandler) ChangeRole(c *fiber.Ctx) error {
	var req struct {
		Role string `json:"role"`
	}
	if !parseBody(c, &req) {
		return nil
	}
	p, err := h.directory.ChangeRole(c.UserContext(), middleware.GetPrincipal(c), c.Params("id"), req.Role)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(p)
}
