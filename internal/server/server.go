package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/mansoorceksport/mentorlink/internal/config"
	"github.com/mansoorceksport/mentorlink/internal/domain"
	"github.com/mansoorceksport/mentorlink/internal/handler"
	"github.com/mansoorceksport/mentorlink/internal/middleware"
	"github.com/mansoorceksport/mentorlink/internal/repository"
	"github.com/mansoorceksport/mentorlink/internal/service"
	"github.com/mansoorceksport/mentorlink/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// AppDependencies holds the dependencies required to start the application
type AppDependencies struct {
	Config      *config.Config
	Store       *repository.Store
	RedisClient *redis.Client
	AuthClient  service.FirebaseAuthClient
	Blobs       domain.BlobStore
	Publisher   domain.EventPublisher // nil disables events
	Metrics     *telemetry.WorkflowMetrics
	Logger      *zap.Logger
}

// NewApp creates and configures the Fiber application with the given dependencies
func NewApp(deps AppDependencies) *fiber.App {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	store := deps.Store

	// Initialize services
	sessions := repository.NewRedisSessionStore(deps.RedisClient)
	tokenService := service.NewTokenService(cfg.JWT, sessions, store.Users)
	authService := service.NewAuthService(store.Users, store.Mentors, store.Partners, store.Categories, store.Tx, deps.AuthClient, tokenService, logger)
	profileService := service.NewProfileService(store.Users, store.Mentors, store.Partners, store.Categories, deps.Blobs, logger)
	bookingService := service.NewBookingService(store.Users, store.Mentors, store.Categories, store.Bookings, store.Assignments, store.Tx, deps.Publisher, deps.Metrics, logger)
	reviewService := service.NewReviewService(store.Bookings, store.Reviews, store.Mentors, store.Tx, deps.Publisher, logger)
	adminService := service.NewAdminService(store.Users, store.Mentors, store.Categories, store.Bookings, deps.Publisher, logger)
	directoryService := service.NewDirectoryService(store.Users, tokenService, deps.Publisher, logger)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService, tokenService, cfg.JWT, logger)
	profileHandler := handler.NewProfileHandler(profileService, reviewService, logger)
	bookingHandler := handler.NewBookingHandler(bookingService, reviewService, logger)
	adminHandler := handler.NewAdminHandler(adminService, bookingService, directoryService, logger)

	bodyLimit := int(cfg.Server.MaxUploadSizeMB * 1024 * 1024)
	if bodyLimit <= 0 {
		bodyLimit = 4 * 1024 * 1024
	}
	app := fiber.New(fiber.Config{
		AppName:      "mentorlink API",
		BodyLimit:    bodyLimit,
		ErrorHandler: errorHandler(logger),
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(middleware.RequestLogger(logger))
	app.Use(telemetry.FiberMiddleware())
	allowOrigins := cfg.Server.AllowOrigins
	if allowOrigins == "" {
		allowOrigins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:  allowOrigins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Correlation-ID, X-Request-ID",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "X-Request-ID, X-Trace-ID, Retry-After",
	}))

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "mentorlink",
		})
	})

	authenticated := middleware.VerifyToken(tokenService, store.Users, logger)
	rateLimit := middleware.RateLimit(cfg.RateLimit, deps.RedisClient, logger)
	idempotent := middleware.IdempotencyMiddleware(deps.RedisClient, cfg.Server.IdempotencyTTL, logger)

	// API v1 routes. Every response is uncacheable: clients re-query after mutations.
	v1 := app.Group("/v1", middleware.NoStore())

	// Auth endpoints (public)
	auth := v1.Group("/auth")
	auth.Post("/login", rateLimit, authHandler.Login)
	auth.Post("/signup", rateLimit, authHandler.Signup)
	auth.Post("/refresh", rateLimit, authHandler.Refresh)
	auth.Post("/logout", authenticated, rateLimit, authHandler.Logout)

	v1.Get("/categories", rateLimit, profileHandler.ListCategories)

	// ===========================================
	// BOOKINGS - ownership is checked per booking
	// ===========================================
	bookings := v1.Group("/bookings", authenticated, idempotent)
	bookings.Post("/", rateLimit, bookingHandler.Submit)
	bookings.Get("/", rateLimit, bookingHandler.ListMine)
	bookings.Get("/:id", rateLimit, bookingHandler.Get)
	bookings.Post("/:id/cancel", rateLimit, bookingHandler.Cancel)
	bookings.Post("/:id/review", rateLimit, bookingHandler.Review)

	mentee := v1.Group("/mentee", authenticated, middleware.RequireRole(domain.RoleMentee))
	mentee.Get("/dashboard", rateLimit, bookingHandler.MenteeDashboard)

	// Registered before the /mentor group for the same prefix reason as /v1/me below
	v1.Get("/mentors/:id/reviews", authenticated, rateLimit, bookingHandler.MentorReviews)

	// ===========================================
	// MENTOR - /v1/mentor/*
	// ===========================================
	mentor := v1.Group("/mentor", authenticated, idempotent, middleware.RequireRole(domain.RoleMentor))
	mentor.Get("/dashboard", rateLimit, bookingHandler.MentorDashboard)
	mentor.Get("/profile", rateLimit, profileHandler.GetMentorProfile)
	mentor.Put("/profile", rateLimit, profileHandler.SaveMentorProfile)
	mentor.Post("/assignments/:id/respond", rateLimit, bookingHandler.Respond)

	// ===========================================
	// PARTNER - /v1/partner/*
	// ===========================================
	partner := v1.Group("/partner", authenticated, idempotent, middleware.RequireRole(domain.RolePartner))
	partner.Get("/profile", rateLimit, profileHandler.GetPartnerProfile)
	partner.Put("/profile", rateLimit, profileHandler.SavePartnerProfile)

	// ===========================================
	// ADMIN - /v1/admin/* (admin or superadmin)
	// ===========================================
	admin := v1.Group("/admin", authenticated, idempotent, middleware.RequireRole(domain.RoleAdmin, domain.RoleSuperAdmin))
	admin.Get("/dashboard", rateLimit, adminHandler.Dashboard)
	admin.Get("/mentors", rateLimit, adminHandler.ListMentors)
	admin.Post("/bookings/:id/assign", rateLimit, adminHandler.Assign)
	admin.Post("/bookings/:id/complete", rateLimit, adminHandler.Complete)
	admin.Get("/bookings/:id/assignments", rateLimit, adminHandler.BookingAssignments)
	admin.Post("/users/:id/approve", rateLimit, adminHandler.ApproveUser)
	admin.Post("/users/:id/reject", rateLimit, adminHandler.RejectUser)

	// ===========================================
	// SUPERADMIN - /v1/superadmin/*
	// ===========================================
	superadmin := v1.Group("/superadmin", authenticated, idempotent, middleware.RequireRole(domain.RoleSuperAdmin))
	superadmin.Get("/users", rateLimit, adminHandler.ListUsers)
	superadmin.Put("/users/:id/role", rateLimit, adminHandler.ChangeRole)

	// ===========================================
	// PROFILE - /v1/me/* (any signed-in principal)
	// ===========================================
	// Registered last: group middleware matches by plain prefix and
	// /v1/me would otherwise run in front of /v1/mentee and /v1/mentor.
	me := v1.Group("/me", authenticated, idempotent)
	me.Get("/", rateLimit, profileHandler.Me)
	me.Patch("/", rateLimit, profileHandler.UpdateMe)
	me.Post("/photo", rateLimit, profileHandler.UploadPhoto)
	me.Delete("/photo", rateLimit, profileHandler.DeletePhoto)
	me.Get("/reviews", rateLimit, profileHandler.MyReviews)

	return app
}

func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}
		if code >= 500 {
			logger.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
		}
		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}
