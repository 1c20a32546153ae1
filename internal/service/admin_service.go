package service

import (
	"context"
	"time"

	"github.com/mansoorceksport/mentorlink/internal/authz"
	"github.com/mansoorceksport/mentorlink/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// AdminDashboard is the admin queue: what needs assigning and who needs approving
type AdminDashboard struct {
	PendingBookings    []*domain.Booking                  `json:"pending_bookings"`
	EligibleByCategory map[string][]domain.EligibleMentor `json:"eligible_by_category"`
	PendingUsers       []*domain.Principal                `json:"pending_users"`
	Categories         []*domain.ExpertiseCategory        `json:"categories"`
}

// AdminService handles the admin queue and principal approval
type AdminService struct {
	users      domain.PrincipalRepository
	mentors    domain.MentorRepository
	categories domain.CategoryRepository
	bookings   domain.BookingRepository
	publisher  domain.EventPublisher
	logger     *zap.Logger
	now        func() time.Time
}

// NewAdminService creates a new admin service
func NewAdminService(
	users domain.PrincipalRepository,
	mentors domain.MentorRepository,
	categories domain.CategoryRepository,
	bookings domain.BookingRepository,
	publisher domain.EventPublisher,
	logger *zap.Logger,
) *AdminService {
	if publisher == nil {
		publisher = NoopPublisher
	}
	return &AdminService{
		users:      users,
		mentors:    mentors,
		categories: categories,
		bookings:   bookings,
		publisher:  publisher,
		logger:     logger,
		now:        time.Now,
	}
}

// Dashboard loads the pending booking queue with eligible mentors for every
// category in it (one batched query), plus the approval queue.
func (s *AdminService) Dashboard(ctx context.Context, actor *domain.Principal) (dash *AdminDashboard, err error) {
	ctx, span := tracer.Start(ctx, "AdminService.Dashboard")
	defer func() { finish(span, err) }()

	if err := authz.Authorize(actor, authz.ViewAdminQueue, authz.Resource{}); err != nil {
		return nil, err
	}

	dash = &AdminDashboard{}
	g, gCtx := errgroup.WithContext(ctx)

	// Pending bookings, then eligibility for their distinct categories
	g.Go(func() error {
		pending, err := s.bookings.ListByStatus(gCtx, domain.BookingPendingAssignment)
		if err != nil {
			return dependencyOr(err, "failed to list pending bookings")
		}
		dash.PendingBookings = pending

		categoryIDs := make([]string, 0, len(pending))
		for _, b := range pending {
			categoryIDs = append(categoryIDs, b.ExpertiseCategoryID)
		}
		categoryIDs = dedupe(categoryIDs)

		eligible, err := s.mentors.ListEligible(gCtx, categoryIDs)
		if err != nil {
			return dependencyOr(err, "failed to list eligible mentors")
		}
		for _, id := range categoryIDs {
			if eligible[id] == nil {
				eligible[id] = []domain.EligibleMentor{}
			}
		}
		dash.EligibleByCategory = eligible
		return nil
	})

	// Approval queue
	g.Go(func() error {
		users, err := s.users.ListPendingApprovals(gCtx)
		if err != nil {
			return dependencyOr(err, "failed to list pending users")
		}
		dash.PendingUsers = users
		return nil
	})

	// Category names for display
	g.Go(func() error {
		cats, err := s.categories.List(gCtx)
		if err != nil {
			return dependencyOr(err, "failed to list categories")
		}
		dash.Categories = cats
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("pending_bookings", len(dash.PendingBookings)),
		attribute.Int("pending_users", len(dash.PendingUsers)),
	)
	return dash, nil
}

// ApproveUser approves a pending (or previously rejected) principal
func (s *AdminService) ApproveUser(ctx context.Context, actor *domain.Principal, userID string) (*domain.Principal, error) {
	return s.setApproval(ctx, actor, userID, authz.ApproveUser, domain.ApprovalApproved, domain.EventUserApproved)
}

// RejectUser rejects a principal. A rejected principal can only edit their own profile.
func (s *AdminService) RejectUser(ctx context.Context, actor *domain.Principal, userID string) (*domain.Principal, error) {
	return s.setApproval(ctx, actor, userID, authz.RejectUser, domain.ApprovalRejected, domain.EventUserRejected)
}

func (s *AdminService) setApproval(
	ctx context.Context,
	actor *domain.Principal,
	userID string,
	action authz.Action,
	to domain.ApprovalStatus,
	eventType domain.EventType,
) (p *domain.Principal, err error) {
	ctx, span := tracer.Start(ctx, "AdminService.SetApproval",
		trace.WithAttributes(attribute.String("user_id", userID), attribute.String("to", string(to))),
	)
	defer func() { finish(span, err) }()

	if err := authz.Authorize(actor, action, authz.Resource{}); err != nil {
		return nil, err
	}
	if userID == actor.ID {
		return nil, domain.FieldValidationError("user_id", "cannot change your own approval")
	}

	p, err = s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, dependencyOr(err, "failed to load user")
	}
	// Approval only gates mentor and partner accounts. Admin-tier principals
	// are managed through role changes by a superadmin.
	if !p.Role.RequiresApproval() {
		return nil, domain.ErrForbidden
	}
	if p.ApprovalStatus == to {
		return nil, domain.ErrApprovalUnchanged
	}

	from := p.ApprovalStatus
	if err := s.users.SetApproval(ctx, p.ID, from, to); err != nil {
		return nil, dependencyOr(err, "failed to update approval")
	}
	p.ApprovalStatus = to
	p.UpdatedAt = s.now()

	s.logger.Info("approval changed",
		zap.String("user_id", p.ID),
		zap.String("role", string(p.Role)),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("actor_id", actor.ID),
	)

	e := domain.NewEvent(eventType, actor.ID, p.UpdatedAt)
	e.RecipientIDs = []string{p.ID}
	e.Attributes = map[string]string{"role": string(p.Role)}
	announce(ctx, s.publisher, s.logger, e)

	return p, nil
}
