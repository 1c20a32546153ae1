package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mansoorceksport/mentorlink/internal/authz"
	"github.com/mansoorceksport/mentorlink/internal/domain"
	"github.com/mansoorceksport/mentorlink/internal/telemetry"
	"github.com/mansoorceksport/mentorlink/internal/validate"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// SubmitBookingInput is a mentee's session request
type SubmitBookingInput struct {
	ExpertiseCategoryID string `json:"expertise_category_id" validate:"required,notblank"`
	PreferredDate       string `json:"preferred_date" validate:"required,isodate"`
	PreferredTime       string `json:"preferred_time" validate:"required,hhmm"`
	Topic               string `json:"topic" validate:"max=200"`
	Notes               string `json:"notes" validate:"max=2000"`
}

// PendingAssignment is an assignment waiting for the mentor together with its booking
type PendingAssignment struct {
	Assignment *domain.Assignment `json:"assignment"`
	Booking    *domain.Booking    `json:"booking"`
}

// MentorCard is the public view of a mentor shown to mentees
type MentorCard struct {
	ID            string  `json:"id"`
	DisplayName   string  `json:"display_name"`
	Email         string  `json:"email"`
	PhotoURL      string  `json:"photo_url,omitempty"`
	JobTitle      string  `json:"job_title,omitempty"`
	Company       string  `json:"company,omitempty"`
	Bio           string  `json:"bio,omitempty"`
	Rating        float64 `json:"rating"`
	TotalSessions int     `json:"total_sessions"`
}

// MenteeDashboard is the mentee landing view
type MenteeDashboard struct {
	Bookings []*domain.Booking `json:"bookings"`
	Mentor   *MentorCard       `json:"mentor,omitempty"`
}

// MentorDashboard is the mentor landing view
type MentorDashboard struct {
	Profile            *domain.MentorProfile `json:"profile,omitempty"`
	PendingAssignments []PendingAssignment   `json:"pending_assignments"`
}

// BookingService is the assignment engine: it owns every booking state transition
type BookingService struct {
	users       domain.PrincipalRepository
	mentors     domain.MentorRepository
	categories  domain.CategoryRepository
	bookings    domain.BookingRepository
	assignments domain.AssignmentRepository
	tx          domain.Transactor
	publisher   domain.EventPublisher
	metrics     *telemetry.WorkflowMetrics
	logger      *zap.Logger
	now         func() time.Time
}

// NewBookingService creates a new booking service
func NewBookingService(
	users domain.PrincipalRepository,
	mentors domain.MentorRepository,
	categories domain.CategoryRepository,
	bookings domain.BookingRepository,
	assignments domain.AssignmentRepository,
	tx domain.Transactor,
	publisher domain.EventPublisher,
	metrics *telemetry.WorkflowMetrics,
	logger *zap.Logger,
) *BookingService {
	if publisher == nil {
		publisher = NoopPublisher
	}
	return &BookingService{
		users:       users,
		mentors:     mentors,
		categories:  categories,
		bookings:    bookings,
		assignments: assignments,
		tx:          tx,
		publisher:   publisher,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// SubmitBooking creates a booking in pending_assignment for a mentee
func (s *BookingService) SubmitBooking(ctx context.Context, actor *domain.Principal, in SubmitBookingInput) (b *domain.Booking, err error) {
	ctx, span := tracer.Start(ctx, "BookingService.SubmitBooking")
	defer func() { finish(span, err) }()

	if err := authz.Authorize(actor, authz.SubmitBooking, authz.Resource{OwnerID: actor.ID}); err != nil {
		return nil, err
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	now := s.now()
	date, _ := time.Parse(time.DateOnly, in.PreferredDate)
	today, _ := time.Parse(time.DateOnly, now.UTC().Format(time.DateOnly))
	if date.Before(today) {
		return nil, domain.FieldValidationError("preferred_date", "must not be in the past")
	}

	categoryID := strings.TrimSpace(in.ExpertiseCategoryID)
	category, err := s.categories.GetByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.FieldValidationError("expertise_category_id", "unknown category")
		}
		return nil, dependencyOr(err, "failed to load category")
	}

	topic := strings.TrimSpace(in.Topic)
	if topic == "" {
		topic = category.Name
	}

	b = &domain.Booking{
		ID:                  domain.NewID(),
		RequesterID:         actor.ID,
		ExpertiseCategoryID: category.ID,
		Topic:               topic,
		PreferredDate:       in.PreferredDate,
		PreferredTime:       in.PreferredTime,
		Notes:               strings.TrimSpace(in.Notes),
		Status:              domain.BookingPendingAssignment,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.bookings.Create(ctx, b); err != nil {
		return nil, dependencyOr(err, "failed to create booking")
	}

	span.SetAttributes(attribute.String("booking_id", b.ID))
	s.logger.Info("booking submitted",
		zap.String("booking_id", b.ID),
		zap.String("requester_id", actor.ID),
		zap.String("category_id", category.ID),
	)

	e := domain.NewEvent(domain.EventBookingSubmitted, actor.ID, now)
	e.BookingID = b.ID
	e.NotifyRole = domain.RoleAdmin
	e.Attributes = map[string]string{"topic": b.Topic, "preferred_date": b.PreferredDate, "preferred_time": b.PreferredTime}
	announce(ctx, s.publisher, s.logger, e)

	return b, nil
}

// ListAssignableMentors returns the mentors eligible for one category, sorted by mentor id
func (s *BookingService) ListAssignableMentors(ctx context.Context, actor *domain.Principal, categoryID string) ([]domain.EligibleMentor, error) {
	categoryID = strings.TrimSpace(categoryID)
	if categoryID == "" {
		return nil, domain.FieldValidationError("category_id", "is required")
	}
	byCategory, err := s.ListAssignableMentorsByCategories(ctx, actor, []string{categoryID})
	if err != nil {
		return nil, err
	}
	return byCategory[categoryID], nil
}

// ListAssignableMentorsByCategories answers eligibility for many categories with one batched query
func (s *BookingService) ListAssignableMentorsByCategories(ctx context.Context, actor *domain.Principal, categoryIDs []string) (map[string][]domain.EligibleMentor, error) {
	if err := authz.Authorize(actor, authz.ViewAdminQueue, authz.Resource{}); err != nil {
		return nil, err
	}
	ids := dedupe(categoryIDs)
	result, err := s.mentors.ListEligible(ctx, ids)
	if err != nil {
		return nil, dependencyOr(err, "failed to list eligible mentors")
	}
	for _, id := range ids {
		if result[id] == nil {
			result[id] = []domain.EligibleMentor{}
		}
	}
	return result, nil
}

// AssignMentor moves a pending booking to assigned_pending_mentor and records the attempt
func (s *BookingService) AssignMentor(ctx context.Context, actor *domain.Principal, bookingID, mentorID string) (b *domain.Booking, err error) {
	ctx, span := tracer.Start(ctx, "BookingService.AssignMentor",
		trace.WithAttributes(attribute.String("booking_id", bookingID), attribute.String("mentor_id", mentorID)),
	)
	defer func() { finish(span, err) }()

	if err := authz.Authorize(actor, authz.AssignMentor, authz.Resource{}); err != nil {
		return nil, err
	}
	mentorID = strings.TrimSpace(mentorID)
	if mentorID == "" {
		return nil, domain.FieldValidationError("mentor_id", "is required")
	}

	b, err = s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	to, err := domain.NextStatus(b.Status, domain.EventAssign)
	if err != nil {
		s.metrics.Conflict(ctx, "assign")
		return nil, err
	}

	// Eligibility is re-checked against the store, never the cache
	eligible, err := s.mentors.ListEligible(domain.BypassCache(ctx), []string{b.ExpertiseCategoryID})
	if err != nil {
		return nil, dependencyOr(err, "failed to check mentor eligibility")
	}
	if !containsMentor(eligible[b.ExpertiseCategoryID], mentorID) {
		return nil, domain.FieldValidationError("mentor_id", "mentor is not eligible for this booking")
	}

	now := s.now()
	assignment := &domain.Assignment{
		ID:             domain.NewID(),
		BookingID:      b.ID,
		MentorID:       mentorID,
		AssignedBy:     actor.ID,
		MentorResponse: domain.ResponsePending,
		AssignedAt:     now,
	}
	from := b.Status
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.bookings.Transition(ctx, domain.BookingTransition{
			BookingID:   b.ID,
			From:        from,
			To:          to,
			SetMentorID: mentorID,
			AssignedBy:  actor.ID,
			At:          now,
		}); err != nil {
			return err
		}
		return s.assignments.Create(ctx, assignment)
	})
	if err != nil {
		return nil, s.failed(ctx, "assign", err, "failed to assign mentor")
	}

	b.Status = to
	assignedBy := actor.ID
	b.MentorID = &mentorID
	b.AssignedBy = &assignedBy
	b.UpdatedAt = now
	s.committed(ctx, domain.EventAssign, from, to, b, actor)

	e := domain.NewEvent(domain.EventMentorAssigned, actor.ID, now)
	e.BookingID = b.ID
	e.AssignmentID = assignment.ID
	e.RecipientIDs = []string{mentorID, b.RequesterID}
	e.Attributes = map[string]string{"topic": b.Topic, "preferred_date": b.PreferredDate, "preferred_time": b.PreferredTime}
	announce(ctx, s.publisher, s.logger, e)

	return b, nil
}

// RespondToAssignment records a mentor's accept or reject and moves the booking accordingly
func (s *BookingService) RespondToAssignment(ctx context.Context, actor *domain.Principal, assignmentID, response string) (a *domain.Assignment, err error) {
	ctx, span := tracer.Start(ctx, "BookingService.RespondToAssignment",
		trace.WithAttributes(attribute.String("assignment_id", assignmentID)),
	)
	defer func() { finish(span, err) }()

	// Role and approval first, so other roles cannot enumerate ids
	if err := authz.Authorize(actor, authz.RespondAssignment, authz.Resource{MentorID: actor.ID}); err != nil {
		return nil, err
	}
	decision, err := domain.ParseMentorDecision(response)
	if err != nil {
		return nil, err
	}

	a, err = s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, dependencyOr(err, "failed to load assignment")
	}
	if err := authz.Authorize(actor, authz.RespondAssignment, authz.Resource{MentorID: a.MentorID}); err != nil {
		return nil, err
	}
	if !a.IsPending() {
		s.metrics.Conflict(ctx, "respond")
		return nil, domain.ErrAlreadyResponded
	}

	b, err := s.loadBooking(ctx, a.BookingID)
	if err != nil {
		return nil, err
	}
	to, err := domain.NextStatus(b.Status, decision.BookingEvent())
	if err == nil && b.MentorIDValue() != a.MentorID {
		err = domain.ErrConflict
	}
	if err != nil {
		s.metrics.Conflict(ctx, "respond")
		return nil, err
	}

	now := s.now()
	from := b.Status
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.bookings.Transition(ctx, domain.BookingTransition{
			BookingID:      b.ID,
			From:           from,
			To:             to,
			ExpectMentorID: a.MentorID,
			At:             now,
		}); err != nil {
			return err
		}
		return s.assignments.Respond(ctx, a.ID, a.MentorID, decision, now)
	})
	if err != nil {
		return nil, s.failed(ctx, "respond", err, "failed to record response")
	}

	a.MentorResponse = decision
	a.RespondedAt = &now
	b.Status = to
	b.UpdatedAt = now
	s.committed(ctx, decision.BookingEvent(), from, to, b, actor)

	e := domain.NewEvent(domain.EventAssignmentResponded, actor.ID, now)
	e.BookingID = b.ID
	e.AssignmentID = a.ID
	e.RecipientIDs = []string{b.RequesterID}
	e.NotifyRole = domain.RoleAdmin
	e.Attributes = map[string]string{"response": string(decision), "topic": b.Topic}
	announce(ctx, s.publisher, s.logger, e)

	return a, nil
}

// CancelBooking cancels a booking its requester still can. The transition is
// conditioned on the status the requester observed, so a concurrent assign wins or loses whole.
func (s *BookingService) CancelBooking(ctx context.Context, actor *domain.Principal, bookingID string) (b *domain.Booking, err error) {
	ctx, span := tracer.Start(ctx, "BookingService.CancelBooking",
		trace.WithAttributes(attribute.String("booking_id", bookingID)),
	)
	defer func() { finish(span, err) }()

	if err := authz.Authorize(actor, authz.CancelBooking, authz.Resource{OwnerID: actor.ID}); err != nil {
		return nil, err
	}
	b, err = s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(actor, authz.CancelBooking, authz.BookingResource(b)); err != nil {
		return nil, err
	}

	to, err := domain.NextStatus(b.Status, domain.EventCancel)
	if err != nil {
		s.metrics.Conflict(ctx, "cancel")
		return nil, err
	}

	now := s.now()
	from := b.Status
	previousMentor := b.MentorIDValue()
	err = s.bookings.Transition(ctx, domain.BookingTransition{
		BookingID:      b.ID,
		From:           from,
		To:             to,
		ExpectMentorID: previousMentor,
		At:             now,
	})
	if err != nil {
		return nil, s.failed(ctx, "cancel", err, "failed to cancel booking")
	}

	b.Status = to
	b.MentorID = nil
	b.AssignedBy = nil
	b.UpdatedAt = now
	s.committed(ctx, domain.EventCancel, from, to, b, actor)

	e := domain.NewEvent(domain.EventBookingCancelled, actor.ID, now)
	e.BookingID = b.ID
	e.NotifyRole = domain.RoleAdmin
	if previousMentor != "" {
		e.RecipientIDs = []string{previousMentor}
	}
	e.Attributes = map[string]string{"topic": b.Topic, "previous_status": string(from)}
	announce(ctx, s.publisher, s.logger, e)

	return b, nil
}

// CompleteBooking closes an approved booking and counts the session for the mentor
func (s *BookingService) CompleteBooking(ctx context.Context, actor *domain.Principal, bookingID string) (b *domain.Booking, err error) {
	ctx, span := tracer.Start(ctx, "BookingService.CompleteBooking",
		trace.WithAttributes(attribute.String("booking_id", bookingID)),
	)
	defer func() { finish(span, err) }()

	if err := authz.Authorize(actor, authz.CompleteBooking, authz.Resource{}); err != nil {
		return nil, err
	}
	b, err = s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	to, err := domain.NextStatus(b.Status, domain.EventComplete)
	if err != nil {
		s.metrics.Conflict(ctx, "complete")
		return nil, err
	}

	now := s.now()
	from := b.Status
	mentorID := b.MentorIDValue()
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.bookings.Transition(ctx, domain.BookingTransition{
			BookingID:      b.ID,
			From:           from,
			To:             to,
			ExpectMentorID: mentorID,
			At:             now,
		}); err != nil {
			return err
		}
		return s.mentors.IncrementSessions(ctx, mentorID)
	})
	if err != nil {
		return nil, s.failed(ctx, "complete", err, "failed to complete booking")
	}

	b.Status = to
	b.UpdatedAt = now
	s.committed(ctx, domain.EventComplete, from, to, b, actor)

	e := domain.NewEvent(domain.EventBookingCompleted, actor.ID, now)
	e.BookingID = b.ID
	e.RecipientIDs = []string{b.RequesterID, mentorID}
	e.Attributes = map[string]string{"topic": b.Topic}
	announce(ctx, s.publisher, s.logger, e)

	return b, nil
}

// GetBooking returns a booking to its requester, its assigned mentor or an admin.
// Someone else's booking reads as not found so ids cannot be enumerated.
func (s *BookingService) GetBooking(ctx context.Context, actor *domain.Principal, bookingID string) (*domain.Booking, error) {
	if err := authz.Authorize(actor, authz.ViewBooking, authz.Resource{OwnerID: actor.ID, MentorID: actor.ID}); err != nil {
		return nil, err
	}
	b, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !authz.Can(actor, authz.ViewBooking, authz.BookingResource(b)) {
		return nil, domain.ErrNotFound
	}
	return b, nil
}

// ListMyBookings returns the actor's own bookings by preferred date ascending
func (s *BookingService) ListMyBookings(ctx context.Context, actor *domain.Principal) ([]*domain.Booking, error) {
	if err := authz.Authorize(actor, authz.ViewBooking, authz.Resource{OwnerID: actor.ID}); err != nil {
		return nil, err
	}
	list, err := s.bookings.ListByRequester(ctx, actor.ID)
	if err != nil {
		return nil, dependencyOr(err, "failed to list bookings")
	}
	return list, nil
}

// ListPendingAssignments returns the actor's unanswered assignments whose booking
// is still waiting on them, newest first.
func (s *BookingService) ListPendingAssignments(ctx context.Context, actor *domain.Principal) ([]PendingAssignment, error) {
	if err := authz.Authorize(actor, authz.RespondAssignment, authz.Resource{MentorID: actor.ID}); err != nil {
		return nil, err
	}

	rows, err := s.assignments.ListPendingByMentor(ctx, actor.ID)
	if err != nil {
		return nil, dependencyOr(err, "failed to list assignments")
	}
	out := make([]PendingAssignment, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}

	ids := make([]string, len(rows))
	for i, a := range rows {
		ids[i] = a.BookingID
	}
	bookings, err := s.bookings.ListByIDs(ctx, ids)
	if err != nil {
		return nil, dependencyOr(err, "failed to load bookings")
	}
	byID := make(map[string]*domain.Booking, len(bookings))
	for _, b := range bookings {
		byID[b.ID] = b
	}

	// A cancelled booking leaves its assignment pending; hide it
	for _, a := range rows {
		b, ok := byID[a.BookingID]
		if !ok || b.Status != domain.BookingAssignedPendingMentor || b.MentorIDValue() != actor.ID {
			continue
		}
		out = append(out, PendingAssignment{Assignment: a, Booking: b})
	}
	return out, nil
}

// ListBookingAssignments returns every assignment attempt for a booking, oldest first
func (s *BookingService) ListBookingAssignments(ctx context.Context, actor *domain.Principal, bookingID string) ([]*domain.Assignment, error) {
	if err := authz.Authorize(actor, authz.ViewAdminQueue, authz.Resource{}); err != nil {
		return nil, err
	}
	if _, err := s.loadBooking(ctx, bookingID); err != nil {
		return nil, err
	}
	list, err := s.assignments.ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, dependencyOr(err, "failed to list assignments")
	}
	return list, nil
}

// MenteeDashboard returns the mentee's bookings and the mentor of their first approved one
func (s *BookingService) MenteeDashboard(ctx context.Context, actor *domain.Principal) (*MenteeDashboard, error) {
	list, err := s.ListMyBookings(ctx, actor)
	if err != nil {
		return nil, err
	}
	dash := &MenteeDashboard{Bookings: list}

	for _, b := range list {
		if b.Status != domain.BookingApproved {
			continue
		}
		card, err := s.mentorCard(ctx, b.MentorIDValue())
		if err != nil {
			s.logger.Warn("failed to load mentor card", zap.String("booking_id", b.ID), zap.Error(err))
		}
		dash.Mentor = card
		break
	}
	return dash, nil
}

// MentorDashboard returns the actor's mentor profile and pending assignments
func (s *BookingService) MentorDashboard(ctx context.Context, actor *domain.Principal) (*MentorDashboard, error) {
	if actor.Role != domain.RoleMentor {
		return nil, domain.ErrForbidden
	}

	dash := &MentorDashboard{PendingAssignments: []PendingAssignment{}}
	profile, err := s.mentors.GetByUserID(ctx, actor.ID)
	switch {
	case err == nil:
		dash.Profile = profile
	case !errors.Is(err, domain.ErrNotFound):
		return nil, dependencyOr(err, "failed to load mentor profile")
	}

	// Pending mentors see their profile but get no assignments
	if !actor.IsApproved() {
		return dash, nil
	}
	pending, err := s.ListPendingAssignments(ctx, actor)
	if err != nil {
		return nil, err
	}
	dash.PendingAssignments = pending
	return dash, nil
}

func (s *BookingService) mentorCard(ctx context.Context, mentorID string) (*MentorCard, error) {
	if mentorID == "" {
		return nil, nil
	}
	p, err := s.users.GetByID(ctx, mentorID)
	if err != nil {
		return nil, err
	}
	card := &MentorCard{ID: p.ID, DisplayName: p.DisplayName, Email: p.Email, PhotoURL: p.PhotoURL}

	profile, err := s.mentors.GetByUserID(ctx, mentorID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return card, nil
		}
		return card, err
	}
	card.JobTitle = profile.JobTitle
	card.Company = profile.Company
	card.Bio = profile.Bio
	card.Rating = profile.AverageRating()
	card.TotalSessions = profile.TotalSessions
	return card, nil
}

func (s *BookingService) loadBooking(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, dependencyOr(err, "failed to load booking")
	}
	return b, nil
}

// failed counts lost races and classifies the error
func (s *BookingService) failed(ctx context.Context, op string, err error, msg string) error {
	if errors.Is(err, domain.ErrConflict) {
		s.metrics.Conflict(ctx, op)
		s.logger.Info("workflow conflict", zap.String("operation", op), zap.Error(err))
		return err
	}
	err = dependencyOr(err, msg)
	if errors.Is(err, domain.ErrDependency) {
		s.logger.Error(msg, zap.String("operation", op), zap.Error(err))
	}
	return err
}

func (s *BookingService) committed(ctx context.Context, event domain.BookingEvent, from, to domain.BookingStatus, b *domain.Booking, actor *domain.Principal) {
	s.metrics.Transition(ctx, string(event), string(from), string(to))
	s.logger.Info("booking transitioned",
		zap.String("booking_id", b.ID),
		zap.String("event", string(event)),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("actor_id", actor.ID),
		zap.String("mentor_id", b.MentorIDValue()),
	)
}

func containsMentor(list []domain.EligibleMentor, mentorID string) bool {
	for _, m := range list {
		if m.MentorID == mentorID {
			return true
		}
	}
	return false
}
