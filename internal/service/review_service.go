package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mansoorceksport/mentorlink/internal/authz"
	"github.com/mansoorceksport/mentorlink/internal/domain"
	"github.com/mansoorceksport/mentorlink/internal/validate"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// SubmitReviewInput is a mentee's feedback on one booking
type SubmitReviewInput struct {
	MentorID string `json:"mentor_id" validate:"required,notblank"`
	Rating   int    `json:"rating"`
	Comment  string `json:"comment" validate:"max=2000"`
}

// ReviewService handles append-only mentor reviews
type ReviewService struct {
	bookings  domain.BookingRepository
	reviews   domain.ReviewRepository
	mentors   domain.MentorRepository
	tx        domain.Transactor
	publisher domain.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewReviewService creates a new review service
func NewReviewService(
	bookings domain.BookingRepository,
	reviews domain.ReviewRepository,
	mentors domain.MentorRepository,
	tx domain.Transactor,
	publisher domain.EventPublisher,
	logger *zap.Logger,
) *ReviewService {
	if publisher == nil {
		publisher = NoopPublisher
	}
	return &ReviewService{
		bookings:  bookings,
		reviews:   reviews,
		mentors:   mentors,
		tx:        tx,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// SubmitReview stores a review and adds it to the mentor's rating in one transaction.
// A second review of the same booking by the same mentee fails with ErrAlreadyReviewed.
func (s *ReviewService) SubmitReview(ctx context.Context, actor *domain.Principal, bookingID string, in SubmitReviewInput) (r *domain.Review, err error) {
	ctx, span := tracer.Start(ctx, "ReviewService.SubmitReview",
		trace.WithAttributes(attribute.String("booking_id", bookingID)),
	)
	defer func() { finish(span, err) }()

	if err := domain.ValidateRating(in.Rating); err != nil {
		return nil, err
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if err := authz.Authorize(actor, authz.SubmitReview, authz.Resource{OwnerID: actor.ID}); err != nil {
		return nil, err
	}

	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, dependencyOr(err, "failed to load booking")
	}
	if err := authz.Authorize(actor, authz.SubmitReview, authz.BookingResource(b)); err != nil {
		return nil, err
	}
	if !b.Status.Reviewable() {
		return nil, fmt.Errorf("%w: booking is %s", domain.ErrConflict, b.Status)
	}
	mentorID := strings.TrimSpace(in.MentorID)
	if mentorID != b.MentorIDValue() {
		return nil, domain.FieldValidationError("mentor_id", "does not match the booking's mentor")
	}

	now := s.now()
	r = &domain.Review{
		ID:        domain.NewID(),
		BookingID: b.ID,
		MentorID:  mentorID,
		MenteeID:  actor.ID,
		Rating:    in.Rating,
		Comment:   strings.TrimSpace(in.Comment),
		CreatedAt: now,
	}

	// Uniqueness is left to the (booking_id, mentee_id) constraint
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.reviews.Create(ctx, r); err != nil {
			return err
		}
		return s.mentors.AddRating(ctx, mentorID, r.Rating)
	})
	if err != nil {
		return nil, dependencyOr(err, "failed to submit review")
	}

	s.logger.Info("review submitted",
		zap.String("booking_id", b.ID),
		zap.String("mentor_id", mentorID),
		zap.Int("rating", r.Rating),
	)

	e := domain.NewEvent(domain.EventReviewSubmitted, actor.ID, now)
	e.BookingID = b.ID
	e.RecipientIDs = []string{mentorID}
	e.Attributes = map[string]string{"rating": strconv.Itoa(r.Rating), "topic": b.Topic}
	announce(ctx, s.publisher, s.logger, e)

	return r, nil
}

// ListMentorReviews returns a mentor's reviews newest first
func (s *ReviewService) ListMentorReviews(ctx context.Context, mentorID string) ([]*domain.Review, error) {
	list, err := s.reviews.ListByMentor(ctx, mentorID)
	if err != nil {
		return nil, dependencyOr(err, "failed to list reviews")
	}
	return list, nil
}

// ListMyReviews returns the reviews the actor wrote, newest first
func (s *ReviewService) ListMyReviews(ctx context.Context, actor *domain.Principal) ([]*domain.Review, error) {
	list, err := s.reviews.ListByMentee(ctx, actor.ID)
	if err != nil {
		return nil, dependencyOr(err, "failed to list reviews")
	}
	return list, nil
}

// RecalculateRatings rebuilds every mentor's rating aggregate from the stored reviews.
// With dryRun set it only reports what would change.
func (s *ReviewService) RecalculateRatings(ctx context.Context, dryRun bool) (map[string]domain.RatingAggregate, error) {
	aggs, err := s.reviews.AggregateByMentor(ctx)
	if err != nil {
		return nil, dependencyOr(err, "failed to aggregate reviews")
	}
	if dryRun {
		return aggs, nil
	}
	for mentorID, agg := range aggs {
		if err := s.mentors.SetRatingAggregate(ctx, mentorID, agg); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				s.logger.Warn("reviews reference a mentor without profile", zap.String("mentor_id", mentorID))
				continue
			}
			return nil, dependencyOr(err, "failed to store rating for "+mentorID)
		}
	}
	s.logger.Info("ratings recalculated", zap.Int("mentors", len(aggs)))
	return aggs, nil
}
