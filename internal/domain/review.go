package domain

import (
	"context"
	"time"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Review is a mentee's feedback on a mentor for one booking.
type Review struct {
	ID        string    `bson:"_id" json:"id"`
	BookingID string    `bson:"booking_id" json:"booking_id"`
	MentorID  string    `bson:"mentor_id" json:"mentor_id"`
	MenteeID  string    `bson:"mentee_id" json:"mentee_id"`
	Rating    int       `bson:"rating" json:"rating"`
	Comment   string    `bson:"comment,omitempty" json:"comment,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// ValidateRating checks the 1..5 range.
func ValidateRating(r int) error {
	if r < MinRating || r > MaxRating {
		return FieldValidationError("rating", "must be an integer between 1 and 5")
	}
	return nil
}

// ReviewRepository stores reviews. (booking_id, mentee_id) is unique.
type ReviewRepository interface {
	// Create fails with ErrAlreadyReviewed on a duplicate (booking_id, mentee_id).
	Create(ctx context.Context, r *Review) error
	ListByMentor(ctx context.Context, mentorID string) ([]*Review, error)
	ListByMentee(ctx context.Context, menteeID string) ([]*Review, error)
	AggregateByMentor(ctx context.Context) (map[string]RatingAggregate, error)
}
