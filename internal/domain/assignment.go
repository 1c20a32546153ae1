package domain

import (
	"context"
	"time"
)

// AssignmentResponse is a mentor's answer to an assignment.
type AssignmentResponse string

const (
	ResponsePending  AssignmentResponse = "pending"
	ResponseAccepted AssignmentResponse = "accepted"
	ResponseRejected AssignmentResponse = "rejected"
)

// ParseMentorDecision accepts only the two answers a mentor can give.
func ParseMentorDecision(s string) (AssignmentResponse, error) {
	switch AssignmentResponse(s) {
	case ResponseAccepted, ResponseRejected:
		return AssignmentResponse(s), nil
	}
	return "", FieldValidationError("response", "must be accepted or rejected")
}

// BookingEvent maps a decision to the booking state machine event.
func (r AssignmentResponse) BookingEvent() BookingEvent {
	if r == ResponseAccepted {
		return EventAccept
	}
	return EventReject
}

// Assignment pairs a booking with a candidate mentor.
type Assignment struct {
	ID             string             `bson:"_id" json:"id"`
	BookingID      string             `bson:"booking_id" json:"booking_id"`
	MentorID       string             `bson:"mentor_id" json:"mentor_id"`
	AssignedBy     string             `bson:"assigned_by" json:"assigned_by"`
	MentorResponse AssignmentResponse `bson:"mentor_response" json:"mentor_response"`
	AssignedAt     time.Time          `bson:"assigned_at" json:"assigned_at"`
	RespondedAt    *time.Time         `bson:"responded_at,omitempty" json:"responded_at,omitempty"`
}

// IsPending reports whether the mentor has not answered yet.
func (a *Assignment) IsPending() bool {
	return a.MentorResponse == ResponsePending
}

// AssignmentRepository stores one row per assignment attempt.
type AssignmentRepository interface {
	// Create fails with ErrAssignmentInFlight when the booking already has a pending row.
	Create(ctx context.Context, a *Assignment) error
	GetByID(ctx context.Context, id string) (*Assignment, error)
	// ListPendingByMentor returns pending rows for a mentor, newest first.
	ListPendingByMentor(ctx context.Context, mentorID string) ([]*Assignment, error)
	// ListByBooking returns every attempt for a booking, oldest first.
	ListByBooking(ctx context.Context, bookingID string) ([]*Assignment, error)
	// Respond is a compare-and-set from pending to the given response.
	Respond(ctx context.Context, id, mentorID string, response AssignmentResponse, at time.Time) error
}
