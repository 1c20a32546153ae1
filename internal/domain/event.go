package domain

import (
	"context"
	"time"
)

// EventType names a committed workflow change.
type EventType string

const (
	EventBookingSubmitted    EventType = "booking.submitted"
	EventMentorAssigned      EventType = "booking.mentor_assigned"
	EventAssignmentResponded EventType = "booking.assignment_responded"
	EventBookingCancelled    EventType = "booking.cancelled"
	EventBookingCompleted    EventType = "booking.completed"
	EventReviewSubmitted     EventType = "review.submitted"
	EventUserApproved        EventType = "user.approved"
	EventUserRejected        EventType = "user.rejected"
	EventRoleChanged         EventType = "user.role_changed"
)

// Event is published after a mutation commits. Consumers must not assume
// ordering across bookings.
type Event struct {
	ID           string            `json:"id"`
	Type         EventType         `json:"type"`
	BookingID    string            `json:"booking_id,omitempty"`
	AssignmentID string            `json:"assignment_id,omitempty"`
	ActorID      string            `json:"actor_id"`
	RecipientIDs []string          `json:"recipient_ids,omitempty"`
	NotifyRole   Role              `json:"notify_role,omitempty"` // fan out to every principal with this role
	Attributes   map[string]string `json:"attributes,omitempty"`
	OccurredAt   time.Time         `json:"occurred_at"`
}

// NewEvent stamps an event with an id and time.
func NewEvent(t EventType, actorID string, at time.Time) Event {
	return Event{ID: NewID(), Type: t, ActorID: actorID, OccurredAt: at.UTC()}
}

// EventPublisher hands committed events to the message broker.
type EventPublisher interface {
	Publish(ctx context.Context, e Event) error
}
