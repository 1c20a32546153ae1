package domain

import (
	"context"
	"time"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPendingAssignment     BookingStatus = "pending_assignment"
	BookingAssignedPendingMentor BookingStatus = "assigned_pending_mentor"
	BookingApproved              BookingStatus = "approved"
	BookingRejected              BookingStatus = "rejected"
	BookingCancelled             BookingStatus = "cancelled"
	BookingCompleted             BookingStatus = "completed"
)

// ParseBookingStatus converts a raw string into a BookingStatus.
func ParseBookingStatus(s string) (BookingStatus, error) {
	switch BookingStatus(s) {
	case BookingPendingAssignment, BookingAssignedPendingMentor, BookingApproved,
		BookingRejected, BookingCancelled, BookingCompleted:
		return BookingStatus(s), nil
	}
	return "", FieldValidationError("approval_status", "unknown booking status "+s)
}

// HoldsMentor reports whether a booking in this status must carry a mentor id.
func (s BookingStatus) HoldsMentor() bool {
	switch s {
	case BookingAssignedPendingMentor, BookingApproved, BookingRejected, BookingCompleted:
		return true
	}
	return false
}

// IsTerminal reports whether participants can no longer move the booking.
// Approved bookings still accept the admin completion event.
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case BookingApproved, BookingRejected, BookingCancelled, BookingCompleted:
		return true
	}
	return false
}

// Reviewable reports whether a mentee may review a booking in this status.
func (s BookingStatus) Reviewable() bool {
	return s == BookingApproved || s == BookingCompleted
}

// BookingEvent names a transition of the booking state machine.
type BookingEvent string

const (
	EventAssign   BookingEvent = "assign"
	EventAccept   BookingEvent = "accept"
	EventReject   BookingEvent = "reject"
	EventCancel   BookingEvent = "cancel"
	EventComplete BookingEvent = "complete"
)

type transitionKey struct {
	from  BookingStatus
	event BookingEvent
}

var bookingTransitions = map[transitionKey]BookingStatus{
	{BookingPendingAssignment, EventAssign}:     BookingAssignedPendingMentor,
	{BookingAssignedPendingMentor, EventAccept}: BookingApproved,
	{BookingAssignedPendingMentor, EventReject}: BookingRejected,
	{BookingPendingAssignment, EventCancel}:     BookingCancelled,
	{BookingAssignedPendingMentor, EventCancel}: BookingCancelled,
	{BookingApproved, EventComplete}:            BookingCompleted,
}

// NextStatus returns the status reached by applying event in from.
// A missing edge is a conflict: the booking moved on or never could.
func NextStatus(from BookingStatus, event BookingEvent) (BookingStatus, error) {
	to, ok := bookingTransitions[transitionKey{from, event}]
	if !ok {
		if from.IsTerminal() {
			return "", ErrBookingTerminal
		}
		if event == EventAssign {
			return "", ErrBookingNotPending
		}
		return "", ErrConflict
	}
	return to, nil
}

// Booking is a mentee's request for a mentorship session.
type Booking struct {
	ID                  string        `bson:"_id" json:"id"`
	RequesterID         string        `bson:"requester_id" json:"requester_id"`
	ExpertiseCategoryID string        `bson:"expertise_category_id" json:"expertise_category_id"`
	Topic               string        `bson:"topic" json:"topic"`
	PreferredDate       string        `bson:"preferred_date" json:"preferred_date"` // YYYY-MM-DD
	PreferredTime       string        `bson:"preferred_time" json:"preferred_time"` // HH:MM
	Notes               string        `bson:"notes,omitempty" json:"notes,omitempty"`
	MentorID            *string       `bson:"mentor_id,omitempty" json:"mentor_id,omitempty"`
	AssignedBy          *string       `bson:"assigned_by,omitempty" json:"assigned_by,omitempty"`
	Status              BookingStatus `bson:"approval_status" json:"approval_status"`
	CreatedAt           time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt           time.Time     `bson:"updated_at" json:"updated_at"`
}

// HasMentor reports whether a mentor id is recorded.
func (b *Booking) HasMentor() bool {
	return b.MentorID != nil && *b.MentorID != ""
}

// MentorIDValue returns the mentor id or an empty string.
func (b *Booking) MentorIDValue() string {
	if b.MentorID == nil {
		return ""
	}
	return *b.MentorID
}

// ConsistentMentor checks the mentor presence invariant.
func (b *Booking) ConsistentMentor() bool {
	return b.HasMentor() == b.Status.HoldsMentor()
}

// BookingTransition is a compare-and-set status change.
// The store applies it only while the row still has status From
// (and mentor ExpectMentorID when set), otherwise it returns ErrConflict.
type BookingTransition struct {
	BookingID      string
	From           BookingStatus
	To             BookingStatus
	ExpectMentorID string
	SetMentorID    string // written only when To is assigned_pending_mentor
	AssignedBy     string
	At             time.Time
}

// BookingRepository is the Booking Repository boundary.
type BookingRepository interface {
	Create(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id string) (*Booking, error)
	// ListByRequester returns a mentee's bookings by preferred date ascending.
	ListByRequester(ctx context.Context, requesterID string) ([]*Booking, error)
	// ListByStatus returns bookings in a status, newest first.
	ListByStatus(ctx context.Context, status BookingStatus) ([]*Booking, error)
	ListByIDs(ctx context.Context, ids []string) ([]*Booking, error)
	ListAll(ctx context.Context) ([]*Booking, error)
	Transition(ctx context.Context, t BookingTransition) error
}
