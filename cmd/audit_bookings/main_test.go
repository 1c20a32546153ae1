package main

import (
	"testing"

	"github.com/mansoorceksport/mentorlink/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestAudit(t *testing.T) {
	m1, m2 := "m1", "m2"
	pending := &domain.Assignment{ID: "a1", MentorID: m1, MentorResponse: domain.ResponsePending}
	accepted := &domain.Assignment{ID: "a1", MentorID: m1, MentorResponse: domain.ResponseAccepted}

	tests := []struct {
		name        string
		booking     *domain.Booking
		assignments []*domain.Assignment
		want        int
	}{
		{
			name:    "fresh booking",
			booking: &domain.Booking{Status: domain.BookingPendingAssignment},
			want:    0,
		},
		{
			name:        "assigned with matching pending row",
			booking:     &domain.Booking{Status: domain.BookingAssignedPendingMentor, MentorID: &m1},
			assignments: []*domain.Assignment{pending},
			want:        0,
		},
		{
			name:    "assigned without mentor or row",
			booking: &domain.Booking{Status: domain.BookingAssignedPendingMentor},
			want:    2,
		},
		{
			name:        "approved by a different mentor than recorded",
			booking:     &domain.Booking{Status: domain.BookingApproved, MentorID: &m2},
			assignments: []*domain.Assignment{accepted},
			want:        1,
		},
		{
			name:    "cancelled still carrying a mentor",
			booking: &domain.Booking{Status: domain.BookingCancelled, MentorID: &m1},
			want:    1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, audit(tt.booking, tt.assignments), tt.want)
		})
	}
}
