// Package authz is the single capability check every mutating entry point calls first.
package authz

import (
	"github.com/mansoorceksport/mentorlink/internal/domain"
)

// Action is something a principal attempts.
type Action string

const (
	SubmitBooking     Action = "submit_booking"
	CancelBooking     Action = "cancel_booking"
	AssignMentor      Action = "assign_mentor"
	ApproveUser       Action = "approve_user"
	RejectUser        Action = "reject_user"
	ChangeRole        Action = "change_role"
	RespondAssignment Action = "respond_assignment"
	SubmitReview      Action = "submit_review"
	ViewAllUsers      Action = "view_all_users"

	ViewBooking        Action = "view_booking"
	CompleteBooking    Action = "complete_booking"
	ViewAdminQueue     Action = "view_admin_queue"
	EditMentorProfile  Action = "edit_mentor_profile"
	EditPartnerProfile Action = "edit_partner_profile"
	EditOwnProfile     Action = "edit_own_profile"
)

// Resource carries the ownership facts an action is checked against.
// Zero values mean "no particular resource".
type Resource struct {
	OwnerID  string // requester of a booking or subject of a profile
	MentorID string // mentor assigned to a booking or assignment
}

type scope int

const (
	anyResource scope = iota
	ownedBy           // Resource.OwnerID must be the principal
	assignedTo        // Resource.MentorID must be the principal
)

type rule struct {
	scope scope
	gated bool // requires an approved principal
}

var (
	menteeRules = map[Action]rule{
		SubmitBooking:  {scope: anyResource},
		CancelBooking:  {scope: ownedBy},
		SubmitReview:   {scope: ownedBy},
		ViewBooking:    {scope: ownedBy},
		EditOwnProfile: {scope: anyResource},
	}

	mentorRules = map[Action]rule{
		RespondAssignment: {scope: assignedTo, gated: true},
		ViewBooking:       {scope: assignedTo, gated: true},
		EditMentorProfile: {scope: anyResource, gated: true},
		EditOwnProfile:    {scope: anyResource},
	}

	partnerRules = map[Action]rule{
		EditPartnerProfile: {scope: anyResource, gated: true},
		EditOwnProfile:     {scope: anyResource},
	}

	adminRules = map[Action]rule{
		AssignMentor:    {scope: anyResource},
		ApproveUser:     {scope: anyResource},
		RejectUser:      {scope: anyResource},
		CompleteBooking: {scope: anyResource},
		ViewAdminQueue:  {scope: anyResource},
		ViewBooking:     {scope: anyResource},
		EditOwnProfile:  {scope: anyResource},
	}

	superAdminRules = extend(adminRules, map[Action]rule{
		ChangeRole:   {scope: anyResource},
		ViewAllUsers: {scope: anyResource},
	})

	permissions = map[domain.Role]map[Action]rule{
		domain.RoleMentee:     menteeRules,
		domain.RoleMentor:     mentorRules,
		domain.RolePartner:    partnerRules,
		domain.RoleAdmin:      adminRules,
		domain.RoleSuperAdmin: superAdminRules,
	}
)

func extend(base, extra map[Action]rule) map[Action]rule {
	out := make(map[Action]rule, len(base)+len(extra))
	for a, r := range base {
		out[a] = r
	}
	for a, r := range extra {
		out[a] = r
	}
	return out
}

// Can reports whether p may perform a on r. Unknown roles and actions are denied.
func Can(p *domain.Principal, a Action, r Resource) bool {
	if p == nil || p.ID == "" {
		return false
	}
	rules, ok := permissions[p.Role]
	if !ok {
		return false
	}
	rl, ok := rules[a]
	if !ok {
		return false
	}
	if p.ApprovalStatus == domain.ApprovalRejected && a != EditOwnProfile {
		return false
	}
	if rl.gated && !p.IsApproved() {
		return false
	}
	switch rl.scope {
	case ownedBy:
		return r.OwnerID != "" && r.OwnerID == p.ID
	case assignedTo:
		return r.MentorID != "" && r.MentorID == p.ID
	}
	return true
}

// Authorize is Can returning domain.ErrForbidden on denial.
func Authorize(p *domain.Principal, a Action, r Resource) error {
	if !Can(p, a, r) {
		return domain.ErrForbidden
	}
	return nil
}

// BookingResource describes a booking for the gate.
func BookingResource(b *domain.Booking) Resource {
	return Resource{OwnerID: b.RequesterID, MentorID: b.MentorIDValue()}
}
