package domain

import (
	"context"
	"time"
)

// Role is the closed set of principal roles.
type Role string

const (
	RoleMentee     Role = "mentee"
	RoleMentor     Role = "mentor"
	RolePartner    Role = "partner"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// AllRoles lists every role in display order.
var AllRoles = []Role{RoleMentee, RoleMentor, RolePartner, RoleAdmin, RoleSuperAdmin}

// ParseRole converts a raw string into a Role.
func ParseRole(s string) (Role, error) {
	for _, r := range AllRoles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", FieldValidationError("role", "unknown role "+s)
}

// RequiresApproval reports whether new principals with this role start pending.
func (r Role) RequiresApproval() bool {
	return r == RoleMentor || r == RolePartner
}

// SelfSelectable reports whether the role can be picked at signup.
func (r Role) SelfSelectable() bool {
	return r == RoleMentee || r == RoleMentor || r == RolePartner
}

// ApprovalStatus of a principal.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// ParseApprovalStatus converts a raw string into an ApprovalStatus.
func ParseApprovalStatus(s string) (ApprovalStatus, error) {
	switch ApprovalStatus(s) {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return ApprovalStatus(s), nil
	}
	return "", FieldValidationError("approval_status", "unknown approval status "+s)
}

// InitialApproval returns the approval status a principal starts with at signup.
func InitialApproval(r Role) ApprovalStatus {
	if r.RequiresApproval() {
		return ApprovalPending
	}
	return ApprovalApproved
}

// Principal is an authenticated identity with a role and approval status.
type Principal struct {
	ID             string         `bson:"_id" json:"id"`
	FirebaseUID    string         `bson:"firebase_uid" json:"-"`
	Email          string         `bson:"email" json:"email"`
	DisplayName    string         `bson:"display_name" json:"display_name"`
	Role           Role           `bson:"role" json:"role"`
	ApprovalStatus ApprovalStatus `bson:"approval_status" json:"approval_status"`
	Phone          string         `bson:"phone,omitempty" json:"phone,omitempty"`
	Gender         string         `bson:"gender,omitempty" json:"gender,omitempty"`
	TelegramChatID int64          `bson:"telegram_chat_id,omitempty" json:"telegram_chat_id,omitempty"`
	PhotoURL       string         `bson:"photo_url,omitempty" json:"photo_url,omitempty"`
	PhotoKey       string         `bson:"photo_key,omitempty" json:"-"`
	CreatedAt      time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `bson:"updated_at" json:"updated_at"`
	LastLoginAt    *time.Time     `bson:"last_login_at,omitempty" json:"last_login_at,omitempty"`
}

// IsApproved reports whether the principal passed admin approval.
func (p *Principal) IsApproved() bool {
	return p.ApprovalStatus == ApprovalApproved
}

// ContactUpdate carries the fields a principal may change on their own row.
// Nil pointers leave the stored value untouched.
type ContactUpdate struct {
	DisplayName    *string
	Phone          *string
	Gender         *string
	TelegramChatID *int64
}

// PrincipalFilter narrows the superadmin directory.
type PrincipalFilter struct {
	Search string // substring on display name or email, case insensitive
	Role   Role   // exact match when set
}

// PrincipalRepository is the Profile Store boundary for principals.
type PrincipalRepository interface {
	Create(ctx context.Context, p *Principal) error
	GetByID(ctx context.Context, id string) (*Principal, error)
	GetByFirebaseUID(ctx context.Context, uid string) (*Principal, error)
	GetByEmail(ctx context.Context, email string) (*Principal, error)
	UpdateContact(ctx context.Context, id string, u ContactUpdate) error
	UpdatePhoto(ctx context.Context, id, url, key string) error
	LinkFirebaseUID(ctx context.Context, id, uid string) error

	// SetApproval is a compare-and-set on approval_status.
	SetApproval(ctx context.Context, id string, from, to ApprovalStatus) error
	// SetRole is a compare-and-set on role.
	SetRole(ctx context.Context, id string, from, to Role) error

	// ListPendingApprovals returns pending mentors and partners, newest first.
	ListPendingApprovals(ctx context.Context) ([]*Principal, error)
	List(ctx context.Context, f PrincipalFilter) ([]*Principal, error)
	CountByRole(ctx context.Context) (map[Role]int, error)
	RecordLogin(ctx context.Context, id string, at time.Time) error
}
