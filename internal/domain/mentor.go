package domain

import (
	"context"
	"time"
)

// MentorProfile holds the mentor specific fields used for eligibility and display.
type MentorProfile struct {
	ID                   string    `bson:"_id" json:"id"`
	UserID               string    `bson:"user_id" json:"user_id"`
	Bio                  string    `bson:"bio" json:"bio"`
	YearsExperience      int       `bson:"years_experience" json:"years_experience"`
	Company              string    `bson:"company,omitempty" json:"company,omitempty"`
	JobTitle             string    `bson:"job_title,omitempty" json:"job_title,omitempty"`
	LinkedInURL          string    `bson:"linkedin_url,omitempty" json:"linkedin_url,omitempty"`
	ExpertiseCategoryIDs []string  `bson:"expertise_category_ids" json:"expertise_category_ids"`
	IsActive             bool      `bson:"is_active" json:"is_active"`
	RatingTotal          int       `bson:"rating_total" json:"-"`
	RatingCount          int       `bson:"rating_count" json:"rating_count"`
	TotalSessions        int       `bson:"total_sessions" json:"total_sessions"`
	CreatedAt            time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt            time.Time `bson:"updated_at" json:"updated_at"`
}

// AverageRating returns the mean review rating, zero without reviews.
func (m *MentorProfile) AverageRating() float64 {
	if m.RatingCount == 0 {
		return 0
	}
	return float64(m.RatingTotal) / float64(m.RatingCount)
}

// HasExpertise reports whether the mentor covers a category.
func (m *MentorProfile) HasExpertise(categoryID string) bool {
	for _, id := range m.ExpertiseCategoryIDs {
		if id == categoryID {
			return true
		}
	}
	return false
}

// EligibleMentor is one row of the eligibility query.
type EligibleMentor struct {
	MentorID             string   `json:"mentor_id"`
	ProfileID            string   `json:"profile_id"`
	DisplayName          string   `json:"display_name"`
	Email                string   `json:"email"`
	JobTitle             string   `json:"job_title,omitempty"`
	Company              string   `json:"company,omitempty"`
	ExpertiseCategoryIDs []string `json:"expertise_category_ids"`
	Rating               float64  `json:"rating"`
	TotalSessions        int      `json:"total_sessions"`
}

// RatingAggregate is a recomputed rating sum for one mentor.
type RatingAggregate struct {
	Total int
	Count int
}

// MentorRepository stores mentor profiles and answers the eligibility query.
type MentorRepository interface {
	Create(ctx context.Context, m *MentorProfile) error
	GetByUserID(ctx context.Context, userID string) (*MentorProfile, error)
	Update(ctx context.Context, m *MentorProfile) error

	// ListEligible returns, per requested category, the mentors with an approved
	// mentor principal, an active profile and matching expertise, sorted by mentor id.
	// One batched query serves all categories.
	ListEligible(ctx context.Context, categoryIDs []string) (map[string][]EligibleMentor, error)

	IncrementSessions(ctx context.Context, userID string) error
	AddRating(ctx context.Context, userID string, rating int) error
	SetRatingAggregate(ctx context.Context, userID string, agg RatingAggregate) error
}

// PartnerProfile describes a partner organization.
type PartnerProfile struct {
	ID               string    `bson:"_id" json:"id"`
	UserID           string    `bson:"user_id" json:"user_id"`
	OrganizationName string    `bson:"organization_name" json:"organization_name"`
	OrganizationType string    `bson:"organization_type,omitempty" json:"organization_type,omitempty"`
	Website          string    `bson:"website,omitempty" json:"website,omitempty"`
	Description      string    `bson:"description,omitempty" json:"description,omitempty"`
	CreatedAt        time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time `bson:"updated_at" json:"updated_at"`
}

// PartnerRepository stores partner profiles.
type PartnerRepository interface {
	Create(ctx context.Context, p *PartnerProfile) error
	GetByUserID(ctx context.Context, userID string) (*PartnerProfile, error)
	Update(ctx context.Context, p *PartnerProfile) error
}

// ExpertiseCategory is a mentorship topic bookings and mentors are matched on.
type ExpertiseCategory struct {
	ID          string    `bson:"_id" json:"id"`
	Name        string    `bson:"name" json:"name"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}

// CategoryRepository stores expertise categories.
type CategoryRepository interface {
	// Create fails with ErrDuplicateCategory on a name clash.
	Create(ctx context.Context, c *ExpertiseCategory) error
	GetByID(ctx context.Context, id string) (*ExpertiseCategory, error)
	// List returns categories ordered by name.
	List(ctx context.Context) ([]*ExpertiseCategory, error)
}
