package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/mansoorceksport/mentorlink/internal/authz"
	"github.com/mansoorceksport/mentorlink/internal/domain"
	"github.com/mansoorceksport/mentorlink/internal/validate"
	"go.uber.org/zap"
)

// MentorProfileInput is the editable part of a mentor profile
type MentorProfileInput struct {
	Bio                  string   `json:"bio" validate:"max=2000"`
	YearsExperience      int      `json:"years_experience" validate:"gte=0,lte=80"`
	Company              string   `json:"company" validate:"max=120"`
	JobTitle             string   `json:"job_title" validate:"max=120"`
	LinkedInURL          string   `json:"linkedin_url" validate:"omitempty,url"`
	ExpertiseCategoryIDs []string `json:"expertise_category_ids" validate:"required,min=1,max=10,dive,required"`
	IsActive             *bool    `json:"is_active"`
}

// PartnerProfileInput is the editable part of a partner profile
type PartnerProfileInput struct {
	OrganizationName string `json:"organization_name" validate:"required,notblank,max=200"`
	OrganizationType string `json:"organization_type" validate:"max=100"`
	Website          string `json:"website" validate:"omitempty,url"`
	Description      string `json:"description" validate:"max=2000"`
}

// ContactInput carries the contact fields a principal may change. Nil keeps the value.
type ContactInput struct {
	DisplayName    *string `json:"display_name" validate:"omitempty,notblank,max=100"`
	Phone          *string `json:"phone" validate:"omitempty,max=32"`
	Gender         *string `json:"gender" validate:"omitempty,max=32"`
	TelegramChatID *int64  `json:"telegram_chat_id"`
}

// ProfileService manages a principal's own profile, photo and role profile
type ProfileService struct {
	users      domain.PrincipalRepository
	mentors    domain.MentorRepository
	partners   domain.PartnerRepository
	categories domain.CategoryRepository
	blobs      domain.BlobStore
	logger     *zap.Logger
	now        func() time.Time
}

// NewProfileService creates a new profile service
func NewProfileService(
	users domain.PrincipalRepository,
	mentors domain.MentorRepository,
	partners domain.PartnerRepository,
	categories domain.CategoryRepository,
	blobs domain.BlobStore,
	logger *zap.Logger,
) *ProfileService {
	return &ProfileService{
		users:      users,
		mentors:    mentors,
		partners:   partners,
		categories: categories,
		blobs:      blobs,
		logger:     logger,
		now:        time.Now,
	}
}

// Me reloads the principal from the store
func (s *ProfileService) Me(ctx context.Context, actor *domain.Principal) (*domain.Principal, error) {
	p, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, dependencyOr(err, "failed to load user")
	}
	return p, nil
}

// UpdateContact changes the actor's own contact fields
func (s *ProfileService) UpdateContact(ctx context.Context, actor *domain.Principal, in ContactInput) (*domain.Principal, error) {
	if err := authz.Authorize(actor, authz.EditOwnProfile, authz.Resource{OwnerID: actor.ID}); err != nil {
		return nil, err
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	update := domain.ContactUpdate{
		DisplayName:    trimmed(in.DisplayName),
		Phone:          trimmed(in.Phone),
		Gender:         trimmed(in.Gender),
		TelegramChatID: in.TelegramChatID,
	}
	if err := s.users.UpdateContact(ctx, actor.ID, update); err != nil {
		return nil, dependencyOr(err, "failed to update contact")
	}
	return s.Me(ctx, actor)
}

// UploadPhoto replaces the actor's profile photo. The content type is
// sniffed from the bytes and checked together with the size before upload.
func (s *ProfileService) UploadPhoto(ctx context.Context, actor *domain.Principal, data []byte) (*domain.Principal, error) {
	if err := authz.Authorize(actor, authz.EditOwnProfile, authz.Resource{OwnerID: actor.ID}); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, domain.FieldValidationError("photo", "is required")
	}
	if len(data) > domain.MaxPhotoBytes {
		return nil, domain.FieldValidationError("photo", "must be at most 2 MiB")
	}

	contentType, ext, ok := detectPhotoType(data)
	if !ok {
		return nil, domain.FieldValidationError("photo", "must be a JPEG or PNG image")
	}

	current, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, dependencyOr(err, "failed to load user")
	}

	key := fmt.Sprintf("%s/%s.%s", actor.ID, domain.NewID(), ext)
	url, err := s.blobs.Upload(ctx, data, key, contentType)
	if err != nil {
		return nil, dependencyOr(err, "failed to upload photo")
	}

	if err := s.users.UpdatePhoto(ctx, actor.ID, url, key); err != nil {
		s.deleteBlob(ctx, key)
		return nil, dependencyOr(err, "failed to save photo")
	}

	if current.PhotoKey != "" && current.PhotoKey != key {
		s.deleteBlob(ctx, current.PhotoKey)
	}

	s.logger.Info("profile photo updated", zap.String("user_id", actor.ID), zap.String("key", key))
	return s.Me(ctx, actor)
}

// DeletePhoto removes the actor's profile photo
func (s *ProfileService) DeletePhoto(ctx context.Context, actor *domain.Principal) (*domain.Principal, error) {
	if err := authz.Authorize(actor, authz.EditOwnProfile, authz.Resource{OwnerID: actor.ID}); err != nil {
		return nil, err
	}

	current, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, dependencyOr(err, "failed to load user")
	}
	if current.PhotoKey == "" {
		return current, nil
	}

	if err := s.users.UpdatePhoto(ctx, actor.ID, "", ""); err != nil {
		return nil, dependencyOr(err, "failed to clear photo")
	}
	s.deleteBlob(ctx, current.PhotoKey)

	return s.Me(ctx, actor)
}

// deleteBlob is best effort. An orphaned object is harmless.
func (s *ProfileService) deleteBlob(ctx context.Context, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to delete photo object", zap.String("key", key), zap.Error(err))
	}
}

// GetMentorProfile returns the actor's own mentor profile
func (s *ProfileService) GetMentorProfile(ctx context.Context, actor *domain.Principal) (*domain.MentorProfile, error) {
	if actor.Role != domain.RoleMentor {
		return nil, domain.ErrForbidden
	}
	m, err := s.mentors.GetByUserID(ctx, actor.ID)
	if err != nil {
		return nil, dependencyOr(err, "failed to load mentor profile")
	}
	return m, nil
}

// SaveMentorProfile creates or replaces the actor's mentor profile
func (s *ProfileService) SaveMentorProfile(ctx context.Context, actor *domain.Principal, in MentorProfileInput) (*domain.MentorProfile, error) {
	if err := authz.Authorize(actor, authz.EditMentorProfile, authz.Resource{OwnerID: actor.ID}); err != nil {
		return nil, err
	}

	existing, err := s.mentors.GetByUserID(ctx, actor.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, dependencyOr(err, "failed to load mentor profile")
	}

	profile, err := buildMentorProfile(ctx, s.categories, actor.ID, in, existing, s.now())
	if err != nil {
		return nil, err
	}

	if existing == nil {
		err = s.mentors.Create(ctx, profile)
	} else {
		err = s.mentors.Update(ctx, profile)
	}
	if err != nil {
		return nil, dependencyOr(err, "failed to save mentor profile")
	}

	s.logger.Info("mentor profile saved",
		zap.String("user_id", actor.ID),
		zap.Bool("is_active", profile.IsActive),
		zap.Strings("expertise_category_ids", profile.ExpertiseCategoryIDs),
	)
	return profile, nil
}

// GetPartnerProfile returns the actor's own partner profile
func (s *ProfileService) GetPartnerProfile(ctx context.Context, actor *domain.Principal) (*domain.PartnerProfile, error) {
	if actor.Role != domain.RolePartner {
		return nil, domain.ErrForbidden
	}
	p, err := s.partners.GetByUserID(ctx, actor.ID)
	if err != nil {
		return nil, dependencyOr(err, "failed to load partner profile")
	}
	return p, nil
}

// SavePartnerProfile creates or replaces the actor's partner profile
func (s *ProfileService) SavePartnerProfile(ctx context.Context, actor *domain.Principal, in PartnerProfileInput) (*domain.PartnerProfile, error) {
	if err := authz.Authorize(actor, authz.EditPartnerProfile, authz.Resource{OwnerID: actor.ID}); err != nil {
		return nil, err
	}

	existing, err := s.partners.GetByUserID(ctx, actor.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, dependencyOr(err, "failed to load partner profile")
	}

	profile, err := buildPartnerProfile(actor.ID, in, existing, s.now())
	if err != nil {
		return nil, err
	}

	if existing == nil {
		err = s.partners.Create(ctx, profile)
	} else {
		err = s.partners.Update(ctx, profile)
	}
	if err != nil {
		return nil, dependencyOr(err, "failed to save partner profile")
	}
	return profile, nil
}

// ListCategories returns every expertise category ordered by name
func (s *ProfileService) ListCategories(ctx context.Context) ([]*domain.ExpertiseCategory, error) {
	cats, err := s.categories.List(ctx)
	if err != nil {
		return nil, dependencyOr(err, "failed to list categories")
	}
	return cats, nil
}

// detectPhotoType sniffs the content and maps it to an accepted type
func detectPhotoType(data []byte) (contentType, ext string, ok bool) {
	mime := mimetype.Detect(data)
	for ct, e := range domain.AllowedPhotoTypes {
		if mime.Is(ct) {
			return ct, e, true
		}
	}
	return "", "", false
}

// buildMentorProfile validates input and applies it over existing (nil for a new profile)
func buildMentorProfile(
	ctx context.Context,
	categories domain.CategoryRepository,
	userID string,
	in MentorProfileInput,
	existing *domain.MentorProfile,
	now time.Time,
) (*domain.MentorProfile, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	ids := dedupe(in.ExpertiseCategoryIDs)
	for _, id := range ids {
		if _, err := categories.GetByID(ctx, id); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.FieldValidationError("expertise_category_ids", "unknown category "+id)
			}
			return nil, dependencyOr(err, "failed to load category")
		}
	}

	profile := &domain.MentorProfile{UserID: userID, IsActive: true, CreatedAt: now}
	if existing != nil {
		cp := *existing
		profile = &cp
	}
	profile.Bio = strings.TrimSpace(in.Bio)
	profile.YearsExperience = in.YearsExperience
	profile.Company = strings.TrimSpace(in.Company)
	profile.JobTitle = strings.TrimSpace(in.JobTitle)
	profile.LinkedInURL = strings.TrimSpace(in.LinkedInURL)
	profile.ExpertiseCategoryIDs = ids
	if in.IsActive != nil {
		profile.IsActive = *in.IsActive
	}
	profile.UpdatedAt = now
	return profile, nil
}

func buildPartnerProfile(userID string, in PartnerProfileInput, existing *domain.PartnerProfile, now time.Time) (*domain.PartnerProfile, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	profile := &domain.PartnerProfile{UserID: userID, CreatedAt: now}
	if existing != nil {
		cp := *existing
		profile = &cp
	}
	profile.OrganizationName = strings.TrimSpace(in.OrganizationName)
	profile.OrganizationType = strings.TrimSpace(in.OrganizationType)
	profile.Website = strings.TrimSpace(in.Website)
	profile.Description = strings.TrimSpace(in.Description)
	profile.UpdatedAt = now
	return profile, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
