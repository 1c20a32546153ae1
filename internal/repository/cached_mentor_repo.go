package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mansoorceksport/mentorlink/internal/domain"
	"go.uber.org/zap"
)

const (
	eligibleByCategoryKeyPrefix = "eligible:category:"
	categoriesListKey           = "categories:all"
)

// CachedMentorRepository caches the eligibility query per category.
// Every write through it drops all eligibility entries.
type CachedMentorRepository struct {
	domain.MentorRepository
	cache  *RedisCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedMentorRepository creates a new cached mentor repository
func NewCachedMentorRepository(inner domain.MentorRepository, cache *RedisCache, ttl time.Duration, logger *zap.Logger) *CachedMentorRepository {
	return &CachedMentorRepository{
		MentorRepository: inner,
		cache:            cache,
		ttl:              ttl,
		logger:           logger,
	}
}

// ListEligible serves cached categories and fetches all misses in one batched query.
func (r *CachedMentorRepository) ListEligible(ctx context.Context, categoryIDs []string) (map[string][]domain.EligibleMentor, error) {
	if domain.CacheBypassed(ctx) {
		return r.MentorRepository.ListEligible(ctx, categoryIDs)
	}

	keys := make([]string, len(categoryIDs))
	for i, id := range categoryIDs {
		keys[i] = eligibleByCategoryKeyPrefix + id
	}
	cached, err := r.cache.GetMany(ctx, keys)
	if err != nil {
		r.logger.Warn("eligibility cache read failed", zap.Error(err))
		cached = map[string][]byte{}
	}

	result := make(map[string][]domain.EligibleMentor, len(categoryIDs))
	var misses []string
	for i, id := range categoryIDs {
		raw, ok := cached[keys[i]]
		if !ok {
			misses = append(misses, id)
			continue
		}
		var list []domain.EligibleMentor
		if err := json.Unmarshal(raw, &list); err != nil {
			misses = append(misses, id)
			continue
		}
		result[id] = list
	}
	if len(misses) == 0 {
		return result, nil
	}

	fresh, err := r.MentorRepository.ListEligible(ctx, misses)
	if err != nil {
		return nil, err
	}
	for id, list := range fresh {
		result[id] = list
		if err := r.cache.Set(ctx, eligibleByCategoryKeyPrefix+id, list, r.ttl); err != nil {
			r.logger.Warn("eligibility cache write failed", zap.String("category_id", id), zap.Error(err))
		}
	}
	return result, nil
}

func (r *CachedMentorRepository) Create(ctx context.Context, m *domain.MentorProfile) error {
	if err := r.MentorRepository.Create(ctx, m); err != nil {
		return err
	}
	r.InvalidateEligibility(ctx)
	return nil
}

func (r *CachedMentorRepository) Update(ctx context.Context, m *domain.MentorProfile) error {
	if err := r.MentorRepository.Update(ctx, m); err != nil {
		return err
	}
	r.InvalidateEligibility(ctx)
	return nil
}

// Rating and session counters are part of the eligibility rows.

func (r *CachedMentorRepository) IncrementSessions(ctx context.Context, userID string) error {
	if err := r.MentorRepository.IncrementSessions(ctx, userID); err != nil {
		return err
	}
	r.InvalidateEligibility(ctx)
	return nil
}

func (r *CachedMentorRepository) AddRating(ctx context.Context, userID string, rating int) error {
	if err := r.MentorRepository.AddRating(ctx, userID, rating); err != nil {
		return err
	}
	r.InvalidateEligibility(ctx)
	return nil
}

func (r *CachedMentorRepository) SetRatingAggregate(ctx context.Context, userID string, agg domain.RatingAggregate) error {
	if err := r.MentorRepository.SetRatingAggregate(ctx, userID, agg); err != nil {
		return err
	}
	r.InvalidateEligibility(ctx)
	return nil
}

// InvalidateEligibility drops every cached eligibility list once the
// surrounding unit of work commits, so a concurrent read cannot re-cache
// uncommitted state. Cache errors are logged and ignored.
func (r *CachedMentorRepository) InvalidateEligibility(ctx context.Context) {
	domain.AfterCommit(ctx, func(ctx context.Context) {
		if err := r.cache.DeleteByPrefix(ctx, eligibleByCategoryKeyPrefix); err != nil {
			r.logger.Warn("eligibility cache invalidation failed", zap.Error(err))
		}
	})
}

// CachedUserRepository drops eligibility entries when a principal's role or
// approval changes.
type CachedUserRepository struct {
	domain.PrincipalRepository
	mentors *CachedMentorRepository
}

func NewCachedUserRepository(inner domain.PrincipalRepository, mentors *CachedMentorRepository) *CachedUserRepository {
	return &CachedUserRepository{PrincipalRepository: inner, mentors: mentors}
}

func (r *CachedUserRepository) SetApproval(ctx context.Context, id string, from, to domain.ApprovalStatus) error {
	if err := r.PrincipalRepository.SetApproval(ctx, id, from, to); err != nil {
		return err
	}
	r.mentors.InvalidateEligibility(ctx)
	return nil
}

func (r *CachedUserRepository) SetRole(ctx context.Context, id string, from, to domain.Role) error {
	if err := r.PrincipalRepository.SetRole(ctx, id, from, to); err != nil {
		return err
	}
	r.mentors.InvalidateEligibility(ctx)
	return nil
}

// UpdateContact can rename a mentor, which eligibility rows display.
func (r *CachedUserRepository) UpdateContact(ctx context.Context, id string, u domain.ContactUpdate) error {
	if err := r.PrincipalRepository.UpdateContact(ctx, id, u); err != nil {
		return err
	}
	if u.DisplayName != nil {
		r.mentors.InvalidateEligibility(ctx)
	}
	return nil
}

// CachedCategoryRepository caches the ordered category list.
type CachedCategoryRepository struct {
	domain.CategoryRepository
	cache *RedisCache
	ttl   time.Duration
}

func NewCachedCategoryRepository(inner domain.CategoryRepository, cache *RedisCache, ttl time.Duration) *CachedCategoryRepository {
	return &CachedCategoryRepository{CategoryRepository: inner, cache: cache, ttl: ttl}
}

func (r *CachedCategoryRepository) List(ctx context.Context) ([]*domain.ExpertiseCategory, error) {
	if !domain.CacheBypassed(ctx) {
		var categories []*domain.ExpertiseCategory
		if err := r.cache.Get(ctx, categoriesListKey, &categories); err == nil {
			return categories, nil
		}
	}

	categories, err := r.CategoryRepository.List(ctx)
	if err != nil {
		return nil, err
	}

	// Store in cache (ignore cache errors)
	_ = r.cache.Set(ctx, categoriesListKey, categories, r.ttl)
	return categories, nil
}

func (r *CachedCategoryRepository) Create(ctx context.Context, c *domain.ExpertiseCategory) error {
	if err := r.CategoryRepository.Create(ctx, c); err != nil {
		return err
	}
	domain.AfterCommit(ctx, func(ctx context.Context) {
		_ = r.cache.Delete(ctx, categoriesListKey)
	})
	return nil
}
