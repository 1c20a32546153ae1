package repository

import (
	"context"
	"testing"
	"time"

	"github.com/mansoorceksport/mentorlink/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// countingMentorRepo records eligibility queries
type countingMentorRepo struct {
	domain.MentorRepository
	rows    map[string][]domain.EligibleMentor
	queries [][]string
}

func (r *countingMentorRepo) ListEligible(_ context.Context, categoryIDs []string) (map[string][]domain.EligibleMentor, error) {
	r.queries = append(r.queries, append([]string(nil), categoryIDs...))
	out := make(map[string][]domain.EligibleMentor, len(categoryIDs))
	for _, id := range categoryIDs {
		out[id] = append([]domain.EligibleMentor{}, r.rows[id]...)
	}
	return out, nil
}

func (r *countingMentorRepo) Update(context.Context, *domain.MentorProfile) error { return nil }

func (r *countingMentorRepo) AddRating(context.Context, string, int) error { return nil }

type stubUserRepo struct {
	domain.PrincipalRepository
}

func (stubUserRepo) SetApproval(context.Context, string, domain.ApprovalStatus, domain.ApprovalStatus) error {
	return nil
}

func TestCachedMentorRepository_ListEligible(t *testing.T) {
	_, client := newMiniRedis(t)
	inner := &countingMentorRepo{rows: map[string][]domain.EligibleMentor{
		"cat-a": {{MentorID: "m1"}, {MentorID: "m2"}},
		"cat-b": {{MentorID: "m3"}},
	}}
	repo := NewCachedMentorRepository(inner, NewRedisCache(client), time.Minute, zap.NewNop())
	ctx := context.Background()

	first, err := repo.ListEligible(ctx, []string{"cat-a", "cat-b"})
	require.NoError(t, err)
	assert.Len(t, first["cat-a"], 2)
	require.Len(t, inner.queries, 1)

	// fully cached
	second, err := repo.ListEligible(ctx, []string{"cat-a", "cat-b"})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, inner.queries, 1)

	// only misses reach the store, batched
	_, err = repo.ListEligible(ctx, []string{"cat-a", "cat-c", "cat-d"})
	require.NoError(t, err)
	require.Len(t, inner.queries, 2)
	assert.ElementsMatch(t, []string{"cat-c", "cat-d"}, inner.queries[1])

	// bypass always hits the store
	_, err = repo.ListEligible(domain.BypassCache(ctx), []string{"cat-a"})
	require.NoError(t, err)
	assert.Len(t, inner.queries, 3)
}

func TestCachedMentorRepository_Invalidation(t *testing.T) {
	mr, client := newMiniRedis(t)
	inner := &countingMentorRepo{rows: map[string][]domain.EligibleMentor{"cat-a": {{MentorID: "m1"}}}}
	mentors := NewCachedMentorRepository(inner, NewRedisCache(client), time.Minute, zap.NewNop())
	users := NewCachedUserRepository(stubUserRepo{}, mentors)
	ctx := context.Background()

	_, err := mentors.ListEligible(ctx, []string{"cat-a"})
	require.NoError(t, err)
	assert.True(t, mr.Exists(cacheNamespace+eligibleByCategoryKeyPrefix+"cat-a"))

	require.NoError(t, mentors.Update(ctx, &domain.MentorProfile{UserID: "m1"}))
	assert.False(t, mr.Exists(cacheNamespace+eligibleByCategoryKeyPrefix+"cat-a"))

	_, err = mentors.ListEligible(ctx, []string{"cat-a"})
	require.NoError(t, err)
	assert.True(t, mr.Exists(cacheNamespace+eligibleByCategoryKeyPrefix+"cat-a"))

	require.NoError(t, users.SetApproval(ctx, "m1", domain.ApprovalApproved, domain.ApprovalRejected))
	assert.False(t, mr.Exists(cacheNamespace+eligibleByCategoryKeyPrefix+"cat-a"))
}

func TestCachedMentorRepository_TTL(t *testing.T) {
	mr, client := newMiniRedis(t)
	inner := &countingMentorRepo{rows: map[string][]domain.EligibleMentor{"cat-a": {{MentorID: "m1"}}}}
	repo := NewCachedMentorRepository(inner, NewRedisCache(client), time.Minute, zap.NewNop())
	ctx := context.Background()

	_, err := repo.ListEligible(ctx, []string{"cat-a"})
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)
	_, err = repo.ListEligible(ctx, []string{"cat-a"})
	require.NoError(t, err)
	assert.Len(t, inner.queries, 2)
}

func TestCachedMentorRepository_InvalidatesAfterCommit(t *testing.T) {
	mr, client := newMiniRedis(t)
	inner := &countingMentorRepo{rows: map[string][]domain.EligibleMentor{"cat-a": {{MentorID: "m1"}}}}
	repo := NewCachedMentorRepository(inner, NewRedisCache(client), time.Minute, zap.NewNop())
	ctx := context.Background()
	key := cacheNamespace + eligibleByCategoryKeyPrefix + "cat-a"

	_, err := repo.ListEligible(ctx, []string{"cat-a"})
	require.NoError(t, err)
	require.True(t, mr.Exists(key))

	txCtx, commit := domain.WithCommitHooks(ctx)
	require.NoError(t, repo.AddRating(txCtx, "m1", 5))
	assert.True(t, mr.Exists(key), "entry survives until commit")

	// a read inside the window still sees the cached rows
	_, err = repo.ListEligible(ctx, []string{"cat-a"})
	require.NoError(t, err)
	assert.Len(t, inner.queries, 1)

	commit(ctx)
	assert.False(t, mr.Exists(key))

	// rolled back: nothing is dropped
	_, err = repo.ListEligible(ctx, []string{"cat-a"})
	require.NoError(t, err)
	txCtx, _ = domain.WithCommitHooks(ctx)
	require.NoError(t, repo.AddRating(txCtx, "m1", 4))
	assert.True(t, mr.Exists(key))
}
