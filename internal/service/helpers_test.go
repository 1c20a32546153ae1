package service

import (
	"context"
	"testing"
	"time"

	"github.com/mansoorceksport/mentorlink/internal/config"
	"github.com/mansoorceksport/mentorlink/internal/domain"
	"github.com/mansoorceksport/mentorlink/internal/telemetry"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	store     *memStore
	events    *recordingPublisher
	blobs     *memBlobStore
	sessions  *memSessions
	authAPI   *fakeAuthClient
	now       time.Time
	tokens    *TokenService
	auth      *AuthService
	bookings  *BookingService
	reviews   *ReviewService
	admin     *AdminService
	directory *DirectoryService
	profiles  *ProfileService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newMemStore()
	logger := zap.NewNop()
	env := &testEnv{
		store:    store,
		events:   &recordingPublisher{},
		blobs:    newMemBlobStore(),
		sessions: newMemSessions(),
		authAPI:  newFakeAuthClient(),
		now:      time.Date(2030, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return env.now }

	env.tokens = NewTokenService(config.JWTConfig{
		Secret:             "test-secret-key-that-is-long-enough",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: time.Hour,
	}, env.sessions, store.Users())

	env.auth = NewAuthService(store.Users(), store.Mentors(), store.Partners(), store.Categories(), store, env.authAPI, env.tokens, logger)
	env.auth.now = clock

	env.bookings = NewBookingService(store.Users(), store.Mentors(), store.Categories(), store.Bookings(), store.Assignments(),
		store, env.events, telemetry.NewWorkflowMetrics(), logger)
	env.bookings.now = clock

	env.reviews = NewReviewService(store.Bookings(), store.Reviews(), store.Mentors(), store, env.events, logger)
	env.reviews.now = clock

	env.admin = NewAdminService(store.Users(), store.Mentors(), store.Categories(), store.Bookings(), env.events, logger)
	env.admin.now = clock

	env.directory = NewDirectoryService(store.Users(), env.tokens, env.events, logger)
	env.directory.now = clock

	env.profiles = NewProfileService(store.Users(), store.Mentors(), store.Partners(), store.Categories(), env.blobs, logger)
	env.profiles.now = clock

	return env
}

func (e *testEnv) principal(t *testing.T, role domain.Role, status domain.ApprovalStatus) *domain.Principal {
	t.Helper()
	id := domain.NewID()
	p := &domain.Principal{
		ID:             id,
		FirebaseUID:    "uid-" + id,
		Email:          id + "@example.com",
		DisplayName:    string(role) + " " + id[len(id)-4:],
		Role:           role,
		ApprovalStatus: status,
	}
	require.NoError(t, e.store.Users().Create(context.Background(), p))
	return p
}

func (e *testEnv) category(t *testing.T, name string) *domain.ExpertiseCategory {
	t.Helper()
	c := &domain.ExpertiseCategory{Name: name}
	require.NoError(t, e.store.Categories().Create(context.Background(), c))
	return c
}

// mentor creates an approved mentor with an active profile covering categoryIDs
func (e *testEnv) mentor(t *testing.T, categoryIDs ...string) *domain.Principal {
	t.Helper()
	p := e.principal(t, domain.RoleMentor, domain.ApprovalApproved)
	require.NoError(t, e.store.Mentors().Create(context.Background(), &domain.MentorProfile{
		UserID:               p.ID,
		ExpertiseCategoryIDs: categoryIDs,
		IsActive:             true,
	}))
	return p
}

func (e *testEnv) submit(t *testing.T, mentee *domain.Principal, categoryID string) *domain.Booking {
	t.Helper()
	b, err := e.bookings.SubmitBooking(context.Background(), mentee, SubmitBookingInput{
		ExpertiseCategoryID: categoryID,
		PreferredDate:       "2030-03-20",
		PreferredTime:       "10:00",
	})
	require.NoError(t, err)
	return b
}

func (e *testEnv) booking(t *testing.T, id string) *domain.Booking {
	t.Helper()
	b, err := e.store.Bookings().GetByID(context.Background(), id)
	require.NoError(t, err)
	return b
}

// pendingAssignment returns the single pending assignment row for a booking
func (e *testEnv) pendingAssignment(t *testing.T, bookingID string) *domain.Assignment {
	t.Helper()
	rows, err := e.store.Assignments().ListByBooking(context.Background(), bookingID)
	require.NoError(t, err)
	var pending []*domain.Assignment
	for _, a := range rows {
		if a.IsPending() {
			pending = append(pending, a)
		}
	}
	require.Len(t, pending, 1)
	return pending[0]
}

func (e *testEnv) assertMentorInvariant(t *testing.T) {
	t.Helper()
	all, err := e.store.Bookings().ListAll(context.Background())
	require.NoError(t, err)
	for _, b := range all {
		require.Truef(t, b.ConsistentMentor(), "booking %s in %s has mentor %q", b.ID, b.Status, b.MentorIDValue())
	}
}
