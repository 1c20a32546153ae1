package service

import (
	"context"
	"testing"

	"github.com/mansoorceksport/mentorlink/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminDashboard_BatchesEligibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	strategy := env.category(t, "Strategy")
	design := env.category(t, "Design")
	admin := env.principal(t, domain.RoleAdmin, domain.ApprovalApproved)
	mentee := env.principal(t, domain.RoleMentee, domain.ApprovalApproved)
	env.mentor(t, strategy.ID)
	env.principal(t, domain.RoleMentor, domain.ApprovalPending)
	env.principal(t, domain.RolePartner, domain.ApprovalPending)

	for i := 0; i < 3; i++ {
		env.submit(t, mentee, strategy.ID)
		env.submit(t, mentee, design.ID)
	}

	before := env.store.eligibleCalls
	dash, err := env.admin.Dashboard(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, 1, env.store.eligibleCalls-before, "one eligibility query for the whole queue")

	assert.Len(t, dash.PendingBookings, 6)
	assert.Len(t, dash.EligibleByCategory[strategy.ID], 1)
	assert.NotNil(t, dash.EligibleByCategory[design.ID])
	assert.Empty(t, dash.EligibleByCategory[design.ID])
	assert.Len(t, dash.PendingUsers, 2)
	assert.Len(t, dash.Categories, 2)

	_, err = env.admin.Dashboard(ctx, mentee)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestApproveAndRejectUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.principal(t, domain.RoleAdmin, domain.ApprovalApproved)
	mentee := env.principal(t, domain.RoleMentee, domain.ApprovalApproved)
	applicant := env.principal(t, domain.RoleMentor, domain.ApprovalPending)

	_, err := env.admin.ApproveUser(ctx, mentee, applicant.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	p, err := env.admin.ApproveUser(ctx, admin, applicant.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalApproved, p.ApprovalStatus)

	_, err = env.admin.ApproveUser(ctx, admin, applicant.ID)
	assert.ErrorIs(t, err, domain.ErrApprovalUnchanged)

	p, err = env.admin.RejectUser(ctx, admin, applicant.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalRejected, p.ApprovalStatus)

	_, err = env.admin.RejectUser(ctx, admin, admin.ID)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = env.admin.ApproveUser(ctx, admin, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Equal(t, []domain.EventType{domain.EventUserApproved, domain.EventUserRejected}, env.events.types())
}

func TestApproveAndRejectUser_OnlyMentorsAndPartners(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.principal(t, domain.RoleAdmin, domain.ApprovalApproved)
	otherAdmin := env.principal(t, domain.RoleAdmin, domain.ApprovalApproved)
	super := env.principal(t, domain.RoleSuperAdmin, domain.ApprovalApproved)
	mentee := env.principal(t, domain.RoleMentee, domain.ApprovalApproved)
	partner := env.principal(t, domain.RolePartner, domain.ApprovalPending)

	for _, target := range []*domain.Principal{super, otherAdmin, mentee} {
		_, err := env.admin.RejectUser(ctx, admin, target.ID)
		assert.ErrorIs(t, err, domain.ErrForbidden, "admin rejects %s", target.Role)
		_, err = env.admin.ApproveUser(ctx, admin, target.ID)
		assert.ErrorIs(t, err, domain.ErrForbidden, "admin approves %s", target.Role)
	}
	_, err := env.admin.RejectUser(ctx, super, otherAdmin.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// the superadmin keeps full rights
	stored, err := env.store.Users().GetByID(ctx, super.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalApproved, stored.ApprovalStatus)
	_, err = env.directory.ChangeRole(ctx, stored, admin.ID, "mentee")
	require.NoError(t, err)

	p, err := env.admin.ApproveUser(ctx, super, partner.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalApproved, p.ApprovalStatus)
}

func TestDirectory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	super := env.principal(t, domain.RoleSuperAdmin, domain.ApprovalApproved)
	admin := env.principal(t, domain.RoleAdmin, domain.ApprovalApproved)
	mentee := env.principal(t, domain.RoleMentee, domain.ApprovalApproved)
	env.principal(t, domain.RoleMentor, domain.ApprovalPending)

	_, err := env.directory.ListUsers(ctx, admin, "", "")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	dir, err := env.directory.ListUsers(ctx, super, "", "")
	require.NoError(t, err)
	assert.Len(t, dir.Users, 4)
	assert.Equal(t, 1, dir.Counts[domain.RoleMentee])
	assert.Equal(t, 0, dir.Counts[domain.RolePartner])

	dir, err = env.directory.ListUsers(ctx, super, "", "mentee")
	require.NoError(t, err)
	require.Len(t, dir.Users, 1)
	assert.Equal(t, mentee.ID, dir.Users[0].ID)

	dir, err = env.directory.ListUsers(ctx, super, mentee.ID[18:], "")
	require.NoError(t, err)
	assert.Len(t, dir.Users, 1)

	_, err = env.directory.ListUsers(ctx, super, "", "owner")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestChangeRole_RevokesSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	super := env.principal(t, domain.RoleSuperAdmin, domain.ApprovalApproved)
	admin := env.principal(t, domain.RoleAdmin, domain.ApprovalApproved)
	mentee := env.principal(t, domain.RoleMentee, domain.ApprovalApproved)

	_, err := env.tokens.GenerateTokenPair(ctx, mentee, "ua", "127.0.0.1")
	require.NoError(t, err)
	require.Equal(t, 1, env.sessions.count(mentee.ID))

	_, err = env.directory.ChangeRole(ctx, admin, mentee.ID, "admin")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	p, err := env.directory.ChangeRole(ctx, super, mentee.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, p.Role)
	assert.Zero(t, env.sessions.count(mentee.ID))

	stored, err := env.store.Users().GetByID(ctx, mentee.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, stored.Role)

	_, err = env.directory.ChangeRole(ctx, super, super.ID, "mentee")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = env.directory.ChangeRole(ctx, super, mentee.ID, "owner")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
