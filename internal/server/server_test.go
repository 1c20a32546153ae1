package server

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/mansoorceksport/mentorlink/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoldenPath(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	// ==========================================
	// STEP 1: Bootstrap superadmin and categories
	// ==========================================
	now := time.Now().UTC()
	require.NoError(t, a.store.Users.Create(ctx, &domain.Principal{
		ID:             domain.NewID(),
		FirebaseUID:    "fb-super",
		Email:          "root@mentorlink.test",
		DisplayName:    "Root",
		Role:           domain.RoleSuperAdmin,
		ApprovalStatus: domain.ApprovalApproved,
		CreatedAt:      now,
		UpdatedAt:      now,
	}))
	category := &domain.ExpertiseCategory{ID: domain.NewID(), Name: "Product Strategy", CreatedAt: now}
	require.NoError(t, a.store.Categories.Create(ctx, category))

	a.auth.Add("super-fb", "fb-super", "root@mentorlink.test", "Root")
	a.auth.Add("mentee-fb", "fb-mentee", "mia@mentorlink.test", "Mia")
	a.auth.Add("mentor-fb", "fb-mentor", "omar@mentorlink.test", "Omar")

	superToken, _ := a.login(t, "super-fb")

	resp, body := a.request(t, "GET", "/v1/categories", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["items"], 1)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	// ==========================================
	// STEP 2: Mentee registers by login, mentor signs up pending
	// ==========================================
	menteeToken, mentee := a.login(t, "mentee-fb")
	assert.Equal(t, "mentee", mentee["role"])

	resp, body = a.request(t, "POST", "/v1/auth/signup", "", map[string]interface{}{
		"firebase_token": "mentor-fb",
		"role":           "mentor",
		"display_name":   "Omar",
		"mentor_profile": map[string]interface{}{
			"bio":                    "Ten years of product work",
			"years_experience":       10,
			"expertise_category_ids": []string{category.ID},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	mentorToken := body["token"].(string)
	mentorUser := body["user"].(map[string]interface{})
	mentorID := mentorUser["id"].(string)
	assert.Equal(t, "pending", mentorUser["approval_status"])

	// a pending mentor cannot answer anything yet and is not assignable
	resp, body = a.request(t, "GET", "/v1/admin/mentors?category_id="+category.ID, superToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Empty(t, body["items"])

	// mentees never reach admin routes
	resp, _ = a.request(t, "GET", "/v1/admin/dashboard", menteeToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// ==========================================
	// STEP 3: Admin approves the mentor
	// ==========================================
	resp, body = a.request(t, "GET", "/v1/admin/dashboard", superToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Len(t, body["pending_users"], 1)

	resp, body = a.request(t, "POST", "/v1/admin/users/"+mentorID+"/approve", superToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "approved", body["approval_status"])

	resp, _ = a.request(t, "POST", "/v1/admin/users/"+mentorID+"/approve", superToken, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// ==========================================
	// STEP 4: Mentee submits, admin assigns
	// ==========================================
	preferred := time.Now().AddDate(0, 1, 0).Format("2006-01-02")
	resp, body = a.request(t, "POST", "/v1/bookings", menteeToken, map[string]interface{}{
		"expertise_category_id": category.ID,
		"preferred_date":        preferred,
		"preferred_time":        "10:30",
		"topic":                 "Pricing a B2B product",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	bookingID := body["id"].(string)
	assert.Equal(t, "pending_assignment", body["approval_status"])
	assert.Nil(t, body["mentor_id"])

	resp, body = a.request(t, "POST", "/v1/bookings", menteeToken, map[string]interface{}{
		"expertise_category_id": category.ID,
		"preferred_date":        "not-a-date",
		"preferred_time":        "25:00",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["fields"], "preferred_date")

	resp, body = a.request(t, "GET", "/v1/admin/dashboard", superToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["pending_bookings"], 1)
	eligible := body["eligible_by_category"].(map[string]interface{})
	assert.Len(t, eligible[category.ID], 1)

	resp, _ = a.request(t, "POST", "/v1/admin/bookings/"+bookingID+"/assign", menteeToken, map[string]string{"mentor_id": mentorID})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = a.request(t, "POST", "/v1/admin/bookings/"+bookingID+"/assign", superToken, map[string]string{"mentor_id": mentorID})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "assigned_pending_mentor", body["approval_status"])
	assert.Equal(t, mentorID, body["mentor_id"])

	resp, _ = a.request(t, "POST", "/v1/admin/bookings/"+bookingID+"/assign", superToken, map[string]string{"mentor_id": mentorID})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// ==========================================
	// STEP 5: Mentor accepts
	// ==========================================
	resp, body = a.request(t, "GET", "/v1/mentor/dashboard", mentorToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	pending := body["pending_assignments"].([]interface{})
	require.Len(t, pending, 1)
	assignmentID := pending[0].(map[string]interface{})["assignment"].(map[string]interface{})["id"].(string)

	resp, _ = a.request(t, "POST", "/v1/mentor/assignments/"+assignmentID+"/respond", mentorToken, map[string]string{"response": "maybe"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = a.request(t, "POST", "/v1/mentor/assignments/"+assignmentID+"/respond", mentorToken, map[string]string{"response": "accepted"})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "accepted", body["mentor_response"])

	resp, body = a.request(t, "GET", "/v1/bookings/"+bookingID, menteeToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "approved", body["approval_status"])

	// approved is terminal for the mentee
	resp, _ = a.request(t, "POST", "/v1/bookings/"+bookingID+"/cancel", menteeToken, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = a.request(t, "GET", "/v1/mentee/dashboard", menteeToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, mentorID, body["mentor"].(map[string]interface{})["id"])

	// ==========================================
	// STEP 6: Mentee reviews once
	// ==========================================
	review := map[string]interface{}{"mentor_id": mentorID, "rating": 5, "comment": "Sharp and practical"}
	resp, body = a.request(t, "POST", "/v1/bookings/"+bookingID+"/review", menteeToken, review)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)

	resp, _ = a.request(t, "POST", "/v1/bookings/"+bookingID+"/review", menteeToken, review)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = a.request(t, "GET", "/v1/mentors/"+mentorID+"/reviews", menteeToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["items"], 1)

	// ==========================================
	// STEP 7: Admin completes, superadmin directory
	// ==========================================
	resp, body = a.request(t, "POST", "/v1/admin/bookings/"+bookingID+"/complete", superToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "completed", body["approval_status"])

	resp, body = a.request(t, "GET", "/v1/superadmin/users?role=mentor", superToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Len(t, body["users"], 1)
	counts := body["counts"].(map[string]interface{})
	assert.EqualValues(t, 1, counts["mentee"])
}

func TestRoleChangeAndLogout(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, a.store.Users.Create(ctx, &domain.Principal{
		ID:             domain.NewID(),
		FirebaseUID:    "fb-super",
		Email:          "root@mentorlink.test",
		Role:           domain.RoleSuperAdmin,
		ApprovalStatus: domain.ApprovalApproved,
		CreatedAt:      now,
		UpdatedAt:      now,
	}))
	a.auth.Add("super-fb", "fb-super", "root@mentorlink.test", "Root")
	a.auth.Add("user-fb", "fb-user", "ana@mentorlink.test", "Ana")

	superToken, _ := a.login(t, "super-fb")
	userToken, user := a.login(t, "user-fb")
	userID := user["id"].(string)

	resp, _ := a.request(t, "GET", "/v1/admin/dashboard", userToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := a.request(t, "PUT", "/v1/superadmin/users/"+userID+"/role", superToken, map[string]string{"role": "admin"})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "admin", body["role"])

	// the same access token now carries admin rights because the principal is reloaded
	resp, _ = a.request(t, "GET", "/v1/admin/dashboard", userToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = a.request(t, "POST", "/v1/auth/logout", userToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = a.request(t, "GET", "/v1/me", userToken, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
