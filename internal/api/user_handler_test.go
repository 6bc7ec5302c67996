package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"health-metrics-api/internal/api/shared"
	"health-metrics-api/internal/domain"
	"health-metrics-api/internal/service/auth"
	"health-metrics-api/internal/store"
)

func bodyReader(body string) *bytes.Reader {
	return bytes.NewReader([]byte(body))
}

func newUserHandler(users *fakeUserStore) *UserHandler {
	return NewUserHandler(nil, users, &stubGlucoseStore{}, &stubPressureStore{}, auth.NewBcryptVerifier())
}

func registerTestUser(t *testing.T, users *fakeUserStore, email, password string) *domain.User {
	t.Helper()
	user, err := domain.NewUser(email, password)
	require.NoError(t, err)
	require.NoError(t, users.Create(context.Background(), user))
	return user
}

func doAuthenticatedRequest(
	t *testing.T,
	handler http.HandlerFunc,
	method, path, body string,
	userID int64,
) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, bodyReader(body))
	if userID != 0 {
		ctx := context.WithValue(req.Context(), shared.UserIDContextKey, userID)
		req = req.WithContext(ctx)
	}

	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestGetMe(t *testing.T) {
	t.Parallel()

	users := newFakeUserStore()
	alice := registerTestUser(t, users, "alice@example.com", "a-long-enough-password")
	h := newUserHandler(users)

	t.Run("returns the authenticated user", func(t *testing.T) {
		t.Parallel()
		rec := doAuthenticatedRequest(t, h.GetMe, http.MethodGet, "/api/users/me", "", alice.ID)

		require.Equal(t, http.StatusOK, rec.Code)
		var got domain.User
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, alice.Email, got.Email)
		assert.NotContains(t, rec.Body.String(), "password")
	})

	t.Run("unauthenticated request is rejected", func(t *testing.T) {
		t.Parallel()
		rec := doAuthenticatedRequest(t, h.GetMe, http.MethodGet, "/api/users/me", "", 0)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestUpdateMe(t *testing.T) {
	t.Parallel()

	users := newFakeUserStore()
	alice := registerTestUser(t, users, "alice@example.com", "a-long-enough-password")
	h := newUserHandler(users)

	rec := doAuthenticatedRequest(t, h.UpdateMe, http.MethodPut, "/api/users/me",
		`{"email":"alice.new@example.com"}`, alice.ID)

	require.Equal(t, http.StatusOK, rec.Code)
	stored, err := users.GetByID(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice.new@example.com", stored.Email)
}

func TestChangePassword(t *testing.T) {
	t.Parallel()

	t.Run("changes the password when the current one verifies", func(t *testing.T) {
		t.Parallel()
		users := newFakeUserStore()
		alice := registerTestUser(t, users, "alice@example.com", "a-long-enough-password")
		h := newUserHandler(users)

		before, err := users.GetByID(context.Background(), alice.ID)
		require.NoError(t, err)

		rec := doAuthenticatedRequest(t, h.ChangePassword, http.MethodPut, "/api/users/me/password",
			`{"current_password":"a-long-enough-password","new_password":"an-even-longer-password"}`,
			alice.ID)

		require.Equal(t, http.StatusNoContent, rec.Code)
		after, err := users.GetByID(context.Background(), alice.ID)
		require.NoError(t, err)
		assert.NotEqual(t, before.HashedPassword, after.HashedPassword)
	})

	t.Run("rejects a wrong current password", func(t *testing.T) {
		t.Parallel()
		users := newFakeUserStore()
		alice := registerTestUser(t, users, "alice@example.com", "a-long-enough-password")
		h := newUserHandler(users)

		rec := doAuthenticatedRequest(t, h.ChangePassword, http.MethodPut, "/api/users/me/password",
			`{"current_password":"definitely-not-it","new_password":"an-even-longer-password"}`,
			alice.ID)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects a short new password", func(t *testing.T) {
		t.Parallel()
		users := newFakeUserStore()
		alice := registerTestUser(t, users, "alice@example.com", "a-long-enough-password")
		h := newUserHandler(users)

		rec := doAuthenticatedRequest(t, h.ChangePassword, http.MethodPut, "/api/users/me/password",
			`{"current_password":"a-long-enough-password","new_password":"short"}`,
			alice.ID)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

// newPurgeHandler builds a UserHandler whose purge transaction runs the
// purge body directly against the fakes. Commit and rollback mechanics are
// covered by the transaction helper; these tests pin down what the purge
// deletes and for whom.
func newPurgeHandler(users *fakeUserStore, gs *stubGlucoseStore, ps *stubPressureStore) *UserHandler {
	h := NewUserHandler(nil, users, gs, ps, auth.NewBcryptVerifier())
	h.runTx = func(ctx context.Context, fn store.TxFn) error {
		return fn(ctx, nil)
	}
	return h
}

func TestPurgeMe(t *testing.T) {
	t.Parallel()

	setup := func(t *testing.T) (*fakeUserStore, *stubGlucoseStore, *stubPressureStore, *domain.User, *domain.User) {
		t.Helper()
		users := newFakeUserStore()
		alice := registerTestUser(t, users, "alice@example.com", "a-long-enough-password")
		bob := registerTestUser(t, users, "bob@example.com", "another-long-password")

		gs := &stubGlucoseStore{readings: []*domain.GlucoseReading{
			{ID: 1, UserID: alice.ID, Value: 110.0, Unit: domain.GlucoseUnitMgDL, Meal: domain.MealFasting},
			{ID: 2, UserID: alice.ID, Value: 95.0, Unit: domain.GlucoseUnitMgDL, Meal: domain.MealPre},
			{ID: 3, UserID: bob.ID, Value: 120.0, Unit: domain.GlucoseUnitMgDL, Meal: domain.MealPost},
		}}
		ps := &stubPressureStore{readings: []*domain.PressureReading{
			{ID: 1, UserID: alice.ID, Systolic: 120, Diastolic: 80, Unit: domain.PressureUnit},
			{ID: 2, UserID: bob.ID, Systolic: 130, Diastolic: 85, Unit: domain.PressureUnit},
		}}
		return users, gs, ps, alice, bob
	}

	t.Run("removes both reading kinds and the user, for the owner only", func(t *testing.T) {
		t.Parallel()
		users, gs, ps, alice, bob := setup(t)
		h := newPurgeHandler(users, gs, ps)

		rec := doAuthenticatedRequest(t, h.PurgeMe, http.MethodDelete, "/api/users/me/purge", "", alice.ID)

		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, []int64{alice.ID}, gs.purgedOwners)
		assert.Equal(t, []int64{alice.ID}, ps.purgedOwners)

		_, err := users.GetByID(context.Background(), alice.ID)
		require.ErrorIs(t, err, store.ErrUserNotFound)

		// The other owner's account and readings are untouched.
		_, err = users.GetByID(context.Background(), bob.ID)
		require.NoError(t, err)
		require.Len(t, gs.readings, 1)
		assert.Equal(t, bob.ID, gs.readings[0].UserID)
		require.Len(t, ps.readings, 1)
		assert.Equal(t, bob.ID, ps.readings[0].UserID)
	})

	t.Run("failed reading delete leaves the account in place", func(t *testing.T) {
		t.Parallel()
		users, gs, ps, alice, _ := setup(t)
		gs.deleteAllErr = errors.New("connection reset")
		h := newPurgeHandler(users, gs, ps)

		rec := doAuthenticatedRequest(t, h.PurgeMe, http.MethodDelete, "/api/users/me/purge", "", alice.ID)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Empty(t, ps.purgedOwners)

		_, err := users.GetByID(context.Background(), alice.ID)
		require.NoError(t, err, "a failed purge must not remove the account")
	})

	t.Run("unauthenticated request is rejected", func(t *testing.T) {
		t.Parallel()
		users, gs, ps, _, _ := setup(t)
		h := newPurgeHandler(users, gs, ps)

		rec := doAuthenticatedRequest(t, h.PurgeMe, http.MethodDelete, "/api/users/me/purge", "", 0)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, gs.purgedOwners)
	})
}

func TestDeactivateMe(t *testing.T) {
	t.Parallel()

	users := newFakeUserStore()
	alice := registerTestUser(t, users, "alice@example.com", "a-long-enough-password")
	h := newUserHandler(users)

	rec := doAuthenticatedRequest(t, h.DeactivateMe, http.MethodDelete, "/api/users/me", "", alice.ID)

	require.Equal(t, http.StatusNoContent, rec.Code)
	stored, err := users.GetByID(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active, "the account must be soft-deleted, not removed")
}
