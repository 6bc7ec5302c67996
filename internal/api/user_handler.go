package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"health-metrics-api/internal/api/shared"
	"health-metrics-api/internal/domain"
	"health-metrics-api/internal/platform/logger"
	"health-metrics-api/internal/service/auth"
	"health-metrics-api/internal/store"
)

// UserHandler handles account management for the authenticated user.
type UserHandler struct {
	userStore        store.UserStore
	glucoseStore     store.GlucoseStore
	pressureStore    store.PressureStore
	passwordVerifier auth.PasswordVerifier
	validator        *validator.Validate

	// runTx wraps the purge operation in a database transaction. Injectable
	// so handler tests can run the purge against fakes.
	runTx func(ctx context.Context, fn store.TxFn) error
}

// NewUserHandler creates a new UserHandler with the given dependencies.
// The *sql.DB is needed for the purge operation, which removes the user and
// all their readings in one transaction.
func NewUserHandler(
	db *sql.DB,
	userStore store.UserStore,
	glucoseStore store.GlucoseStore,
	pressureStore store.PressureStore,
	passwordVerifier auth.PasswordVerifier,
) *UserHandler {
	return &UserHandler{
		userStore:        userStore,
		glucoseStore:     glucoseStore,
		pressureStore:    pressureStore,
		passwordVerifier: passwordVerifier,
		validator:        validator.New(),
		runTx: func(ctx context.Context, fn store.TxFn) error {
			return store.RunInTransaction(ctx, db, fn)
		},
	}
}

// GetMe handles GET /api/users/me.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	user, err := h.userStore.GetByID(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, user)
}

// UpdateMe handles PUT /api/users/me. Only the email can change here;
// password changes go through ChangePassword.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	var req UpdateUserRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	user, err := h.userStore.GetByID(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	user.Email = req.Email
	if err := h.userStore.Update(r.Context(), user); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, user)
}

// ChangePassword handles PUT /api/users/me/password. The current password
// must verify before the new one is accepted.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	var req ChangePasswordRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	user, err := h.userStore.GetByID(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.passwordVerifier.Compare(user.HashedPassword, req.CurrentPassword); err != nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if err := domain.ValidatePassword(req.NewPassword); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.userStore.UpdatePassword(r.Context(), userID, req.NewPassword); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusNoContent, nil)
}

// DeactivateMe handles DELETE /api/users/me. This is a soft delete: the
// account can no longer authenticate, but its readings remain.
func (h *UserHandler) DeactivateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	if err := h.userStore.Deactivate(r.Context(), userID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusNoContent, nil)
}

// PurgeMe handles DELETE /api/users/me/purge. The user row and every
// reading they own are removed in a single transaction, so a failure
// partway leaves everything in place.
func (h *UserHandler) PurgeMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	log := logger.FromContextOrDefault(r.Context(), slog.Default())

	err := h.runTx(r.Context(), func(ctx context.Context, tx *sql.Tx) error {
		glucoseRemoved, err := h.glucoseStore.WithTx(tx).DeleteAllForOwner(ctx, userID)
		if err != nil {
			return err
		}

		pressureRemoved, err := h.pressureStore.WithTx(tx).DeleteAllForOwner(ctx, userID)
		if err != nil {
			return err
		}

		if err := h.userStore.WithTx(tx).Delete(ctx, userID); err != nil {
			return err
		}

		log.Info("purged user account",
			slog.Int64("user_id", userID),
			slog.Int64("glucose_readings_removed", glucoseRemoved),
			slog.Int64("pressure_readings_removed", pressureRemoved))
		return nil
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusNoContent, nil)
}
