package user

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/inkcircle/inkcircle-api/internal/httputil"
	"github.com/inkcircle/inkcircle-api/internal/logging"
	"github.com/inkcircle/inkcircle-api/internal/validate"
)

// CurrentUserProvider resolves the authenticated user from the request
// context. Implemented by the auth middleware package.
type CurrentUserProvider func(ctx context.Context) (*User, bool)

// ProfileStore is the persistence slice the profile handlers need
type ProfileStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, params UpdateProfileParams) (*User, error)
}

// Handler contains HTTP handlers for the current-user profile endpoints
type Handler struct {
	store       ProfileStore
	currentUser CurrentUserProvider
	validator   *validate.Validator
}

func NewHandler(store ProfileStore, currentUser CurrentUserProvider, validator *validate.Validator) *Handler {
	return &Handler{store: store, currentUser: currentUser, validator: validator}
}

// UpdateProfileRequest represents the profile update body. Omitted fields
// are left unchanged.
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=50"`
	LastName  *string `json:"last_name" validate:"omitempty,max=50"`
	Username  *string `json:"username" validate:"omitempty,min=3,max=30,alphanum"`
}

// Me returns the authenticated user's profile
// @Summary      Get current user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} User
// @Failure      401 {object} httputil.ErrorResponse
// @Router       /users/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	current, ok := h.currentUser(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	httputil.RespondJSON(w, current, http.StatusOK)
}

// UpdateMe updates the authenticated user's profile
// @Summary      Update current user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body UpdateProfileRequest true "Fields to change"
// @Success      200 {object} User
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      401 {object} httputil.ErrorResponse
// @Failure      409 {object} httputil.ErrorResponse "Username already taken"
// @Router       /users/me [patch]
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	current, ok := h.currentUser(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid profile update body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		logger.Warn("profile update validation failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationError, http.StatusBadRequest)
		return
	}

	if req.FirstName == nil && req.LastName == nil && req.Username == nil {
		httputil.RespondJSON(w, current, http.StatusOK)
		return
	}

	updated, err := h.store.UpdateProfile(r.Context(), current.ID, UpdateProfileParams{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  req.Username,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateUsername):
			logger.Warn("profile update failed: username taken", "user_id", current.ID)
			httputil.RespondErrorWithCode(w, "username already exists", httputil.CodeConflict, http.StatusConflict)
		case errors.Is(err, ErrNotFound):
			httputil.RespondErrorWithCode(w, "user not found", httputil.CodeNotFound, http.StatusNotFound)
		default:
			logger.Error("profile update failed: internal error", "error", err.Error())
			httputil.RespondErrorWithCode(w, "failed to update profile", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("profile updated", "user_id", current.ID)

	httputil.RespondJSON(w, updated, http.StatusOK)
}
