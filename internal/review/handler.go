package review

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/inkcircle/inkcircle-api/internal/auth"
	"github.com/inkcircle/inkcircle-api/internal/httputil"
	"github.com/inkcircle/inkcircle-api/internal/logging"
	"github.com/inkcircle/inkcircle-api/internal/validate"
)

// Store is the persistence slice the review handlers need
type Store interface {
	Create(ctx context.Context, params CreateParams) (*Review, error)
	ExistsForUserAndBook(ctx context.Context, userID, bookID uuid.UUID) (bool, error)
	ListAll(ctx context.Context) ([]*Review, error)
	ListByBook(ctx context.Context, bookID uuid.UUID) ([]*Review, error)
	Get(ctx context.Context, id uuid.UUID) (*Review, error)
	GetOwned(ctx context.Context, id, ownerID uuid.UUID) (*Review, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// BookChecker answers whether the target book exists. Reviews never attach
// to absent books.
type BookChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Handler contains HTTP handlers for review endpoints
type Handler struct {
	store     Store
	books     BookChecker
	validator *validate.Validator
}

func NewHandler(store Store, books BookChecker, validator *validate.Validator) *Handler {
	return &Handler{store: store, books: books, validator: validator}
}

// CreateRequest represents the review creation body
type CreateRequest struct {
	Rating     int    `json:"rating" validate:"required,gte=1,lte=5"`
	ReviewText string `json:"review_text" validate:"required,max=5000"`
}

// ListAll returns every review across all books
// @Summary      List all reviews
// @Description  Admin-only moderation view of every review
// @Tags         reviews
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} Review
// @Failure      403 {object} httputil.ErrorResponse "Insufficient permissions"
// @Router       /reviews [get]
func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	reviews, err := h.store.ListAll(r.Context())
	if err != nil {
		logger.Error("failed to list reviews", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to list reviews", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, reviews, http.StatusOK)
}

// ListByBook returns the reviews for one book
// @Summary      List a book's reviews
// @Tags         reviews
// @Produce      json
// @Security     BearerAuth
// @Param        bookID path string true "Book ID"
// @Success      200 {array} Review
// @Failure      404 {object} httputil.ErrorResponse "Book not found"
// @Router       /books/{bookID}/reviews [get]
func (h *Handler) ListByBook(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	bookID, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid book id", httputil.CodeValidationError, http.StatusBadRequest)
		return
	}

	exists, err := h.books.Exists(r.Context(), bookID)
	if err != nil {
		logger.Error("failed to check book existence", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to list reviews", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}
	if !exists {
		httputil.RespondErrorWithCode(w, "book not found", httputil.CodeNotFound, http.StatusNotFound)
		return
	}

	reviews, err := h.store.ListByBook(r.Context(), bookID)
	if err != nil {
		logger.Error("failed to list reviews for book", "book_id", bookID, "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to list reviews", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, reviews, http.StatusOK)
}

// Get returns one review
// @Summary      Get a review
// @Tags         reviews
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Review ID"
// @Success      200 {object} Review
// @Failure      404 {object} httputil.ErrorResponse "Review not found"
// @Router       /reviews/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid review id", httputil.CodeValidationError, http.StatusBadRequest)
		return
	}

	rv, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "review not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to get review", "review_id", id, "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to get review", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, rv, http.StatusOK)
}

// Create adds the caller's review to a book
// @Summary      Review a book
// @Description  One review per user per book; a second attempt returns 409
// @Tags         reviews
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        bookID path string true "Book ID"
// @Param        request body CreateRequest true "Review payload"
// @Success      201 {object} Review
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      404 {object} httputil.ErrorResponse "Book not found"
// @Failure      409 {object} httputil.ErrorResponse "Already reviewed"
// @Router       /books/{bookID}/reviews [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	current, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	bookID, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid book id", httputil.CodeValidationError, http.StatusBadRequest)
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid review request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		logger.Warn("review validation failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationError, http.StatusBadRequest)
		return
	}

	exists, err := h.books.Exists(r.Context(), bookID)
	if err != nil {
		logger.Error("failed to check book existence", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to create review", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}
	if !exists {
		httputil.RespondErrorWithCode(w, "book not found", httputil.CodeNotFound, http.StatusNotFound)
		return
	}

	// Fast path for the common duplicate; the unique constraint catches the
	// concurrent case below
	alreadyReviewed, err := h.store.ExistsForUserAndBook(r.Context(), current.ID, bookID)
	if err != nil {
		logger.Error("failed to check existing review", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to create review", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}
	if alreadyReviewed {
		httputil.RespondErrorWithCode(w, "you have already reviewed this book", httputil.CodeConflict, http.StatusConflict)
		return
	}

	created, err := h.store.Create(r.Context(), CreateParams{
		Rating:     req.Rating,
		ReviewText: req.ReviewText,
		UserID:     current.ID,
		BookID:     bookID,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			httputil.RespondErrorWithCode(w, "you have already reviewed this book", httputil.CodeConflict, http.StatusConflict)
			return
		}
		logger.Error("failed to create review", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to create review", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("review created", "review_id", created.ID, "book_id", bookID, "user_id", current.ID)

	httputil.RespondJSON(w, created, http.StatusCreated)
}

// Delete removes the caller's review
// @Summary      Delete a review
// @Description  Only the review's author may delete it
// @Tags         reviews
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Review ID"
// @Success      200 {object} map[string]string
// @Failure      403 {object} httputil.ErrorResponse "Not the author"
// @Failure      404 {object} httputil.ErrorResponse "Review not found"
// @Router       /reviews/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	current, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid review id", httputil.CodeValidationError, http.StatusBadRequest)
		return
	}

	owned, err := h.store.GetOwned(r.Context(), id, current.ID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			httputil.RespondErrorWithCode(w, "review not found", httputil.CodeNotFound, http.StatusNotFound)
		case errors.Is(err, ErrNotOwner):
			httputil.RespondErrorWithCode(w, "you can only delete your own reviews", httputil.CodeForbidden, http.StatusForbidden)
		default:
			logger.Error("failed to load review", "error", err.Error())
			httputil.RespondErrorWithCode(w, "failed to delete review", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	if err := h.store.Delete(r.Context(), owned.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "review not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to delete review", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to delete review", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("review deleted", "review_id", id, "user_id", current.ID)

	httputil.RespondJSON(w, map[string]string{"message": "review deleted"}, http.StatusOK)
}
