package book

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/inkcircle/inkcircle-api/internal/auth"
	"github.com/inkcircle/inkcircle-api/internal/httputil"
	"github.com/inkcircle/inkcircle-api/internal/logging"
	"github.com/inkcircle/inkcircle-api/internal/review"
	"github.com/inkcircle/inkcircle-api/internal/tag"
	"github.com/inkcircle/inkcircle-api/internal/validate"
)

const dateLayout = "2006-01-02"

// Store is the persistence slice the book handlers need
type Store interface {
	Create(ctx context.Context, params CreateParams) (*Book, error)
	List(ctx context.Context) ([]*Book, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Book, error)
	Get(ctx context.Context, id uuid.UUID) (*Book, error)
	GetOwned(ctx context.Context, id, ownerID uuid.UUID) (*Book, error)
	Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*Book, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ReviewLister provides a book's reviews for the detail view
type ReviewLister interface {
	ListByBook(ctx context.Context, bookID uuid.UUID) ([]*review.Review, error)
}

// TagLister provides a book's tags for the detail view
type TagLister interface {
	ListByBook(ctx context.Context, bookID uuid.UUID) ([]*tag.Tag, error)
}

// Handler contains HTTP handlers for book endpoints
type Handler struct {
	store     Store
	reviews   ReviewLister
	tags      TagLister
	validator *validate.Validator
}

func NewHandler(store Store, reviews ReviewLister, tags TagLister, validator *validate.Validator) *Handler {
	return &Handler{store: store, reviews: reviews, tags: tags, validator: validator}
}

// CreateRequest represents the book creation body
type CreateRequest struct {
	Title         string `json:"title" validate:"required,max=255"`
	Author        string `json:"author" validate:"required,max=255"`
	Publisher     string `json:"publisher" validate:"required,max=255"`
	PublishedDate string `json:"published_date" validate:"required,datetime=2006-01-02"`
	PageCount     int    `json:"page_count" validate:"required,gt=0"`
	Language      string `json:"language" validate:"required,max=50"`
}

// UpdateRequest represents the book update body. Omitted fields are left
// unchanged.
type UpdateRequest struct {
	Title         *string `json:"title" validate:"omitempty,max=255"`
	Author        *string `json:"author" validate:"omitempty,max=255"`
	Publisher     *string `json:"publisher" validate:"omitempty,max=255"`
	PublishedDate *string `json:"published_date" validate:"omitempty,datetime=2006-01-02"`
	PageCount     *int    `json:"page_count" validate:"omitempty,gt=0"`
	Language      *string `json:"language" validate:"omitempty,max=50"`
}

// Detail is a book with its reviews and tags composed in
type Detail struct {
	*Book
	Reviews []*review.Review `json:"reviews"`
	Tags    []*tag.Tag       `json:"tags"`
}

// List returns all books
// @Summary      List books
// @Tags         books
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} Book
// @Router       /books [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	books, err := h.store.List(r.Context())
	if err != nil {
		logger.Error("failed to list books", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to list books", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, books, http.StatusOK)
}

// ListMine returns the caller's books
// @Summary      List my books
// @Tags         books
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} Book
// @Router       /books/mine [get]
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	current, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	books, err := h.store.ListByOwner(r.Context(), current.ID)
	if err != nil {
		logger.Error("failed to list user books", "user_id", current.ID, "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to list books", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, books, http.StatusOK)
}

// ListByUser returns the books owned by the given user
// @Summary      List a user's books
// @Tags         books
// @Produce      json
// @Security     BearerAuth
// @Param        userID path string true "User ID"
// @Success      200 {array} Book
// @Router       /books/user/{userID} [get]
func (h *Handler) ListByUser(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	ownerID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid user id", httputil.CodeValidationError, http.StatusBadRequest)
		return
	}

	books, err := h.store.ListByOwner(r.Context(), ownerID)
	if err != nil {
		logger.Error("failed to list user books", "user_id", ownerID, "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to list books", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, books, http.StatusOK)
}

// Get returns one book with its reviews and tags
// @Summary      Get a book
// @Tags         books
// @Produce      json
// @Security     BearerAuth
// @Param        bookID path string true "Book ID"
// @Success      200 {object} Detail
// @Failure      404 {object} httputil.ErrorResponse "Book not found"
// @Router       /books/{bookID} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid book id", httputil.CodeValidationError, http.StatusBadRequest)
		return
	}

	b, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "book not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to get book", "book_id", id, "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to get book", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	reviews, err := h.reviews.ListByBook(r.Context(), id)
	if err != nil {
		logger.Error("failed to load book reviews", "book_id", id, "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to get book", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	tags, err := h.tags.ListByBook(r.Context(), id)
	if err != nil {
		logger.Error("failed to load book tags", "book_id", id, "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to get book", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, Detail{Book: b, Reviews: reviews, Tags: tags}, http.StatusOK)
}

// Create adds a new book owned by the caller
// @Summary      Create a book
// @Tags         books
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateRequest true "Book payload"
// @Success      201 {object} Book
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Router       /books [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	current, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid book request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		logger.Warn("book validation failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationError, http.StatusBadRequest)
		return
	}

	publishedDate, err := time.Parse(dateLayout, req.PublishedDate)
	if err != nil {
		httputil.RespondErrorWithCode(w, "published_date must be a date in format 2006-01-02", httputil.CodeValidationError, http.StatusBadRequest)
		return
	}

	created, err := h.store.Create(r.Context(), CreateParams{
		Title:         req.Title,
		Author:        req.Author,
		Publisher:     req.Publisher,
		PublishedDate: publishedDate,
		PageCount:     req.PageCount,
		Language:      req.Language,
		UserID:        current.ID,
	})
	if err != nil {
		logger.Error("failed to create book", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to create book", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("book created", "book_id", created.ID, "user_id", current.ID)

	httputil.RespondJSON(w, created, http.StatusCreated)
}

// Update modifies a book owned by the caller
// @Summary      Update a book
// @Description  Only the book's owner may update it; ownership itself never changes
// @Tags         books
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        bookID path string true "Book ID"
// @Param        request body UpdateRequest true "Fields to change"
// @Success      200 {object} Book
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      403 {object} httputil.ErrorResponse "Not the owner"
// @Failure      404 {object} httputil.ErrorResponse "Book not found"
// @Router       /books/{bookID} [patch]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	current, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid book id", httputil.CodeValidationError, http.StatusBadRequest)
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid book update body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		logger.Warn("book update validation failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationError, http.StatusBadRequest)
		return
	}

	owned, err := h.store.GetOwned(r.Context(), id, current.ID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			httputil.RespondErrorWithCode(w, "book not found", httputil.CodeNotFound, http.StatusNotFound)
		case errors.Is(err, ErrNotOwner):
			httputil.RespondErrorWithCode(w, "you can only update your own books", httputil.CodeForbidden, http.StatusForbidden)
		default:
			logger.Error("failed to load book", "error", err.Error())
			httputil.RespondErrorWithCode(w, "failed to update book", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	params := UpdateParams{
		Title:     req.Title,
		Author:    req.Author,
		Publisher: req.Publisher,
		PageCount: req.PageCount,
		Language:  req.Language,
	}
	if req.PublishedDate != nil {
		publishedDate, err := time.Parse(dateLayout, *req.PublishedDate)
		if err != nil {
			httputil.RespondErrorWithCode(w, "published_date must be a date in format 2006-01-02", httputil.CodeValidationError, http.StatusBadRequest)
			return
		}
		params.PublishedDate = &publishedDate
	}

	updated, err := h.store.Update(r.Context(), owned.ID, params)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "book not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to update book", "book_id", id, "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to update book", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("book updated", "book_id", id, "user_id", current.ID)

	httputil.RespondJSON(w, updated, http.StatusOK)
}

// Delete removes a book owned by the caller
// @Summary      Delete a book
// @Description  Only the book's owner may delete it; reviews and tag links go with it
// @Tags         books
// @Produce      json
// @Security     BearerAuth
// @Param        bookID path string true "Book ID"
// @Success      200 {object} map[string]string
// @Failure      403 {object} httputil.ErrorResponse "Not the owner"
// @Failure      404 {object} httputil.ErrorResponse "Book not found"
// @Router       /books/{bookID} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	current, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid book id", httputil.CodeValidationError, http.StatusBadRequest)
		return
	}

	owned, err := h.store.GetOwned(r.Context(), id, current.ID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			httputil.RespondErrorWithCode(w, "book not found", httputil.CodeNotFound, http.StatusNotFound)
		case errors.Is(err, ErrNotOwner):
			httputil.RespondErrorWithCode(w, "you can only delete your own books", httputil.CodeForbidden, http.StatusForbidden)
		default:
			logger.Error("failed to load book", "error", err.Error())
			httputil.RespondErrorWithCode(w, "failed to delete book", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	if err := h.store.Delete(r.Context(), owned.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "book not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to delete book", "book_id", id, "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to delete book", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("book deleted", "book_id", id, "user_id", current.ID)

	httputil.RespondJSON(w, map[string]string{"message": "book deleted"}, http.StatusOK)
}
