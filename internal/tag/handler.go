package tag

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/inkcircle/inkcircle-api/internal/httputil"
	"github.com/inkcircle/inkcircle-api/internal/logging"
	"github.com/inkcircle/inkcircle-api/internal/validate"
)

// Store is the persistence slice the tag handlers need
type Store interface {
	List(ctx context.Context) ([]*Tag, error)
	Get(ctx context.Context, id uuid.UUID) (*Tag, error)
	Create(ctx context.Context, name string) (*Tag, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ApplyToBook(ctx context.Context, bookID uuid.UUID, names []string) ([]*Tag, error)
	ListByBook(ctx context.Context, bookID uuid.UUID) ([]*Tag, error)
}

// BookChecker answers whether the target book exists
type BookChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Handler contains HTTP handlers for tag endpoints
type Handler struct {
	store     Store
	books     BookChecker
	validator *validate.Validator
}

func NewHandler(store Store, books BookChecker, validator *validate.Validator) *Handler {
	return &Handler{store: store, books: books, validator: validator}
}

// CreateRequest represents the tag creation body
type CreateRequest struct {
	Name string `json:"name" validate:"required,min=1,max=50"`
}

// ApplyRequest represents the apply-tags-to-book body
type ApplyRequest struct {
	Tags []string `json:"tags" validate:"required,min=1,max=20,dive,required,min=1,max=50"`
}

// List returns all tags
// @Summary      List tags
// @Tags         tags
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} Tag
// @Router       /tags [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	tags, err := h.store.List(r.Context())
	if err != nil {
		logger.Error("failed to list tags", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to list tags", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, tags, http.StatusOK)
}

// Create adds a new tag
// @Summary      Create a tag
// @Tags         tags
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateRequest true "Tag name"
// @Success      201 {object} Tag
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      409 {object} httputil.ErrorResponse "Tag name already exists"
// @Router       /tags [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid tag request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	req.Name = strings.TrimSpace(req.Name)

	if err := h.validator.Struct(req); err != nil {
		logger.Warn("tag validation failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationError, http.StatusBadRequest)
		return
	}

	created, err := h.store.Create(r.Context(), req.Name)
	if err != nil {
		if errors.Is(err, ErrDuplicateName) {
			httputil.RespondErrorWithCode(w, "tag name already exists", httputil.CodeConflict, http.StatusConflict)
			return
		}
		logger.Error("failed to create tag", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to create tag", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("tag created", "tag_id", created.ID, "name", created.Name)

	httputil.RespondJSON(w, created, http.StatusCreated)
}

// Delete removes a tag and its associations
// @Summary      Delete a tag
// @Description  Deleting a tag detaches it from every book
// @Tags         tags
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Tag ID"
// @Success      200 {object} map[string]string
// @Failure      404 {object} httputil.ErrorResponse "Tag not found"
// @Router       /tags/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid tag id", httputil.CodeValidationError, http.StatusBadRequest)
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "tag not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to delete tag", "tag_id", id, "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to delete tag", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("tag deleted", "tag_id", id)

	httputil.RespondJSON(w, map[string]string{"message": "tag deleted"}, http.StatusOK)
}

// ApplyToBook attaches tags to a book, creating missing ones
// @Summary      Tag a book
// @Description  Attach tags by name; unknown names are created, already attached names are no-ops
// @Tags         tags
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        bookID path string true "Book ID"
// @Param        request body ApplyRequest true "Tag names"
// @Success      200 {array} Tag
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      404 {object} httputil.ErrorResponse "Book not found"
// @Router       /books/{bookID}/tags [post]
func (h *Handler) ApplyToBook(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	bookID, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid book id", httputil.CodeValidationError, http.StatusBadRequest)
		return
	}

	var req ApplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid apply tags body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	for i := range req.Tags {
		req.Tags[i] = strings.TrimSpace(req.Tags[i])
	}

	if err := h.validator.Struct(req); err != nil {
		logger.Warn("apply tags validation failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationError, http.StatusBadRequest)
		return
	}

	exists, err := h.books.Exists(r.Context(), bookID)
	if err != nil {
		logger.Error("failed to check book existence", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to apply tags", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}
	if !exists {
		httputil.RespondErrorWithCode(w, "book not found", httputil.CodeNotFound, http.StatusNotFound)
		return
	}

	applied, err := h.store.ApplyToBook(r.Context(), bookID, req.Tags)
	if err != nil {
		logger.Error("failed to apply tags", "book_id", bookID, "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to apply tags", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("tags applied to book", "book_id", bookID, "count", len(applied))

	httputil.RespondJSON(w, applied, http.StatusOK)
}

// ListByBook returns the tags attached to one book
// @Summary      List a book's tags
// @Tags         tags
// @Produce      json
// @Security     BearerAuth
// @Param        bookID path string true "Book ID"
// @Success      200 {array} Tag
// @Failure      404 {object} httputil.ErrorResponse "Book not found"
// @Router       /books/{bookID}/tags [get]
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
		httputil.RespondErrorWithCode(w, "failed to list tags", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}
	if !exists {
		httputil.RespondErrorWithCode(w, "book not found", httputil.CodeNotFound, http.StatusNotFound)
		return
	}

	tags, err := h.store.ListByBook(r.Context(), bookID)
	if err != nil {
		logger.Error("failed to list tags for book", "book_id", bookID, "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to list tags", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, tags, http.StatusOK)
}
