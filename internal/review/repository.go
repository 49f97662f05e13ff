package review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/inkcircle/inkcircle-api/internal/database"
)

var (
	ErrNotFound  = errors.New("review not found")
	ErrNotOwner  = errors.New("review belongs to another user")
	ErrDuplicate = errors.New("user has already reviewed this book")
)

// CreateParams carries the fields needed to insert a new review
type CreateParams struct {
	Rating     int
	ReviewText string
	UserID     uuid.UUID
	BookID     uuid.UUID
}

// Repository handles review data persistence
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new review. The composite unique index on
// (user_id, book_id) is the authority on duplicates; ExistsForUserAndBook
// is only a fast path and a concurrent insert still maps to ErrDuplicate
// here.
func (r *Repository) Create(ctx context.Context, params CreateParams) (*Review, error) {
	dbReview := &database.Review{
		Rating:     params.Rating,
		ReviewText: params.ReviewText,
		UserID:     params.UserID,
		BookID:     params.BookID,
	}

	_, err := r.db.NewInsert().
		Model(dbReview).
		Returning("*").
		Exec(ctx)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	return mapDBReviewToModel(dbReview), nil
}

// ExistsForUserAndBook reports whether the user already reviewed the book
func (r *Repository) ExistsForUserAndBook(ctx context.Context, userID, bookID uuid.UUID) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*database.Review)(nil)).
		Where("user_id = ?", userID).
		Where("book_id = ?", bookID).
		Exists(ctx)

	if err != nil {
		return false, fmt.Errorf("failed to check existing review: %w", err)
	}

	return exists, nil
}

// ListAll returns every review with the reviewer relation populated,
// newest first
func (r *Repository) ListAll(ctx context.Context) ([]*Review, error) {
	var dbReviews []*database.Review
	err := r.db.NewSelect().
		Model(&dbReviews).
		Relation("User").
		Order("r.created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}

	return mapDBReviewsToModels(dbReviews), nil
}

// ListByBook returns a book's reviews, newest first
func (r *Repository) ListByBook(ctx context.Context, bookID uuid.UUID) ([]*Review, error) {
	var dbReviews []*database.Review
	err := r.db.NewSelect().
		Model(&dbReviews).
		Relation("User").
		Where("r.book_id = ?", bookID).
		Order("r.created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to list reviews for book: %w", err)
	}

	return mapDBReviewsToModels(dbReviews), nil
}

// Get retrieves a review by ID with the reviewer relation populated
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Review, error) {
	dbReview := new(database.Review)
	err := r.db.NewSelect().
		Model(dbReview).
		Relation("User").
		Where("r.id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}

	return mapDBReviewToModel(dbReview), nil
}

// GetOwned loads a review for a mutation by its owner. An absent review is
// ErrNotFound; a review owned by someone else is ErrNotOwner. The two cases
// stay distinct all the way to the HTTP layer.
func (r *Repository) GetOwned(ctx context.Context, id, ownerID uuid.UUID) (*Review, error) {
	dbReview := new(database.Review)
	err := r.db.NewSelect().
		Model(dbReview).
		Where("r.id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}

	if dbReview.UserID != ownerID {
		return nil, ErrNotOwner
	}

	return mapDBReviewToModel(dbReview), nil
}

// Delete removes a review by ID
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.NewDelete().
		Model((*database.Review)(nil)).
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func mapDBReviewToModel(dbr *database.Review) *Review {
	m := &Review{
		ID:         dbr.ID,
		Rating:     dbr.Rating,
		ReviewText: dbr.ReviewText,
		UserID:     dbr.UserID,
		BookID:     dbr.BookID,
		CreatedAt:  dbr.CreatedAt,
		UpdatedAt:  dbr.UpdatedAt,
	}
	if dbr.User != nil {
		m.Reviewer = &Reviewer{
			ID:       dbr.User.ID,
			Username: dbr.User.Username,
		}
	}
	return m
}

func mapDBReviewsToModels(dbReviews []*database.Review) []*Review {
	reviews := make([]*Review, 0, len(dbReviews))
	for _, dbr := range dbReviews {
		reviews = append(reviews, mapDBReviewToModel(dbr))
	}
	return reviews
}
