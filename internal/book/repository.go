package book

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/inkcircle/inkcircle-api/internal/database"
)

var (
	ErrNotFound = errors.New("book not found")
	ErrNotOwner = errors.New("book belongs to another user")
)

// CreateParams carries the fields needed to insert a new book
type CreateParams struct {
	Title         string
	Author        string
	Publisher     string
	PublishedDate time.Time
	PageCount     int
	Language      string
	UserID        uuid.UUID
}

// UpdateParams carries the mutable book fields. Nil means leave the field
// unchanged. The owner is not among them.
type UpdateParams struct {
	Title         *string
	Author        *string
	Publisher     *string
	PublishedDate *time.Time
	PageCount     *int
	Language      *string
}

// Repository handles book data persistence
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new book owned by the given user
func (r *Repository) Create(ctx context.Context, params CreateParams) (*Book, error) {
	dbBook := &database.Book{
		Title:         params.Title,
		Author:        params.Author,
		Publisher:     params.Publisher,
		PublishedDate: params.PublishedDate,
		PageCount:     params.PageCount,
		Language:      params.Language,
		UserID:        params.UserID,
	}

	_, err := r.db.NewInsert().
		Model(dbBook).
		Returning("*").
		Exec(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to create book: %w", err)
	}

	return mapDBBookToModel(dbBook), nil
}

// List returns all books with the owner relation populated, newest first
func (r *Repository) List(ctx context.Context) ([]*Book, error) {
	var dbBooks []*database.Book
	err := r.db.NewSelect().
		Model(&dbBooks).
		Relation("User").
		Order("b.created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}

	return mapDBBooksToModels(dbBooks), nil
}

// ListByOwner returns the books owned by one user, newest first
func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Book, error) {
	var dbBooks []*database.Book
	err := r.db.NewSelect().
		Model(&dbBooks).
		Where("b.user_id = ?", ownerID).
		Order("b.created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to list books by owner: %w", err)
	}

	return mapDBBooksToModels(dbBooks), nil
}

// Get retrieves a book by ID with the owner relation populated
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Book, error) {
	dbBook := new(database.Book)
	err := r.db.NewSelect().
		Model(dbBook).
		Relation("User").
		Where("b.id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get book: %w", err)
	}

	return mapDBBookToModel(dbBook), nil
}

// Exists reports whether a book with this ID exists
func (r *Repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*database.Book)(nil)).
		Where("id = ?", id).
		Exists(ctx)

	if err != nil {
		return false, fmt.Errorf("failed to check book existence: %w", err)
	}

	return exists, nil
}

// GetOwned loads a book for a mutation by its owner. An absent book is
// ErrNotFound; a book owned by someone else is ErrNotOwner. The two cases
// stay distinct all the way to the HTTP layer.
func (r *Repository) GetOwned(ctx context.Context, id, ownerID uuid.UUID) (*Book, error) {
	dbBook := new(database.Book)
	err := r.db.NewSelect().
		Model(dbBook).
		Where("b.id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get book: %w", err)
	}

	if dbBook.UserID != ownerID {
		return nil, ErrNotOwner
	}

	return mapDBBookToModel(dbBook), nil
}

// Update applies the provided changes and returns the updated record. The
// caller must have established ownership first.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*Book, error) {
	q := r.db.NewUpdate().
		Model((*database.Book)(nil)).
		Set("updated_at = NOW()").
		Where("id = ?", id)

	if params.Title != nil {
		q = q.Set("title = ?", *params.Title)
	}
	if params.Author != nil {
		q = q.Set("author = ?", *params.Author)
	}
	if params.Publisher != nil {
		q = q.Set("publisher = ?", *params.Publisher)
	}
	if params.PublishedDate != nil {
		q = q.Set("published_date = ?", *params.PublishedDate)
	}
	if params.PageCount != nil {
		q = q.Set("page_count = ?", *params.PageCount)
	}
	if params.Language != nil {
		q = q.Set("language = ?", *params.Language)
	}

	result, err := q.Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update book: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrNotFound
	}

	return r.Get(ctx, id)
}

// Delete removes a book by ID. The caller must have established ownership
// first. Associated reviews and tag links are removed with it.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.NewDelete().
		Model((*database.Book)(nil)).
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	if _, err := r.db.NewDelete().
		Model((*database.Review)(nil)).
		Where("book_id = ?", id).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete book reviews: %w", err)
	}

	if _, err := r.db.NewDelete().
		Model((*database.BookTag)(nil)).
		Where("book_id = ?", id).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete book tag associations: %w", err)
	}

	return nil
}

func mapDBBookToModel(dbb *database.Book) *Book {
	m := &Book{
		ID:            dbb.ID,
		Title:         dbb.Title,
		Author:        dbb.Author,
		Publisher:     dbb.Publisher,
		PublishedDate: dbb.PublishedDate,
		PageCount:     dbb.PageCount,
		Language:      dbb.Language,
		UserID:        dbb.UserID,
		CreatedAt:     dbb.CreatedAt,
		UpdatedAt:     dbb.UpdatedAt,
	}
	if dbb.User != nil {
		m.Owner = &Owner{
			ID:       dbb.User.ID,
			Username: dbb.User.Username,
		}
	}
	return m
}

func mapDBBooksToModels(dbBooks []*database.Book) []*Book {
	books := make([]*Book, 0, len(dbBooks))
	for _, dbb := range dbBooks {
		books = append(books, mapDBBookToModel(dbb))
	}
	return books
}
