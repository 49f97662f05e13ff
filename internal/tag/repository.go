package tag

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
	ErrNotFound      = errors.New("tag not found")
	ErrDuplicateName = errors.New("tag name already exists")
)

// Repository handles tag data persistence
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// List returns all tags ordered by name
func (r *Repository) List(ctx context.Context) ([]*Tag, error) {
	var dbTags []*database.Tag
	err := r.db.NewSelect().
		Model(&dbTags).
		Order("name ASC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}

	return mapDBTagsToModels(dbTags), nil
}

// Get retrieves a tag by ID
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Tag, error) {
	dbTag := new(database.Tag)
	err := r.db.NewSelect().
		Model(dbTag).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}

	return mapDBTagToModel(dbTag), nil
}

// Create inserts a new tag. The unique index on name is the authority on
// duplicates.
func (r *Repository) Create(ctx context.Context, name string) (*Tag, error) {
	dbTag := &database.Tag{Name: name}

	_, err := r.db.NewInsert().
		Model(dbTag).
		Returning("*").
		Exec(ctx)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}

	return mapDBTagToModel(dbTag), nil
}

// Delete removes a tag and all of its book associations. The tag row goes
// first; if the association cleanup is interrupted the leftover rows are
// harmless and are not repaired automatically.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.NewDelete().
		Model((*database.Tag)(nil)).
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	if _, err := r.db.NewDelete().
		Model((*database.BookTag)(nil)).
		Where("tag_id = ?", id).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete tag associations: %w", err)
	}

	return nil
}

// ApplyToBook attaches tags to a book by name, creating missing tags on the
// way. Re-applying an already attached tag is a no-op; the unique index on
// (book_id, tag_id) backs the idempotence.
func (r *Repository) ApplyToBook(ctx context.Context, bookID uuid.UUID, names []string) ([]*Tag, error) {
	applied := make([]*Tag, 0, len(names))

	for _, name := range names {
		t, err := r.findOrCreate(ctx, name)
		if err != nil {
			return nil, err
		}

		_, err = r.db.NewInsert().
			Model(&database.BookTag{BookID: bookID, TagID: t.ID}).
			On("CONFLICT DO NOTHING").
			Exec(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to attach tag %q: %w", name, err)
		}

		applied = append(applied, t)
	}

	return applied, nil
}

// ListByBook returns the tags attached to a book
func (r *Repository) ListByBook(ctx context.Context, bookID uuid.UUID) ([]*Tag, error) {
	var dbBookTags []*database.BookTag
	err := r.db.NewSelect().
		Model(&dbBookTags).
		Relation("Tag").
		Where("bt.book_id = ?", bookID).
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to list tags for book: %w", err)
	}

	tags := make([]*Tag, 0, len(dbBookTags))
	for _, bt := range dbBookTags {
		if bt.Tag != nil {
			tags = append(tags, mapDBTagToModel(bt.Tag))
		}
	}
	return tags, nil
}

func (r *Repository) findOrCreate(ctx context.Context, name string) (*Tag, error) {
	dbTag := new(database.Tag)
	err := r.db.NewSelect().
		Model(dbTag).
		Where("name = ?", name).
		Scan(ctx)

	if err == nil {
		return mapDBTagToModel(dbTag), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to look up tag %q: %w", name, err)
	}

	created, err := r.Create(ctx, name)
	if err == nil {
		return created, nil
	}
	if errors.Is(err, ErrDuplicateName) {
		// Lost the race; the tag exists now
		dbTag = new(database.Tag)
		if err := r.db.NewSelect().
			Model(dbTag).
			Where("name = ?", name).
			Scan(ctx); err != nil {
			return nil, fmt.Errorf("failed to re-read tag %q: %w", name, err)
		}
		return mapDBTagToModel(dbTag), nil
	}
	return nil, err
}

func mapDBTagToModel(dbt *database.Tag) *Tag {
	return &Tag{
		ID:        dbt.ID,
		Name:      dbt.Name,
		CreatedAt: dbt.CreatedAt,
		UpdatedAt: dbt.UpdatedAt,
	}
}

func mapDBTagsToModels(dbTags []*database.Tag) []*Tag {
	tags := make([]*Tag, 0, len(dbTags))
	for _, dbt := range dbTags {
		tags = append(tags, mapDBTagToModel(dbt))
	}
	return tags
}
