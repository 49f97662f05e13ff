package user

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
	ErrNotFound          = errors.New("user not found")
	ErrDuplicateEmail    = errors.New("email already exists")
	ErrDuplicateUsername = errors.New("username already exists")
)

// CreateParams carries the fields needed to insert a new user. New accounts
// always start unverified with the user role.
type CreateParams struct {
	FirstName    string
	LastName     string
	Username     string
	Email        string
	PasswordHash string
}

// UpdateProfileParams carries the mutable profile fields. Nil means leave
// the field unchanged.
type UpdateProfileParams struct {
	FirstName *string
	LastName  *string
	Username  *string
}

// Repository handles user data persistence
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user. The unique indexes on email and username are
// the authority on duplicates; their violations map to sentinel errors.
func (r *Repository) Create(ctx context.Context, params CreateParams) (*User, error) {
	dbUser := &database.User{
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		Username:     params.Username,
		Email:        params.Email,
		PasswordHash: params.PasswordHash,
		Role:         string(RoleUser),
		IsVerified:   false,
	}

	_, err := r.db.NewInsert().
		Model(dbUser).
		Returning("*").
		Exec(ctx)

	if err != nil {
		if dupErr := mapDuplicateKeyError(err); dupErr != nil {
			return nil, dupErr
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByEmail retrieves a user by email
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("email = ?", email).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByID retrieves a user by ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// MarkVerified sets the verification flag for a user
func (r *Repository) MarkVerified(ctx context.Context, userID uuid.UUID) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("is_verified = ?", true).
		Set("updated_at = NOW()").
		Where("id = ?", userID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to mark user as verified: %w", err)
	}

	return requireRowsAffected(result)
}

// UpdatePassword updates a user's password hash
func (r *Repository) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("password_hash = ?", passwordHash).
		Set("updated_at = NOW()").
		Where("id = ?", userID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return requireRowsAffected(result)
}

// UpdateProfile applies the provided profile changes and returns the
// updated record
func (r *Repository) UpdateProfile(ctx context.Context, userID uuid.UUID, params UpdateProfileParams) (*User, error) {
	q := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("updated_at = NOW()").
		Where("id = ?", userID)

	if params.FirstName != nil {
		q = q.Set("first_name = ?", *params.FirstName)
	}
	if params.LastName != nil {
		q = q.Set("last_name = ?", *params.LastName)
	}
	if params.Username != nil {
		q = q.Set("username = ?", *params.Username)
	}

	result, err := q.Exec(ctx)
	if err != nil {
		if dupErr := mapDuplicateKeyError(err); dupErr != nil {
			return nil, dupErr
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	if err := requireRowsAffected(result); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, userID)
}

func requireRowsAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func mapDuplicateKeyError(err error) error {
	msg := err.Error()
	if !strings.Contains(msg, "duplicate key value violates unique constraint") {
		return nil
	}
	if strings.Contains(msg, "username") {
		return ErrDuplicateUsername
	}
	return ErrDuplicateEmail
}

// mapDBUserToModel converts the persistence model to the domain model
func mapDBUserToModel(dbu *database.User) *User {
	return &User{
		ID:           dbu.ID,
		FirstName:    dbu.FirstName,
		LastName:     dbu.LastName,
		Username:     dbu.Username,
		Email:        dbu.Email,
		PasswordHash: dbu.PasswordHash,
		Role:         Role(dbu.Role),
		IsVerified:   dbu.IsVerified,
		CreatedAt:    dbu.CreatedAt,
		UpdatedAt:    dbu.UpdatedAt,
	}
}
