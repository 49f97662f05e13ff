package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/inkcircle/inkcircle-api/internal/user"
)

// UserRepository is the slice of user persistence the auth flows and the
// access-control gate need
type UserRepository interface {
	Create(ctx context.Context, params user.CreateParams) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	MarkVerified(ctx context.Context, userID uuid.UUID) error
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
}

// EmailService defines the outbound mail operations the auth flows trigger.
// Implementations dispatch asynchronously; callers never block on delivery.
type EmailService interface {
	SendVerificationEmail(ctx context.Context, toEmail, token string) error
	SendPasswordResetEmail(ctx context.Context, toEmail, token string) error
}

// ConsumedTokenStore tracks single-use action tokens that were already
// redeemed
type ConsumedTokenStore interface {
	MarkConsumed(ctx context.Context, tokenID string, ttl time.Duration) error
	IsConsumed(ctx context.Context, tokenID string) (bool, error)
}
