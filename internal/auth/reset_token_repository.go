package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResetTokenRepository marks consumed password-reset tokens in Redis so a
// reset link cannot be replayed within its validity window. The marker TTL
// matches the token TTL; after that the token is dead on its own expiry.
type ResetTokenRepository struct {
	client *redis.Client
}

func NewResetTokenRepository(client *redis.Client) *ResetTokenRepository {
	return &ResetTokenRepository{client: client}
}

func consumedKey(tokenID string) string {
	return fmt.Sprintf("password_reset:consumed:%s", tokenID)
}

// MarkConsumed records that the token with the given jti has been used
func (r *ResetTokenRepository) MarkConsumed(ctx context.Context, tokenID string, ttl time.Duration) error {
	if err := r.client.Set(ctx, consumedKey(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to mark reset token consumed: %w", err)
	}
	return nil
}

// IsConsumed reports whether the token with the given jti was already used
func (r *ResetTokenRepository) IsConsumed(ctx context.Context, tokenID string) (bool, error) {
	exists, err := r.client.Exists(ctx, consumedKey(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check reset token: %w", err)
	}
	return exists > 0, nil
}
