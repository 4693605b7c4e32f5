package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrPasswordResetTokenNotFound = errors.New("password reset token not found")

// PasswordResetRepository tracks outstanding reset tokens in Redis.
// Only the token's SHA-256 digest is used as key.
type PasswordResetRepository struct {
	client *redis.Client
}

// NewPasswordResetRepository creates a new password reset repository instance
func NewPasswordResetRepository(client *redis.Client) *PasswordResetRepository {
	return &PasswordResetRepository{
		client: client,
	}
}

// Store records the token for the user until ttl elapses
func (r *PasswordResetRepository) Store(ctx context.Context, userID uuid.UUID, token string, ttl time.Duration) error {
	key := passwordResetKey(token)

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]any{
		"user_id":    userID.String(),
		"created_at": time.Now().Unix(),
	})
	pipe.Expire(ctx, key, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store password reset token: %w", err)
	}
	return nil
}

// UserID returns the user a stored token was issued for
func (r *PasswordResetRepository) UserID(ctx context.Context, token string) (uuid.UUID, error) {
	userIDStr, err := r.client.HGet(ctx, passwordResetKey(token), "user_id").Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, ErrPasswordResetTokenNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to get password reset token: %w", err)
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to parse user ID: %w", err)
	}

	return userID, nil
}

// Delete removes a used password reset token
func (r *PasswordResetRepository) Delete(ctx context.Context, token string) error {
	if err := r.client.Del(ctx, passwordResetKey(token)).Err(); err != nil {
		return fmt.Errorf("failed to delete password reset token: %w", err)
	}
	return nil
}

func passwordResetKey(token string) string {
	return fmt.Sprintf("password_reset:%s", hashToken(token))
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
