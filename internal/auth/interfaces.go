package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Notifier delivers reset tokens to users
type Notifier interface {
	SendPasswordReset(ctx context.Context, to, token string, expiresIn time.Duration) error
}

// ResetTokenStore keeps track of issued, unused reset tokens
type ResetTokenStore interface {
	Store(ctx context.Context, userID uuid.UUID, token string, ttl time.Duration) error
	UserID(ctx context.Context, token string) (uuid.UUID, error)
	Delete(ctx context.Context, token string) error
}

// SessionRevoker ends all login sessions of a user
type SessionRevoker interface {
	RevokeUser(ctx context.Context, userID uuid.UUID) error
}
