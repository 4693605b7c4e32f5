package user

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the credential store.
// Implementations normalise emails and return ErrNotFound / ErrDuplicateEmail.
type Repository interface {
	Create(ctx context.Context, email, passwordHash string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}
