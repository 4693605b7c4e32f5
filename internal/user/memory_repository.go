package user

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps users in process memory. Used for local runs and tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*User
	byEmail map[string]uuid.UUID
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[uuid.UUID]*User),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (r *MemoryRepository) Create(_ context.Context, email, passwordHash string) (*User, error) {
	email = NormalizeEmail(email)
	now := time.Now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[email]; ok {
		return nil, ErrDuplicateEmail
	}

	u := &User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.byID[u.ID] = u
	r.byEmail[email] = u.ID

	cp := *u
	return &cp, nil
}

func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r.byID[id]
	return &cp, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *MemoryRepository) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now().UTC()
	return nil
}

var _ Repository = (*MemoryRepository)(nil)
