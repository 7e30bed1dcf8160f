package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/khoahotran/wellness-api/internal/domain/user"
	"github.com/khoahotran/wellness-api/pkg/apperror"
)

// memoryUserRepo keeps users in process memory. It backs memory:// DSNs for
// local runs and the use case tests.
type memoryUserRepo struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*user.User
	byEmail map[string]uuid.UUID
	nowFunc func() time.Time
}

func NewMemoryUserRepo() user.Repository {
	return &memoryUserRepo{
		byID:    make(map[uuid.UUID]*user.User),
		byEmail: make(map[string]uuid.UUID),
		nowFunc: func() time.Time { return time.Now().UTC() },
	}
}

func (r *memoryUserRepo) Create(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := user.NormalizeEmail(u.Email)
	if _, taken := r.byEmail[email]; taken {
		return apperror.NewConflict("user", "email", email)
	}
	if _, taken := r.byID[u.ID]; taken {
		return apperror.NewConflict("user", "id", u.ID.String())
	}

	now := r.nowFunc()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	u.Email = email

	r.byID[u.ID] = clone(u)
	r.byEmail[email] = u.ID
	return nil
}

func (r *memoryUserRepo) FindByEmail(_ context.Context, email string) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[user.NormalizeEmail(email)]
	if !ok {
		return nil, apperror.NewNotFound("user", email)
	}
	return clone(r.byID[id]), nil
}

func (r *memoryUserRepo) FindByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, apperror.NewNotFound("user", id.String())
	}
	return clone(u), nil
}

func (r *memoryUserRepo) UpdateProfile(_ context.Context, id uuid.UUID, changes user.ProfileChanges) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, apperror.NewNotFound("user", id.String())
	}
	if changes.IsEmpty() {
		return clone(u), nil
	}
	if changes.Name != nil {
		u.Name = *changes.Name
	}
	if changes.ProfilePhoto != nil {
		photo := *changes.ProfilePhoto
		u.ProfilePhoto = &photo
	}
	u.UpdatedAt = r.nowFunc()
	return clone(u), nil
}

func (r *memoryUserRepo) Count(context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.byID)), nil
}

func clone(u *user.User) *user.User {
	c := *u
	if u.ProfilePhoto != nil {
		photo := *u.ProfilePhoto
		c.ProfilePhoto = &photo
	}
	return &c
}
