package user

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	ProfilePhoto *string   `json:"profilePhoto"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// View is the part of a user that may leave the service.
type View struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	ProfilePhoto *string   `json:"profilePhoto"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u *User) View() *View {
	return &View{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		ProfilePhoto: u.ProfilePhoto,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// ProfileChanges lists the mutable fields of an update. Nil fields are left
// untouched.
type ProfileChanges struct {
	Name         *string
	ProfilePhoto *string
}

func (c ProfileChanges) IsEmpty() bool {
	return c.Name == nil && c.ProfilePhoto == nil
}

// NormalizeEmail is the canonical form used for storage and lookups, which
// makes uniqueness case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Repository is implemented by every user store. Create must rely on the
// store's own uniqueness guarantee and return an apperror.ErrConflict when
// the email is taken; lookups return apperror.ErrNotFound.
type Repository interface {
	Create(ctx context.Context, u *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	// UpdateProfile applies all changes in one single-record write and
	// returns the record as stored afterwards.
	UpdateProfile(ctx context.Context, id uuid.UUID, changes ProfileChanges) (*User, error)
	Count(ctx context.Context) (int64, error)
}
