package http

import (
	"github.com/google/uuid"

	"github.com/khoahotran/wellness-api/internal/domain/user"
)

// Auth DTOs
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Profile DTOs
type ProfileDTO struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	ProfilePhoto *string   `json:"profilePhoto"`
}

type UpdateProfileRequest struct {
	Name *string `json:"name"`
}

type UpdateProfileResponse struct {
	Msg          string  `json:"msg"`
	Name         string  `json:"name"`
	ProfilePhoto *string `json:"profilePhoto"`
}

func ToProfileDTO(v *user.View) ProfileDTO {
	return ProfileDTO{
		ID:           v.ID,
		Name:         v.Name,
		Email:        v.Email,
		ProfilePhoto: v.ProfilePhoto,
	}
}
