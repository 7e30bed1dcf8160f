package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/khoahotran/wellness-api/pkg/apperror"
	"github.com/khoahotran/wellness-api/pkg/auth"
)

// VerifyUseCase checks a session token without touching any store.
type VerifyUseCase struct {
	jwtSvc *auth.JWTService
}

func NewVerifyUseCase(jwtSvc *auth.JWTService) *VerifyUseCase {
	return &VerifyUseCase{jwtSvc: jwtSvc}
}

type VerifyOutput struct {
	UserID    uuid.UUID
	TokenID   string
	ExpiresAt time.Time
}

func (uc *VerifyUseCase) Execute(ctx context.Context, token string) (*VerifyOutput, error) {
	_, span := tracer.Start(ctx, "Verify")
	defer span.End()

	if token == "" {
		return nil, apperror.NewUnauthenticated("No token, authorization denied", nil)
	}

	claims, err := uc.jwtSvc.ValidateToken(token)
	if err != nil {
		msg := "Token is not valid"
		if errors.Is(err, auth.ErrTokenExpired) {
			msg = "Token has expired"
		}
		err = apperror.NewUnauthenticated(msg, err)
		span.RecordError(err)
		return nil, err
	}

	out := &VerifyOutput{UserID: claims.UserID, TokenID: claims.ID}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
