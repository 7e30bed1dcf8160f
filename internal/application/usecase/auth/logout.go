package auth

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/khoahotran/wellness-api/internal/application/service"
	"github.com/khoahotran/wellness-api/pkg/logger"
)

// LogoutUseCase revokes a token until it would have expired anyway. Without
// a denylist it only acknowledges; the token stays valid until expiry.
type LogoutUseCase struct {
	verify   *VerifyUseCase
	denylist service.TokenDenylist
	logger   logger.Logger
	nowFunc  func() time.Time
}

func NewLogoutUseCase(verify *VerifyUseCase, denylist service.TokenDenylist, log logger.Logger) *LogoutUseCase {
	return &LogoutUseCase{verify: verify, denylist: denylist, logger: log, nowFunc: time.Now}
}

type LogoutOutput struct {
	Revoked bool
}

func (uc *LogoutUseCase) Execute(ctx context.Context, token string) (*LogoutOutput, error) {
	ctx, span := tracer.Start(ctx, "Logout")
	defer span.End()

	v, err := uc.verify.Execute(ctx, token)
	if err != nil {
		return nil, err
	}
	if uc.denylist == nil || v.TokenID == "" {
		return &LogoutOutput{Revoked: false}, nil
	}

	ttl := v.ExpiresAt.Sub(uc.nowFunc())
	if err := uc.denylist.Revoke(ctx, v.TokenID, ttl); err != nil {
		span.RecordError(err)
		return nil, err
	}
	uc.logger.Info("Token revoked", zap.String("user_id", v.UserID.String()))
	return &LogoutOutput{Revoked: true}, nil
}
