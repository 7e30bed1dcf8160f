package media

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/khoahotran/wellness-api/adapters/event"
	"github.com/khoahotran/wellness-api/internal/application/service"
	"github.com/khoahotran/wellness-api/internal/domain/media"
	"github.com/khoahotran/wellness-api/internal/domain/user"
	"github.com/khoahotran/wellness-api/pkg/apperror"
	"github.com/khoahotran/wellness-api/pkg/logger"
)

// CleanupPhotoUseCase removes a profile photo once a newer one replaced it.
type CleanupPhotoUseCase struct {
	storage  service.PhotoStorage
	userRepo user.Repository
	logger   logger.Logger
}

func NewCleanupPhotoUseCase(storage service.PhotoStorage, repo user.Repository, log logger.Logger) *CleanupPhotoUseCase {
	return &CleanupPhotoUseCase{storage: storage, userRepo: repo, logger: log}
}

func (uc *CleanupPhotoUseCase) Execute(ctx context.Context, payload event.UserEventPayload) error {
	l := uc.logger.With(zap.String("user_id", payload.UserID.String()), zap.String("event_type", string(payload.EventType)))

	if payload.EventType != event.UserEventTypeProfileUpdated || payload.PreviousPhoto == nil {
		return nil
	}
	previous := *payload.PreviousPhoto
	if payload.ProfilePhoto != nil && *payload.ProfilePhoto == previous {
		return nil
	}

	u, err := uc.userRepo.FindByID(ctx, payload.UserID)
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		l.Warn("User not found, removing replaced photo anyway")
	case err != nil:
		return apperror.NewInternal("failed to get user", err)
	case u.ProfilePhoto != nil && *u.ProfilePhoto == previous:
		l.Info("Photo is still current, skipping", zap.String("file_ref", previous))
		return nil
	}

	if err := uc.storage.Delete(ctx, media.FileRef(previous)); err != nil {
		if errors.Is(err, apperror.ErrInvalidInput) {
			l.Warn("Replaced photo has an invalid reference, skipping", zap.String("file_ref", previous))
			return nil
		}
		return apperror.NewInternal("failed to delete replaced photo", err)
	}

	l.Info("Removed replaced photo", zap.String("file_ref", previous))
	return nil
}
