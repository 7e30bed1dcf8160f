package profile

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/wellness-api/adapters/event"
	"github.com/khoahotran/wellness-api/internal/application/service"
	mediaUC "github.com/khoahotran/wellness-api/internal/application/usecase/media"
	"github.com/khoahotran/wellness-api/internal/domain/user"
	"github.com/khoahotran/wellness-api/pkg/apperror"
	"github.com/khoahotran/wellness-api/pkg/logger"
)

const maxNameLength = 100

var tracer = otel.Tracer("profile_usecase")

type ProfileUseCase struct {
	userRepo   user.Repository
	storePhoto *mediaUC.StorePhotoUseCase
	publisher  service.UserEventPublisher
	logger     logger.Logger
}

func NewProfileUseCase(
	repo user.Repository,
	storePhoto *mediaUC.StorePhotoUseCase,
	publisher service.UserEventPublisher,
	log logger.Logger,
) *ProfileUseCase {
	if publisher == nil {
		publisher = event.NoopPublisher{}
	}
	return &ProfileUseCase{
		userRepo:   repo,
		storePhoto: storePhoto,
		publisher:  publisher,
		logger:     log,
	}
}

type GetProfileInput struct {
	UserID uuid.UUID
}

type GetProfileOutput struct {
	Profile *user.View
}

func (uc *ProfileUseCase) ExecuteGetProfile(ctx context.Context, input GetProfileInput) (*GetProfileOutput, error) {
	ctx, span := tracer.Start(ctx, "GetProfile")
	defer span.End()

	u, err := uc.userRepo.FindByID(ctx, input.UserID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &GetProfileOutput{Profile: u.View()}, nil
}

// UpdateProfileInput leaves a field untouched when it is nil. An empty name
// counts as absent.
type UpdateProfileInput struct {
	UserID uuid.UUID
	Name   *string
	Photo  *mediaUC.StorePhotoInput
}

type UpdateProfileOutput struct {
	Profile *user.View
}

// ExecuteUpdateProfile stores the photo before touching the user record and
// then writes name and photo together, so a rejected upload changes nothing.
// The replaced file is left for the worker to remove.
func (uc *ProfileUseCase) ExecuteUpdateProfile(ctx context.Context, input UpdateProfileInput) (*UpdateProfileOutput, error) {
	ctx, span := tracer.Start(ctx, "UpdateProfile")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", input.UserID.String()))

	if input.Name != nil && *input.Name == "" {
		input.Name = nil
	}
	if input.Name != nil && utf8.RuneCountInString(*input.Name) > maxNameLength {
		return nil, apperror.NewInvalidInput("name must be at most 100 characters", nil)
	}

	current, err := uc.userRepo.FindByID(ctx, input.UserID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	changes := user.ProfileChanges{Name: input.Name}
	if input.Photo != nil {
		stored, err := uc.storePhoto.Execute(ctx, *input.Photo)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		ref := stored.Ref.String()
		changes.ProfilePhoto = &ref
	}

	if changes.IsEmpty() {
		return &UpdateProfileOutput{Profile: current.View()}, nil
	}

	updated, err := uc.userRepo.UpdateProfile(ctx, input.UserID, changes)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if changes.ProfilePhoto != nil {
		uc.publishPhotoReplaced(ctx, current, updated)
	}

	return &UpdateProfileOutput{Profile: updated.View()}, nil
}

func (uc *ProfileUseCase) publishPhotoReplaced(ctx context.Context, before, after *user.User) {
	payload := event.UserEventPayload{
		EventType:     event.UserEventTypeProfileUpdated,
		UserID:        after.ID,
		Name:          after.Name,
		ProfilePhoto:  after.ProfilePhoto,
		PreviousPhoto: before.ProfilePhoto,
		OccurredAt:    time.Now().UTC(),
	}
	if err := uc.publisher.PublishUserEvent(ctx, payload); err != nil {
		uc.logger.Warn("Failed to publish profile update event", zap.String("user_id", after.ID.String()), zap.Error(err))
	}
}
