package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/wellness-api/adapters/event"
	"github.com/khoahotran/wellness-api/internal/application/service"
	"github.com/khoahotran/wellness-api/internal/domain/user"
	"github.com/khoahotran/wellness-api/pkg/apperror"
	"github.com/khoahotran/wellness-api/pkg/auth"
	"github.com/khoahotran/wellness-api/pkg/logger"
)

type SignupUseCase struct {
	userRepo  user.Repository
	hasher    *auth.PasswordHasher
	publisher service.UserEventPublisher
	logger    logger.Logger
}

func NewSignupUseCase(
	repo user.Repository,
	hasher *auth.PasswordHasher,
	publisher service.UserEventPublisher,
	log logger.Logger,
) *SignupUseCase {
	if publisher == nil {
		publisher = event.NoopPublisher{}
	}
	return &SignupUseCase{userRepo: repo, hasher: hasher, publisher: publisher, logger: log}
}

// SignupInput is validated before anything is stored. The password is also
// capped at auth.MaxPasswordBytes bytes, which multibyte text reaches before
// the character limit.
type SignupInput struct {
	Name     string `validate:"required,max=100"`
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,max=72"`
}

type SignupOutput struct {
	UserID uuid.UUID
}

func (uc *SignupUseCase) Execute(ctx context.Context, input SignupInput) (*SignupOutput, error) {
	ctx, span := tracer.Start(ctx, "Signup")
	defer span.End()

	input.Email = user.NormalizeEmail(input.Email)
	if err := validate.StructCtx(ctx, input); err != nil {
		err = invalidInput(err)
		span.RecordError(err)
		return nil, err
	}
	if len(input.Password) > auth.MaxPasswordBytes {
		err := passwordTooLong(nil)
		span.RecordError(err)
		return nil, err
	}

	hash, err := uc.hasher.Hash(input.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, passwordTooLong(err)
		}
		uc.logger.Error("Failed to hash password", err)
		return nil, apperror.NewInternal("failed to hash password", err)
	}

	now := time.Now().UTC()
	u := &user.User{
		ID:           uuid.New(),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.userRepo.Create(ctx, u); err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("user_id", u.ID.String()))

	payload := event.UserEventPayload{
		EventType:  event.UserEventTypeSignedUp,
		UserID:     u.ID,
		Name:       u.Name,
		OccurredAt: now,
	}
	if err := uc.publisher.PublishUserEvent(ctx, payload); err != nil {
		uc.logger.Warn("Failed to publish signup event", zap.String("user_id", u.ID.String()), zap.Error(err))
	}

	uc.logger.Info("User signed up", zap.String("user_id", u.ID.String()))
	return &SignupOutput{UserID: u.ID}, nil
}

func passwordTooLong(err error) error {
	return apperror.NewInvalidInput(fmt.Sprintf("password must be at most %d bytes", auth.MaxPasswordBytes), err)
}
