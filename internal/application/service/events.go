package service

import (
	"context"

	"github.com/khoahotran/wellness-api/adapters/event"
)

type UserEventPublisher interface {
	PublishUserEvent(ctx context.Context, payload event.UserEventPayload) error
}
