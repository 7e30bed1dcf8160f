package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/khoahotran/wellness-api/internal/config"
)

const (
	TopicUserEvents = "user.events"
)

type UserEventType string

const (
	UserEventTypeSignedUp       UserEventType = "user.signed_up"
	UserEventTypeProfileUpdated UserEventType = "user.profile_updated"
)

type UserEventPayload struct {
	EventType     UserEventType `json:"event_type"`
	UserID        uuid.UUID     `json:"user_id"`
	Name          string        `json:"name,omitempty"`
	ProfilePhoto  *string       `json:"profile_photo,omitempty"`
	PreviousPhoto *string       `json:"previous_photo,omitempty"`
	OccurredAt    time.Time     `json:"occurred_at"`
}

type KafkaProducerClient struct {
	UserEventsWriter *kafka.Writer
}

func NewKafkaProducerClient(cfg config.Config) (*KafkaProducerClient, error) {
	brokers := cfg.Kafka.Brokers
	if len(brokers) == 0 {
		return nil, fmt.Errorf("config Kafka brokers not found")
	}

	userWriter := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  TopicUserEvents,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}

	return &KafkaProducerClient{
		UserEventsWriter: userWriter,
	}, nil
}

// PublishUserEvent keys messages by user id so events of one user stay
// ordered within a partition.
func (c *KafkaProducerClient) PublishUserEvent(ctx context.Context, payload UserEventPayload) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal user event: %w", err)
	}
	err = c.UserEventsWriter.WriteMessages(ctx, kafka.Message{
		Key:   []byte(payload.UserID.String()),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("write user event: %w", err)
	}
	return nil
}

func (c *KafkaProducerClient) Close() error {
	if c.UserEventsWriter != nil {
		return c.UserEventsWriter.Close()
	}
	return nil
}

// NoopPublisher is used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishUserEvent(context.Context, UserEventPayload) error { return nil }

func (NoopPublisher) Close() error { return nil }
