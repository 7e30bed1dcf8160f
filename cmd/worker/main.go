package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/khoahotran/wellness-api/adapters/event"
	"github.com/khoahotran/wellness-api/adapters/media_storage"
	"github.com/khoahotran/wellness-api/adapters/persistence"
	workerUC "github.com/khoahotran/wellness-api/internal/application/usecase/media"
	"github.com/khoahotran/wellness-api/internal/config"
	"github.com/khoahotran/wellness-api/pkg/logger"
)

const consumerGroup = "photo-cleanup-group"

func main() {
	// Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: cannot load config: %v", err)
	}
	appLogger := logger.NewZapLogger(cfg.App.Env)
	defer appLogger.Sync()
	appLogger.Info("Starting Wellness Worker...")

	if len(cfg.Kafka.Brokers) == 0 {
		appLogger.Fatal("KAFKA_BROKERS is required for the worker", nil)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// User store
	store, err := persistence.OpenUserStore(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Cannot connect user store", err)
	}
	defer store.Close(context.Background())

	// Photo storage
	photoStorage, err := media_storage.NewPhotoStorage(ctx, cfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize photo storage", err)
	}

	// Worker Use Case
	cleanupUC := workerUC.NewCleanupPhotoUseCase(photoStorage, store.Repo, appLogger)

	// Kafka Consumer
	consumer := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    event.TopicUserEvents,
		GroupID:  consumerGroup,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer consumer.Close()

	appLogger.Info("Worker listening", zap.String("topic", event.TopicUserEvents))

	for {
		msg, err := consumer.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				appLogger.Info("Worker stopped")
				return
			}
			appLogger.Error("Failed to read message from Kafka", err)
			continue
		}

		l := appLogger.With(zap.String("topic", msg.Topic), zap.String("key", string(msg.Key)), zap.Int64("offset", msg.Offset))

		var payload event.UserEventPayload
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			l.Error("Failed to unmarshal event, skipping", err)
			commitMessage(consumer, msg, l)
			continue
		}

		err = processWithRetry(ctx, cleanupAttempts, cleanupBackoff, func(ctx context.Context) error {
			return cleanupUC.Execute(ctx, payload)
		})
		if ctx.Err() != nil {
			// not committed, redelivered to the group on the next start
			appLogger.Info("Worker stopped")
			return
		}
		if err != nil {
			// commits are cumulative offsets, so moving on skips this event for good
			l.Error("Giving up on photo cleanup, file is left in storage", err,
				zap.String("user_id", payload.UserID.String()))
		}

		commitMessage(consumer, msg, l)
	}
}

func commitMessage(consumer *kafka.Reader, msg kafka.Message, l logger.Logger) {
	if err := consumer.CommitMessages(context.Background(), msg); err != nil {
		l.Error("Failed to commit message", err)
	}
}
