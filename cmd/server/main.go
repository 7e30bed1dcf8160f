package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/khoahotran/wellness-api/adapters/event"
	httpAdapter "github.com/khoahotran/wellness-api/adapters/http"
	"github.com/khoahotran/wellness-api/adapters/media_storage"
	"github.com/khoahotran/wellness-api/adapters/persistence"
	"github.com/khoahotran/wellness-api/internal/application/service"
	authUC "github.com/khoahotran/wellness-api/internal/application/usecase/auth"
	mediaUC "github.com/khoahotran/wellness-api/internal/application/usecase/media"
	profileUC "github.com/khoahotran/wellness-api/internal/application/usecase/profile"
	"github.com/khoahotran/wellness-api/internal/config"
	"github.com/khoahotran/wellness-api/pkg/auth"
	"github.com/khoahotran/wellness-api/pkg/logger"
	"github.com/khoahotran/wellness-api/pkg/tracing"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: cannot load config: %v", err)
	}

	appLogger := logger.NewZapLogger(cfg.App.Env)
	defer appLogger.Sync()
	appLogger.Info("Start Wellness API Server...", zap.String("env", cfg.App.Env))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Tracing
	if cfg.Tracing.OTLPEndpoint != "" {
		tp, err := tracing.NewTracerProvider(ctx, cfg, appLogger, "wellness-api")
		if err != nil {
			appLogger.Fatal("Cannot init tracer", err)
		}
		defer tp.Shutdown(context.Background())
	}

	// User store
	store, err := persistence.OpenUserStore(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Cannot connect user store", err)
	}
	defer store.Close(context.Background())

	// Token denylist
	var denylist service.TokenDenylist
	if cfg.Redis.Addr != "" {
		redisClient, err := persistence.NewRedisClient(ctx, cfg, appLogger)
		if err != nil {
			appLogger.Fatal("Cannot connect Redis", err)
		}
		defer redisClient.Close()
		denylist = persistence.NewRedisTokenDenylist(redisClient)
	} else {
		appLogger.Warn("REDIS_ADDR not set, logout will not revoke tokens.")
	}

	// Events
	var publisher service.UserEventPublisher = event.NoopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaClient, err := event.NewKafkaProducerClient(cfg)
		if err != nil {
			appLogger.Fatal("Cannot init Kafka", err)
		}
		defer kafkaClient.Close()
		publisher = kafkaClient
	} else {
		appLogger.Warn("KAFKA_BROKERS not set, replaced photos will be kept.")
	}

	// Services
	photoStorage, err := media_storage.NewPhotoStorage(ctx, cfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize photo storage", err, zap.String("driver", cfg.Storage.Driver))
	}
	hasher, err := auth.NewPasswordHasher(cfg.Auth.PasswordHasher)
	if err != nil {
		appLogger.Fatal("Failed to initialize password hasher", err)
	}
	jwtSvc := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.TokenLifespan)

	// Use Cases
	signupUseCase := authUC.NewSignupUseCase(store.Repo, hasher, publisher, appLogger)
	loginUseCase := authUC.NewLoginUseCase(store.Repo, jwtSvc, appLogger)
	verifyUseCase := authUC.NewVerifyUseCase(jwtSvc)
	logoutUseCase := authUC.NewLogoutUseCase(verifyUseCase, denylist, appLogger)
	storePhotoUseCase := mediaUC.NewStorePhotoUseCase(photoStorage, cfg.Storage.MaxUploadBytes, appLogger)
	openPhotoUseCase := mediaUC.NewOpenPhotoUseCase(photoStorage)
	profileUseCase := profileUC.NewProfileUseCase(store.Repo, storePhotoUseCase, publisher, appLogger)

	// HTTP Handlers
	handlers := httpAdapter.Handlers{
		Auth:    httpAdapter.NewAuthHandler(signupUseCase, loginUseCase, logoutUseCase, appLogger),
		Profile: httpAdapter.NewProfileHandler(profileUseCase, cfg.Storage.MaxUploadBytes, appLogger),
		Photo:   httpAdapter.NewPhotoHandler(openPhotoUseCase),
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpAdapter.NewRouter(handlers, httpAdapter.RouterConfig{
		PublicPath:     cfg.Storage.PublicPath,
		AuthMiddleware: httpAdapter.AuthMiddleware(verifyUseCase, denylist, appLogger),
	}, appLogger)

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("Server running", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Cannot run server", err)
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Warn("HTTP shutdown", zap.Error(err))
	}
}
