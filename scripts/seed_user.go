package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/khoahotran/wellness-api/adapters/persistence"
	authUC "github.com/khoahotran/wellness-api/internal/application/usecase/auth"
	"github.com/khoahotran/wellness-api/internal/config"
	"github.com/khoahotran/wellness-api/pkg/apperror"
	"github.com/khoahotran/wellness-api/pkg/auth"
	"github.com/khoahotran/wellness-api/pkg/logger"
)

// Seeds one user through the signup use case, using SEED_NAME, SEED_EMAIL and
// SEED_PASSWORD.
func main() {
	fmt.Println("adding user into database...")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}
	appLogger := logger.NewZapLogger(cfg.App.Env)

	name := os.Getenv("SEED_NAME")
	email := os.Getenv("SEED_EMAIL")
	password := os.Getenv("SEED_PASSWORD")

	ctx := context.Background()
	store, err := persistence.OpenUserStore(ctx, cfg, appLogger)
	if err != nil {
		log.Fatalf("cannot connect DB: %v", err)
	}
	defer store.Close(ctx)

	hasher, err := auth.NewPasswordHasher(cfg.Auth.PasswordHasher)
	if err != nil {
		log.Fatalf("cannot init hasher: %v", err)
	}

	out, err := authUC.NewSignupUseCase(store.Repo, hasher, nil, appLogger).
		Execute(ctx, authUC.SignupInput{Name: name, Email: email, Password: password})
	if err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			fmt.Printf("user '%s' already exists, nothing to do\n", email)
			return
		}
		log.Fatalf("cannot add user: %v", err)
	}

	fmt.Printf("added user '%s' (%s) successfully!\n", email, out.UserID)
}
