package persistence

import (
	"context"
	"fmt"
	"net/url"

	"github.com/khoahotran/wellness-api/internal/config"
	"github.com/khoahotran/wellness-api/internal/domain/user"
	"github.com/khoahotran/wellness-api/pkg/logger"
)

// UserStore is an opened user repository together with its connection.
type UserStore struct {
	Repo  user.Repository
	close func(context.Context) error
}

func (s *UserStore) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// OpenUserStore picks the backend from the scheme of db.uri:
// mongodb:// and mongodb+srv:// use MongoDB, postgres:// and postgresql://
// use PostgreSQL and memory:// keeps users in process memory.
func OpenUserStore(ctx context.Context, cfg config.Config, log logger.Logger) (*UserStore, error) {
	u, err := url.Parse(cfg.DB.URI)
	if err != nil {
		return nil, fmt.Errorf("parse database uri: %w", err)
	}

	switch u.Scheme {
	case "mongodb", "mongodb+srv":
		client, err := NewMongoClient(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		repo, err := NewMongoUserRepo(ctx, client.Database(cfg.DB.Name))
		if err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		return &UserStore{Repo: repo, close: client.Disconnect}, nil

	case "postgres", "postgresql":
		if err := MigrateUp(cfg.DB.URI); err != nil {
			return nil, err
		}
		pool, err := NewPostgresPool(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		return &UserStore{
			Repo: NewPostgresUserRepo(pool),
			close: func(context.Context) error {
				pool.Close()
				return nil
			},
		}, nil

	case "memory":
		log.Warn("Using in-memory user store, data is lost on restart.")
		return &UserStore{Repo: NewMemoryUserRepo()}, nil

	default:
		return nil, fmt.Errorf("unsupported database scheme %q", u.Scheme)
	}
}
