package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/khoahotran/wellness-api/internal/application/service"
	"github.com/khoahotran/wellness-api/pkg/apperror"
)

const denylistKeyPrefix = "denylist:jti:"

type redisTokenDenylist struct {
	rdb *redis.Client
}

func NewRedisTokenDenylist(rdb *redis.Client) service.TokenDenylist {
	return &redisTokenDenylist{rdb: rdb}
}

// Revoke keeps the id only for as long as the token could still be used.
func (d *redisTokenDenylist) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := d.rdb.Set(ctx, denylistKeyPrefix+tokenID, 1, ttl).Err(); err != nil {
		return apperror.NewInternal("failed to revoke token", err)
	}
	return nil
}

func (d *redisTokenDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	err := d.rdb.Get(ctx, denylistKeyPrefix+tokenID).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, apperror.NewInternal("failed to check token denylist", err)
	}
}
