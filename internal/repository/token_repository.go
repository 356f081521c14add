package repository

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// TokenBlacklist 记录已登出的 token，直到其自然过期。
type TokenBlacklist interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

type redisTokenBlacklist struct {
	rdb *redis.Client
}

func NewTokenBlacklist(rdb *redis.Client) TokenBlacklist {
	return &redisTokenBlacklist{rdb: rdb}
}

func (r *redisTokenBlacklist) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.rdb.Set(ctx, "blacklist:"+token, "true", ttl).Err()
}

func (r *redisTokenBlacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := r.rdb.Exists(ctx, "blacklist:"+token).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
