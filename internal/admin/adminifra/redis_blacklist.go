package adminifra

import (
	"context"
	"time"

	"github.com/giro-sh/license-server/internal/admin"
	"github.com/giro-sh/license-server/internal/errx"
	"github.com/redis/go-redis/v9"
)

const blacklistKeyPrefix = "giro:jwt:blacklist:"

// RedisBlacklist implements admin.Blacklist with a Redis key per
// blacklisted jti, TTL'd to the remaining life of the token it replaces:
// the key self-expires exactly when the access token would anyway.
type RedisBlacklist struct {
	client *redis.Client
}

func NewRedisBlacklist(client *redis.Client) admin.Blacklist {
	return &RedisBlacklist{client: client}
}

func (b *RedisBlacklist) Add(ctx context.Context, jti string, ttl time.Duration) error {
	if err := b.client.Set(ctx, blacklistKeyPrefix+jti, "1", ttl).Err(); err != nil {
		return errx.Wrap(err, "failed to blacklist token", errx.TypeInternal)
	}
	return nil
}

func (b *RedisBlacklist) Contains(ctx context.Context, jti string) (bool, error) {
	n, err := b.client.Exists(ctx, blacklistKeyPrefix+jti).Result()
	if err != nil {
		return false, errx.Wrap(err, "failed to check token blacklist", errx.TypeInternal)
	}
	return n > 0, nil
}
