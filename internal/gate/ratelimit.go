package gate

import (
	"context"
	"time"

	"github.com/giro-sh/license-server/internal/errx"
	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window counter backed by Redis: INCR on a
// per-window key, TTL set only on the first increment of that window.
// Two independent ceilings apply (§4.5, §6): a general one for all
// traffic and a tighter one for the authentication endpoints.
type RateLimiter struct {
	client            *redis.Client
	window            time.Duration
	generalCeiling    int64
	authCeiling       int64
}

func NewRateLimiter(client *redis.Client, window time.Duration, generalCeiling, authCeiling int) *RateLimiter {
	return &RateLimiter{client: client, window: window, generalCeiling: int64(generalCeiling), authCeiling: int64(authCeiling)}
}

// AllowGeneral applies the general ceiling to ip.
func (r *RateLimiter) AllowGeneral(ctx context.Context, ip string) (bool, error) {
	return r.allow(ctx, "rl:"+ip, r.generalCeiling)
}

// AllowAuth applies the tighter authentication ceiling to ip.
func (r *RateLimiter) AllowAuth(ctx context.Context, ip string) (bool, error) {
	return r.allow(ctx, "auth_rl:"+ip, r.authCeiling)
}

func (r *RateLimiter) allow(ctx context.Context, key string, ceiling int64) (bool, error) {
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, errx.Wrap(err, "failed to increment rate limit counter", errx.TypeInternal)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, r.window).Err(); err != nil {
			return false, errx.Wrap(err, "failed to set rate limit window", errx.TypeInternal)
		}
	}
	return count <= ceiling, nil
}
