package webhook

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Deduper decides whether a webhook push was already processed recently.
type Deduper interface {
	FirstSeen(ctx context.Context, key string) bool
}

// RedisDedupe swallows repeated CRM pushes using SETNX with a TTL. The CRM
// retries on slow responses, which used to double-notify directors.
type RedisDedupe struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDedupe creates the dedupe layer. A nil client disables it.
func NewRedisDedupe(client *redis.Client, ttl time.Duration) *RedisDedupe {
	return &RedisDedupe{client: client, ttl: ttl}
}

// FirstSeen reports whether key is new within the TTL window. Fails open:
// a Redis outage must not drop notifications.
func (d *RedisDedupe) FirstSeen(ctx context.Context, key string) bool {
	if d == nil || d.client == nil {
		return true
	}
	ok, err := d.client.SetNX(ctx, "webhook:"+key, 1, d.ttl).Result()
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("dedupe check failed")
		return true
	}
	return ok
}
