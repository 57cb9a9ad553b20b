package nonce

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces nonce keys in Redis.
const DefaultPrefix = "didauth:nonce:"

// Redis shares recorded nonces between processes. Keys expire after the
// horizon.
type Redis struct {
	client  redis.UniversalClient
	horizon time.Duration
	prefix  string
}

var _ Store = (*Redis)(nil)

func NewRedis(client redis.UniversalClient, horizon time.Duration, prefix string) (*Redis, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if horizon <= 0 {
		return nil, errors.New("redis nonce horizon must be positive")
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Redis{client: client, horizon: horizon, prefix: prefix}, nil
}

func (r *Redis) CheckAndRecord(ctx context.Context, nonce string, now time.Time) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.prefix+nonce, now.UnixMilli(), r.horizon).Result()
	if err != nil {
		return false, fmt.Errorf("recording nonce: %w", err)
	}
	return !ok, nil
}
