package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/storacha/go-didauth/document"
)

const DefaultRedisPrefix = "didauth:doc:"

// Redis shares resolutions between processes.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ Cache = (*Redis)(nil)

type RedisOption func(*Redis)

// WithPrefix namespaces cache keys.
func WithPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

// WithTTL expires entries after ttl. Zero keeps them until invalidated.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		r.ttl = ttl
	}
}

func NewRedis(client redis.UniversalClient, opts ...RedisOption) (*Redis, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	r := &Redis{client: client, prefix: DefaultRedisPrefix}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

type redisEntry struct {
	Document json.RawMessage    `json:"document"`
	Metadata *document.Metadata `json:"metadata,omitempty"`
	StoredAt time.Time          `json:"stored_at"`
}

func (r *Redis) Get(ctx context.Context, id string) (Entry, bool, error) {
	b, err := r.client.Get(ctx, r.prefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("reading cache entry: %w", err)
	}
	var raw redisEntry
	if err := json.Unmarshal(b, &raw); err != nil {
		return Entry{}, false, fmt.Errorf("decoding cache entry: %w", err)
	}
	entry := Entry{StoredAt: raw.StoredAt}
	if len(raw.Document) > 0 && string(raw.Document) != "null" {
		var doc document.Document
		if err := json.Unmarshal(raw.Document, &doc); err != nil {
			return Entry{}, false, fmt.Errorf("decoding cached document: %w", err)
		}
		doc.Metadata = raw.Metadata
		entry.Document = &doc
	}
	return entry, true, nil
}

func (r *Redis) Put(ctx context.Context, id string, entry Entry) error {
	raw := redisEntry{StoredAt: entry.StoredAt}
	if entry.Document != nil {
		b, err := json.Marshal(entry.Document)
		if err != nil {
			return fmt.Errorf("encoding document: %w", err)
		}
		raw.Document = b
		raw.Metadata = entry.Document.Metadata
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	if err := r.client.Set(ctx, r.prefix+id, b, r.ttl).Err(); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.prefix+id).Err(); err != nil {
		return fmt.Errorf("deleting cache entry: %w", err)
	}
	return nil
}
