package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/mael-bomane/earn-bot/internal/listing"
)

// DefaultRedisKey is the key the snapshot is stored under.
const DefaultRedisKey = "earn-bot:snapshot:listings"

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// RedisStore keeps the snapshot as a single JSON value so that a replace is
// one atomic SET.
type RedisStore struct {
	client redis.Cmdable
	key    string
}

// NewRedisStore returns a RedisStore writing under key. An empty key selects
// DefaultRedisKey.
func NewRedisStore(client redis.Cmdable, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

// Get loads the snapshot. A missing key means no snapshot yet.
func (s *RedisStore) Get(ctx context.Context) (map[string]listing.Listing, bool, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading snapshot: %w", err)
	}

	var listings []listing.Listing
	if err := json.Unmarshal(raw, &listings); err != nil {
		return nil, false, fmt.Errorf("decoding snapshot: %w", err)
	}
	return index(listings), true, nil
}

// Replace overwrites the snapshot. The key has no expiry.
func (s *RedisStore) Replace(ctx context.Context, listings []listing.Listing) error {
	if listings == nil {
		listings = []listing.Listing{}
	}
	raw, err := json.Marshal(listings)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}
