package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// pendingMarker is stored while the request owning a key is in flight
const pendingMarker = "pending"

// RedisIdempotencyStore shares idempotency entries between API instances
type RedisIdempotencyStore struct {
	client  *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
}

// NewRedisIdempotencyStore creates a Redis-backed store. A non-positive ttl
// uses DefaultIdempotencyTTL.
func NewRedisIdempotencyStore(client *redis.Client, ttl time.Duration) *RedisIdempotencyStore {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &RedisIdempotencyStore{
		client:  client,
		ttl:     ttl,
		lockTTL: time.Minute,
	}
}

func idempotencyRedisKey(key string) string {
	return "idem:" + key
}

// Reserve implements IdempotencyStore
func (s *RedisIdempotencyStore) Reserve(ctx context.Context, key string) (*StoredResponse, error) {
	rkey := idempotencyRedisKey(key)

	claimed, err := s.client.SetNX(ctx, rkey, pendingMarker, s.lockTTL).Result()
	if err != nil {
		return nil, err
	}
	if claimed {
		return nil, nil
	}

	raw, err := s.client.Get(ctx, rkey).Bytes()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET; try once more
		claimed, err = s.client.SetNX(ctx, rkey, pendingMarker, s.lockTTL).Result()
		if err != nil {
			return nil, err
		}
		if claimed {
			return nil, nil
		}
		return nil, ErrIdempotencyInFlight
	}
	if err != nil {
		return nil, err
	}
	if string(raw) == pendingMarker {
		return nil, ErrIdempotencyInFlight
	}

	var resp StoredResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Save implements IdempotencyStore
func (s *RedisIdempotencyStore) Save(ctx context.Context, key string, resp *StoredResponse) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, idempotencyRedisKey(key), payload, s.ttl).Err()
}

// Release implements IdempotencyStore
func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, idempotencyRedisKey(key)).Err()
}
