package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "idempotency:order:"

// IdempotencyStore implements repository.IdempotencyStore on Redis SETNX.
type IdempotencyStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewIdempotencyStore creates a store whose keys expire after ttl.
func NewIdempotencyStore(client redis.UniversalClient, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{client: client, ttl: ttl}
}

// Reserve claims key for orderID. If another request already claimed it,
// the earlier order id is returned with reserved=false.
func (s *IdempotencyStore) Reserve(ctx context.Context, key, orderID string) (string, bool, error) {
	redisKey := keyPrefix + key

	ok, err := s.client.SetNX(ctx, redisKey, orderID, s.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("redis setnx idempotency key: %w", err)
	}
	if ok {
		return orderID, true, nil
	}

	existing, err := s.client.Get(ctx, redisKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, fmt.Errorf("idempotency key %q expired while reading", key)
		}
		return "", false, fmt.Errorf("redis get idempotency key: %w", err)
	}
	return existing, false, nil
}

// Release forgets key so the request can be retried.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del idempotency key: %w", err)
	}
	return nil
}
