// Package idempotency remembers which order a client request key produced,
// so a retried POST returns the first order instead of a duplicate.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyOrderCreate is idem:order:create:{user_id}:{client key} -> order id.
const keyOrderCreate = "idem:order:create:%s:%s"

// pending marks a key whose order is still being created.
const pending = "pending"

// ErrInProgress is returned while another request holds the same key.
var ErrInProgress = errors.New("a request with this idempotency key is still in progress")

// Store reserves client keys and records the order id they produced.
type Store interface {
	// Reserve claims key for scope. When the key was already completed it
	// returns the stored order id and reserved=false.
	Reserve(ctx context.Context, scope, key string) (orderID string, reserved bool, err error)
	// Complete records the order id for a reserved key.
	Complete(ctx context.Context, scope, key, orderID string) error
	// Release frees a reserved key after a failed attempt.
	Release(ctx context.Context, scope, key string) error
}

// RedisStore is a Store backed by Redis string keys with a TTL.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisClient connects to addr.
func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// NewRedisStore creates a RedisStore whose keys expire after ttl.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func redisKey(scope, key string) string {
	return fmt.Sprintf(keyOrderCreate, scope, key)
}

func (s *RedisStore) Reserve(ctx context.Context, scope, key string) (string, bool, error) {
	k := redisKey(scope, key)
	ok, err := s.rdb.SetNX(ctx, k, pending, s.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if ok {
		return "", true, nil
	}

	v, err := s.rdb.Get(ctx, k).Result()
	switch {
	case errors.Is(err, redis.Nil):
		// Expired between SETNX and GET; try once more.
		ok, err = s.rdb.SetNX(ctx, k, pending, s.ttl).Result()
		if err != nil {
			return "", false, fmt.Errorf("reserve idempotency key: %w", err)
		}
		if ok {
			return "", true, nil
		}
		return "", false, ErrInProgress
	case err != nil:
		return "", false, fmt.Errorf("read idempotency key: %w", err)
	case v == pending:
		return "", false, ErrInProgress
	default:
		return v, false, nil
	}
}

func (s *RedisStore) Complete(ctx context.Context, scope, key, orderID string) error {
	if err := s.rdb.Set(ctx, redisKey(scope, key), orderID, s.ttl).Err(); err != nil {
		return fmt.Errorf("store idempotency key: %w", err)
	}
	return nil
}

func (s *RedisStore) Release(ctx context.Context, scope, key string) error {
	if err := s.rdb.Del(ctx, redisKey(scope, key)).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
