// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/northbound/ragcore/internal/domain"
	"github.com/northbound/ragcore/internal/logging"
)

// ContentKey derives a tenant-scoped, content-addressed cache key. Two
// identical payloads for the same tenant and namespace always collide to the
// same key; different tenants never collide, even on identical content.
func ContentKey(tenant domain.TenantID, namespace string, parts ...string) string {
	h := sha256.New()
	h.Write([]byte(namespace))
	h.Write([]byte{0})
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	sum := hex.EncodeToString(h.Sum(nil))
	return "rag:" + namespace + ":" + string(tenant) + ":" + sum
}

// Store is a best-effort, TTL'd byte cache. A miss is never an error. A Put
// failure is logged and swallowed: the cache is an optimization, never a
// correctness dependency.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)

	// Keys returns every stored key beginning with prefix. A failed scan
	// logs and returns whatever was collected so far rather than erroring,
	// matching every other Store method's best-effort contract.
	Keys(ctx context.Context, prefix string) []string
}

// RedisStore is a Store backed by a Redis key-value namespace.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an already-connected Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logging.Warnf("cache: redis get %s failed: %v", key, err)
		}
		return nil, false
	}
	return val, true
}

func (s *RedisStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		logging.Warnf("cache: redis put %s failed: %v", key, err)
	}
}

func (s *RedisStore) Delete(ctx context.Context, key string) {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		logging.Warnf("cache: redis delete %s failed: %v", key, err)
	}
}

// Keys scans the keyspace for everything matching prefix+"*" using Redis's
// cursor-based SCAN, which unlike KEYS does not block the server on a large
// keyspace.
func (s *RedisStore) Keys(ctx context.Context, prefix string) []string {
	var keys []string
	var cursor uint64
	for {
		batch, next, err := s.client.Scan(ctx, cursor, prefix+"*", 200).Result()
		if err != nil {
			logging.Warnf("cache: redis scan %s* failed: %v", prefix, err)
			return keys
		}
		keys = append(keys, batch...)
		if next == 0 {
			return keys
		}
		cursor = next
	}
}

// NullStore is a Store that never retains anything; it degrades every
// lookup to a miss. Used when no Redis connection is configured so that
// callers see ordinary cache-miss behavior instead of a nil pointer.
type NullStore struct{}

func (NullStore) Get(ctx context.Context, key string) ([]byte, bool)                   { return nil, false }
func (NullStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) {}
func (NullStore) Delete(ctx context.Context, key string)                               {}
func (NullStore) Keys(ctx context.Context, prefix string) []string                     { return nil }
