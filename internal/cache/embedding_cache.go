// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package cache

import (
	"context"
	"encoding/binary"
	"math"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/northbound/ragcore/internal/domain"
)

// EmbeddingCache is a two-tier, tenant-scoped, content-addressed cache of
// embedding vectors keyed by (tenant, model, content). L1 is an in-process
// LRU; L2 is the shared Store (Redis). A hit in L2 is promoted into L1.
//
// Cache semantics are an optimization only: a Get miss is never an error,
// and a Put always succeeds from the caller's point of view even if the
// underlying store silently drops it.
type EmbeddingCache struct {
	l1  *lru.Cache[string, []float32]
	l2  Store
	ttl time.Duration
}

// NewEmbeddingCache builds a cache with the given L1 capacity (entries) and
// L2 TTL. l1Size <= 0 disables the in-process tier.
func NewEmbeddingCache(l2 Store, l1Size int, ttl time.Duration) *EmbeddingCache {
	var l1 *lru.Cache[string, []float32]
	if l1Size > 0 {
		l1, _ = lru.New[string, []float32](l1Size)
	}
	if l2 == nil {
		l2 = NullStore{}
	}
	return &EmbeddingCache{l1: l1, l2: l2, ttl: ttl}
}

func (c *EmbeddingCache) key(tenant domain.TenantID, model, content string) string {
	return ContentKey(tenant, "embed:"+model, content)
}

// Get returns the cached vector for this exact (tenant, model, content)
// triple, or false on a miss.
func (c *EmbeddingCache) Get(ctx context.Context, tenant domain.TenantID, model, content string) ([]float32, bool) {
	key := c.key(tenant, model, content)

	if c.l1 != nil {
		if vec, ok := c.l1.Get(key); ok {
			return vec, true
		}
	}

	raw, ok := c.l2.Get(ctx, key)
	if !ok {
		return nil, false
	}
	vec := decodeVector(raw)
	if c.l1 != nil {
		c.l1.Add(key, vec)
	}
	return vec, true
}

// Put stores a vector in both tiers. Best-effort: never returns an error.
func (c *EmbeddingCache) Put(ctx context.Context, tenant domain.TenantID, model, content string, vec []float32) {
	key := c.key(tenant, model, content)
	if c.l1 != nil {
		c.l1.Add(key, vec)
	}
	c.l2.Put(ctx, key, encodeVector(vec), c.ttl)
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(raw []byte) []float32 {
	n := len(raw) / 4
	vec := make([]float32, n)
	for i := 0; i < n; i++ {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return vec
}
