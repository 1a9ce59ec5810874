// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/northbound/ragcore/internal/domain"
	"github.com/northbound/ragcore/internal/logging"
)

// ResponseCache stores full RagResponse results keyed by the exact
// (tenant, normalized query) pair. A response cache hit is a pure
// optimization and never appends an exchange to the conversation store; the
// caller decides what, if anything, to record on a hit.
type ResponseCache struct {
	store Store
	ttl   time.Duration
}

// NewResponseCache wraps a Store with a fixed TTL.
func NewResponseCache(store Store, ttl time.Duration) *ResponseCache {
	if store == nil {
		store = NullStore{}
	}
	return &ResponseCache{store: store, ttl: ttl}
}

func (c *ResponseCache) key(tenant domain.TenantID, normalizedQuery string) string {
	return ContentKey(tenant, "resp", normalizedQuery)
}

// Get returns the cached response for this tenant and normalized query.
func (c *ResponseCache) Get(ctx context.Context, tenant domain.TenantID, normalizedQuery string) (domain.RagResponse, bool) {
	raw, ok := c.store.Get(ctx, c.key(tenant, normalizedQuery))
	if !ok {
		return domain.RagResponse{}, false
	}
	var resp domain.RagResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		logging.Warnf("response cache: corrupt entry discarded: %v", err)
		return domain.RagResponse{}, false
	}
	return resp, true
}

// Put stores a response. The orchestrator caches SUCCESS and EMPTY responses
// and never FAILED ones; Put itself does not filter by status.
func (c *ResponseCache) Put(ctx context.Context, tenant domain.TenantID, normalizedQuery string, resp domain.RagResponse) {
	raw, err := json.Marshal(resp)
	if err != nil {
		logging.Warnf("response cache: failed to marshal response: %v", err)
		return
	}
	c.store.Put(ctx, c.key(tenant, normalizedQuery), raw, c.ttl)
}

func (c *ResponseCache) tenantPrefix(tenant domain.TenantID) string {
	return "rag:resp:" + string(tenant) + ":"
}

// InvalidateTenant drops every cached response for a tenant. Callers use
// this when a tenant's underlying documents changed materially enough that
// previously-cached answers can no longer be trusted.
func (c *ResponseCache) InvalidateTenant(ctx context.Context, tenant domain.TenantID) {
	for _, key := range c.store.Keys(ctx, c.tenantPrefix(tenant)) {
		c.store.Delete(ctx, key)
	}
}
