// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package tenantlimit

import (
	"context"
	"sync"

	"github.com/northbound/ragcore/internal/domain"
)

// Limiter bounds the number of concurrent operations per tenant using a
// buffered channel as a counting semaphore per tenant, the same idiom the
// original worker pools used for a single global pool.
type Limiter struct {
	mu    sync.Mutex
	slots map[domain.TenantID]chan struct{}
	cap   int
}

// New builds a Limiter allowing up to perTenant concurrent in-flight
// operations for any single tenant. Different tenants never share slots.
func New(perTenant int) *Limiter {
	if perTenant <= 0 {
		perTenant = 1
	}
	return &Limiter{slots: make(map[domain.TenantID]chan struct{}), cap: perTenant}
}

func (l *Limiter) channel(tenant domain.TenantID) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[tenant]
	if !ok {
		ch = make(chan struct{}, l.cap)
		l.slots[tenant] = ch
	}
	return ch
}

// Acquire blocks until a slot is free for the tenant or ctx is cancelled.
// The returned release function must be called exactly once to free the
// slot.
func (l *Limiter) Acquire(ctx context.Context, tenant domain.TenantID) (release func(), err error) {
	ch := l.channel(tenant)
	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// InFlight reports how many slots are currently held for a tenant.
func (l *Limiter) InFlight(tenant domain.TenantID) int {
	return len(l.channel(tenant))
}
