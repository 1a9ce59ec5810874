// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package bus

import (
	"context"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/northbound/ragcore/internal/logging"
)

// DegradingBus prefers Redis but transparently falls back to an in-process
// MemoryBus when Redis is unreachable, and recovers back to Redis once it
// answers again. Messages published while degraded are only ever seen by
// consumers in the same process.
type DegradingBus struct {
	redis    *RedisBus
	memory   *MemoryBus
	degraded atomic.Bool
}

// NewDegradingBus wraps a Redis client with automatic memory fallback.
func NewDegradingBus(client *redis.Client) *DegradingBus {
	redisBus := &RedisBus{client: client}
	return &DegradingBus{redis: redisBus, memory: NewMemoryBus()}
}

func (b *DegradingBus) active() Bus {
	if b.degraded.Load() {
		return b.memory
	}
	return b.redis
}

func (b *DegradingBus) Publish(ctx context.Context, topic Topic, payload interface{}) error {
	if !b.degraded.Load() {
		if err := b.redis.Publish(ctx, topic, payload); err != nil {
			b.markDegraded(err)
			return b.memory.Publish(ctx, topic, payload)
		}
		return nil
	}
	if err := b.memory.Publish(ctx, topic, payload); err != nil {
		return err
	}
	b.tryRecover(ctx)
	return nil
}

func (b *DegradingBus) Consume(ctx context.Context, topic Topic) (Message, error) {
	if !b.degraded.Load() {
		msg, err := b.redis.Consume(ctx, topic)
		if err != nil && ctx.Err() == nil {
			b.markDegraded(err)
			return b.memory.Consume(ctx, topic)
		}
		return msg, err
	}
	msg, err := b.memory.Consume(ctx, topic)
	b.tryRecover(ctx)
	return msg, err
}

func (b *DegradingBus) markDegraded(err error) {
	if b.degraded.CompareAndSwap(false, true) {
		logging.Warnf("bus: redis unreachable (%v), degrading to in-process delivery", err)
	}
}

func (b *DegradingBus) tryRecover(ctx context.Context) {
	if !b.degraded.Load() {
		return
	}
	if err := b.redis.HealthCheck(ctx); err == nil {
		if b.degraded.CompareAndSwap(true, false) {
			logging.Printf("bus: redis reachable again, resuming normal delivery")
		}
	}
}

// HealthCheck checks the transport currently in use (Redis, or the
// in-process fallback, which always reports healthy) without forcing a mode
// change.
func (b *DegradingBus) HealthCheck(ctx context.Context) error {
	return b.active().(interface{ HealthCheck(context.Context) error }).HealthCheck(ctx)
}

// Degraded reports whether the bus is currently running on the in-process
// fallback rather than Redis.
func (b *DegradingBus) Degraded() bool { return b.degraded.Load() }
