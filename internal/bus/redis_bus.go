// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/northbound/ragcore/internal/logging"
)

// RedisBus implements Bus on top of Redis lists, one list per topic, using
// RPUSH/BLPOP the same way the original job queue did.
type RedisBus struct {
	client *redis.Client
}

// NewRedisBus wraps an already-connected client.
func NewRedisBus(client *redis.Client) (*RedisBus, error) {
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("bus: failed to ping redis: %w", err)
	}
	return &RedisBus{client: client}, nil
}

func key(topic Topic) string { return "bus:" + string(topic) }

func (b *RedisBus) Publish(ctx context.Context, topic Topic, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("bus: failed to marshal payload: %w", err)
	}

	msg := Message{Topic: topic, Payload: raw, CreatedAt: time.Now()}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("bus: failed to marshal message: %w", err)
	}

	if err := b.client.RPush(ctx, key(topic), data).Err(); err != nil {
		return fmt.Errorf("bus: failed to publish to %s: %w", topic, err)
	}
	return nil
}

func (b *RedisBus) Consume(ctx context.Context, topic Topic) (Message, error) {
	type result struct {
		val []string
		err error
	}
	resultCh := make(chan result, 1)

	go func() {
		val, err := b.client.BLPop(ctx, 0, key(topic)).Result()
		resultCh <- result{val: val, err: err}
	}()

	select {
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case res := <-resultCh:
		if res.err != nil {
			if res.err == redis.Nil {
				return Message{}, ctx.Err()
			}
			return Message{}, fmt.Errorf("bus: consume from %s: %w", topic, res.err)
		}
		if len(res.val) < 2 {
			return Message{}, fmt.Errorf("bus: unexpected BLPOP result shape for %s", topic)
		}

		var msg Message
		if err := json.Unmarshal([]byte(res.val[1]), &msg); err != nil {
			logging.Warnf("bus: dropping undecodable message on %s: %v", topic, err)
			return Message{}, fmt.Errorf("bus: failed to decode message: %w", err)
		}
		return msg, nil
	}
}

func (b *RedisBus) HealthCheck(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}
