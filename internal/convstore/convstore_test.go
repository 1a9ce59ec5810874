// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package convstore

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/northbound/ragcore/internal/domain"
)

func newTestRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	return client
}

func TestFindSimilarRespectsLimit(t *testing.T) {
	client := newTestRedisClient(t)
	ctx := context.Background()
	tenant := domain.TenantID("tenant-a")
	convID := domain.ConversationID("conv-1")
	userID := domain.UserID("user-1")
	defer client.Del(ctx, key(tenant, convID))

	s := New(client, Config{})

	queries := []string{
		"what is the pricing plan",
		"what is the pricing tier",
		"what is the pricing structure",
		"what is the pricing model",
	}
	for _, q := range queries {
		if err := s.Append(ctx, tenant, convID, userID, domain.ConversationExchange{UserQuery: q, AIResponse: "an answer"}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	all := s.FindSimilar(ctx, tenant, convID, userID, "what is the pricing plan", 0, 0)
	if len(all) != len(queries) {
		t.Fatalf("expected %d matches with no limit, got %d", len(queries), len(all))
	}

	limited := s.FindSimilar(ctx, tenant, convID, userID, "what is the pricing plan", 0, 2)
	if len(limited) != 2 {
		t.Fatalf("expected exactly 2 matches with limit=2, got %d", len(limited))
	}
	if limited[0].UserQuery != all[0].UserQuery || limited[1].UserQuery != all[1].UserQuery {
		t.Fatal("expected the limited result to be the most-similar prefix of the unlimited result")
	}
}
