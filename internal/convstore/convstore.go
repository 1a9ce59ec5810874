// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package convstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/northbound/ragcore/internal/domain"
	"github.com/northbound/ragcore/internal/logging"
)

// Config bounds a conversation's stored history.
type Config struct {
	MaxHistory    int
	TTL           time.Duration
	EnableContext bool
}

// Store is the C7 conversation store: bounded per-conversation history
// with TTL refresh on every write, plus best-effort contextualization that
// never hard-fails a query.
type Store struct {
	client *redis.Client
	cfg    Config

	// writeLocks serializes writes to the same conversation so a
	// read-modify-write Append never races with itself across goroutines.
	writeLocks sync.Map // domain.ConversationID -> *sync.Mutex
}

// New builds a conversation store against a Redis client.
func New(client *redis.Client, cfg Config) *Store {
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = 20
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	return &Store{client: client, cfg: cfg}
}

func key(tenant domain.TenantID, id domain.ConversationID) string {
	return fmt.Sprintf("conv:%s:%s", tenant, id)
}

func (s *Store) lockFor(id domain.ConversationID) *sync.Mutex {
	v, _ := s.writeLocks.LoadOrStore(id, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Load returns a conversation, or a fresh empty one if none exists yet.
func (s *Store) Load(ctx context.Context, tenant domain.TenantID, id domain.ConversationID, userID domain.UserID) (domain.Conversation, error) {
	raw, err := s.client.Get(ctx, key(tenant, id)).Bytes()
	if err == redis.Nil {
		now := time.Now()
		return domain.Conversation{ConversationID: id, TenantID: tenant, UserID: userID, CreatedAt: now, LastUpdatedAt: now}, nil
	}
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("convstore: load: %w", err)
	}

	var conv domain.Conversation
	if err := json.Unmarshal(raw, &conv); err != nil {
		return domain.Conversation{}, fmt.Errorf("convstore: decode: %w", err)
	}
	return conv, nil
}

// Append adds an exchange to the conversation, evicting the oldest entries
// beyond MaxHistory (FIFO), and refreshes the TTL. Writes to the same
// conversation ID are serialized.
func (s *Store) Append(ctx context.Context, tenant domain.TenantID, id domain.ConversationID, userID domain.UserID, exchange domain.ConversationExchange) error {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	conv, err := s.Load(ctx, tenant, id, userID)
	if err != nil {
		return err
	}

	if exchange.ExchangeID == "" {
		exchange.ExchangeID = uuid.NewString()
	}
	if exchange.Timestamp.IsZero() {
		exchange.Timestamp = time.Now()
	}

	conv.Exchanges = append(conv.Exchanges, exchange)
	if len(conv.Exchanges) > s.cfg.MaxHistory {
		conv.Exchanges = conv.Exchanges[len(conv.Exchanges)-s.cfg.MaxHistory:]
	}
	conv.LastUpdatedAt = time.Now()

	raw, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("convstore: encode: %w", err)
	}
	if err := s.client.Set(ctx, key(tenant, id), raw, s.cfg.TTL).Err(); err != nil {
		return fmt.Errorf("convstore: write: %w", err)
	}
	return nil
}

// Delete removes a conversation entirely.
func (s *Store) Delete(ctx context.Context, tenant domain.TenantID, id domain.ConversationID) error {
	if err := s.client.Del(ctx, key(tenant, id)).Err(); err != nil {
		return fmt.Errorf("convstore: delete: %w", err)
	}
	return nil
}

// Contextualize rewrites a follow-up query using recent exchanges to make
// it self-contained, e.g. "What about the second one?" against a prior
// question about pricing tiers. It never hard-fails: on any error it logs
// and returns the original query unchanged.
func (s *Store) Contextualize(ctx context.Context, tenant domain.TenantID, id domain.ConversationID, userID domain.UserID, query string, windowSize int) string {
	if !s.cfg.EnableContext {
		return query
	}
	conv, err := s.Load(ctx, tenant, id, userID)
	if err != nil {
		logging.Warnf("convstore: contextualize fallback to original query: %v", err)
		return query
	}
	if len(conv.Exchanges) == 0 {
		return query
	}

	window := conv.Exchanges
	if windowSize > 0 && len(window) > windowSize {
		window = window[len(window)-windowSize:]
	}

	var b strings.Builder
	for _, ex := range window {
		b.WriteString("Q: ")
		b.WriteString(ex.UserQuery)
		b.WriteString("\nA: ")
		b.WriteString(ex.AIResponse)
		b.WriteString("\n")
	}
	b.WriteString("Follow-up: ")
	b.WriteString(query)
	return b.String()
}

// FindSimilar returns up to limit prior exchanges in the conversation whose
// user query is at least minSimilarity similar to query, by Jaccard
// similarity over lowercased word sets, most similar first. limit <= 0
// means unbounded.
func (s *Store) FindSimilar(ctx context.Context, tenant domain.TenantID, id domain.ConversationID, userID domain.UserID, query string, minSimilarity float64, limit int) []domain.ConversationExchange {
	conv, err := s.Load(ctx, tenant, id, userID)
	if err != nil {
		logging.Warnf("convstore: find similar returning no matches: %v", err)
		return nil
	}

	type scored struct {
		exchange domain.ConversationExchange
		score    float64
	}
	target := wordSet(query)

	var candidates []scored
	for _, ex := range conv.Exchanges {
		sim := jaccard(target, wordSet(ex.UserQuery))
		if sim >= minSimilarity {
			candidates = append(candidates, scored{exchange: ex, score: sim})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	result := make([]domain.ConversationExchange, len(candidates))
	for i, c := range candidates {
		result[i] = c.exchange
	}
	return result
}

func wordSet(s string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// Stats summarizes a conversation for health/debug reporting.
type Stats struct {
	ExchangeCount int
	LastUpdatedAt time.Time
}

// Summary returns basic stats about a stored conversation.
func (s *Store) Summary(ctx context.Context, tenant domain.TenantID, id domain.ConversationID, userID domain.UserID) (Stats, error) {
	conv, err := s.Load(ctx, tenant, id, userID)
	if err != nil {
		return Stats{}, err
	}
	return Stats{ExchangeCount: len(conv.Exchanges), LastUpdatedAt: conv.LastUpdatedAt}, nil
}
