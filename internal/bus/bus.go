// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package bus

import (
	"context"
	"encoding/json"
	"time"
)

// Topic names the well-known subjects carried over the bus.
type Topic string

const (
	TopicDocumentUploaded Topic = "document-uploaded"
	TopicEmbeddingCompleted Topic = "embedding-completed"
	TopicDocumentFailed   Topic = "document-failed"
)

// Message is an at-least-once envelope. Consumers must treat side effects
// as idempotent since the same message may be delivered more than once.
type Message struct {
	Topic     Topic           `json:"topic"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Bus is the message transport the document pipeline consumes from and
// publishes to.
type Bus interface {
	Publish(ctx context.Context, topic Topic, payload interface{}) error

	// Consume blocks until a message is available on topic, or ctx is
	// cancelled.
	Consume(ctx context.Context, topic Topic) (Message, error)
}

// Decode unmarshals a message's payload into v.
func Decode(msg Message, v interface{}) error {
	return json.Unmarshal(msg.Payload, v)
}
