package interfaces

import "context"

// EventPublisher delivers an event to topic. key groups events that must
// stay ordered relative to each other, typically the client id.
type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, event any) error
}

// KeyedEvent is an event together with its ordering key.
type KeyedEvent struct {
	Key   string
	Event any
}

// BatchPublisher delivers several events to topic in one call. Publishers
// that talk to a broker implement it to avoid one round trip per event.
type BatchPublisher interface {
	PublishBatch(ctx context.Context, topic string, events []KeyedEvent) error
}
