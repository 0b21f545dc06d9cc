package memory

import (
	"context"
	"sync"

	interfaces "github.com/sheikh-saqib/payments-ledger-engine/internal/interfaces"
)

// Message is one event captured by a Recorder.
type Message struct {
	Topic string
	Key   string
	Event any
}

// Recorder is an in-process EventPublisher that keeps every event it
// receives. It never forgets anything, so it is meant for tests and short
// runs, not for a long-lived server.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(_ context.Context, topic, key string, event any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = append(r.messages, Message{Topic: topic, Key: key, Event: event})
	return nil
}

// Messages returns a copy of the recorded messages in publish order.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := make([]Message, len(r.messages))
	copy(copied, r.messages)
	return copied
}

var _ interfaces.EventPublisher = (*Recorder)(nil)
