package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	interfaces "github.com/sheikh-saqib/payments-ledger-engine/internal/interfaces"
	"github.com/sheikh-saqib/payments-ledger-engine/internal/models"
	"github.com/sheikh-saqib/payments-ledger-engine/internal/models/events"
)

// messageWriter is the subset of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// batchTimeout bounds how long a synchronous write waits for more messages
// before flushing. kafka-go defaults to one second.
const batchTimeout = 10 * time.Millisecond

// Publisher sends JSON encoded events to Kafka. Messages are keyed so that
// all events of one client land on the same partition, in order.
type Publisher struct {
	writer messageWriter
}

func NewPublisher(brokers []string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			BatchTimeout:           batchTimeout,
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *Publisher) Publish(ctx context.Context, topic, key string, event any) error {
	return p.PublishBatch(ctx, topic, []interfaces.KeyedEvent{{Key: key, Event: event}})
}

// PublishBatch encodes every event first and then sends them all with a
// single WriteMessages call.
func (p *Publisher) PublishBatch(ctx context.Context, topic string, batch []interfaces.KeyedEvent) error {
	if len(batch) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(batch))
	for _, ke := range batch {
		data, err := json.Marshal(ke.Event)
		if err != nil {
			return fmt.Errorf("encode event: %w", err)
		}
		msgs = append(msgs, kafka.Message{
			Topic: topic,
			Key:   []byte(ke.Key),
			Value: data,
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Close flushes pending messages and releases the connection.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// SnapshotPublisher publishes the final account states of a run, one
// AccountSnapshot event per account.
type SnapshotPublisher struct {
	publisher interfaces.EventPublisher
	topic     string
	runID     uuid.UUID
	now       func() time.Time
}

func NewSnapshotPublisher(publisher interfaces.EventPublisher, topic string) *SnapshotPublisher {
	return &SnapshotPublisher{
		publisher: publisher,
		topic:     topic,
		runID:     uuid.New(),
		now:       time.Now,
	}
}

// RunID identifies the snapshots published by this instance.
func (s *SnapshotPublisher) RunID() uuid.UUID {
	return s.runID
}

// WriteSnapshot sends all accounts as one batch when the publisher
// supports it, and one event at a time otherwise.
func (s *SnapshotPublisher) WriteSnapshot(ctx context.Context, accounts []models.Account) error {
	takenAt := s.now().UTC()
	batch := make([]interfaces.KeyedEvent, 0, len(accounts))
	for _, acct := range accounts {
		event := events.AccountSnapshot{
			EventID:   uuid.NewString(),
			EventType: events.TypeAccountSnapshot,
			RunID:     s.runID.String(),
			Client:    uint16(acct.Client),
			Available: acct.Available.Decimal(),
			Held:      acct.Held.Decimal(),
			Total:     acct.Total().Decimal(),
			Locked:    acct.Locked,
			TakenAt:   takenAt,
		}
		batch = append(batch, interfaces.KeyedEvent{
			Key:   strconv.FormatUint(uint64(acct.Client), 10),
			Event: event,
		})
	}

	if bp, ok := s.publisher.(interfaces.BatchPublisher); ok {
		if err := bp.PublishBatch(ctx, s.topic, batch); err != nil {
			return fmt.Errorf("snapshot of %d accounts: %w", len(batch), err)
		}
		return nil
	}

	for _, ke := range batch {
		if err := s.publisher.Publish(ctx, s.topic, ke.Key, ke.Event); err != nil {
			return fmt.Errorf("snapshot client %s: %w", ke.Key, err)
		}
	}
	return nil
}

var (
	_ interfaces.EventPublisher = (*Publisher)(nil)
	_ interfaces.BatchPublisher = (*Publisher)(nil)
	_ interfaces.SnapshotWriter = (*SnapshotPublisher)(nil)
)
