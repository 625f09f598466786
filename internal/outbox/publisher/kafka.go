// Package publisher provides outbox event publishers: Kafka for deployments
// with a broker, and a log publisher for development.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"sportsfest/internal/outbox/models"
)

// envelope is the wire form of an outbox event. Payload carries the
// event-specific body recorded by the producing service.
type envelope struct {
	ID          string          `json:"id"`
	EventType   string          `json:"event_type"`
	AggregateID string          `json:"aggregate_id"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Kafka publishes outbox events to a single topic, keyed by aggregate id so
// events for one entity stay ordered within a partition.
type Kafka struct {
	client *kgo.Client
}

func NewKafka(brokers []string, topic string) (*Kafka, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}
	return &Kafka{client: client}, nil
}

func (p *Kafka) Publish(ctx context.Context, events []*models.Event) error {
	records := make([]*kgo.Record, 0, len(events))
	for _, event := range events {
		value, err := json.Marshal(envelope{
			ID:          event.ID.String(),
			EventType:   event.EventType,
			AggregateID: event.AggregateID,
			Payload:     event.Payload,
			CreatedAt:   event.CreatedAt,
		})
		if err != nil {
			return fmt.Errorf("failed to encode event %s: %w", event.ID, err)
		}
		records = append(records, &kgo.Record{
			Key:   []byte(event.AggregateID),
			Value: value,
		})
	}
	if err := p.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("failed to produce events: %w", err)
	}
	return nil
}

func (p *Kafka) Close() {
	p.client.Close()
}
