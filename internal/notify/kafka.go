package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaNotifier implements Notifier using segmentio/kafka-go.
type KafkaNotifier struct {
	writer *kafka.Writer
}

// NewKafkaNotifier creates a notifier that writes transition events to the
// given topic. Returns nil (a no-op for callers that check) when brokers or
// topic are unset. Call Close when shutting down.
func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
	}
	return &KafkaNotifier{writer: writer}
}

// Emit serializes the event as JSON and writes it keyed by item ID, so all
// events for one item land on one partition in order.
func (n *KafkaNotifier) Emit(ctx context.Context, event *Event) error {
	if n == nil || n.writer == nil || event == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, emitTimeout)
	defer cancel()
	return n.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(event.ItemID),
		Value: payload,
	})
}

// Close closes the Kafka writer. Safe to call multiple times.
func (n *KafkaNotifier) Close() error {
	if n == nil || n.writer == nil {
		return nil
	}
	return n.writer.Close()
}
