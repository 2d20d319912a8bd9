package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"cart-service/pkg/logkey"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Conf wraps the Kafka producer. Events are strictly fire-and-forget:
// cart correctness never depends on a publish landing, so produce errors
// are logged and dropped.
type Conf struct {
	client *kgo.Client
}

func NewConf(brokers []string) (*Conf, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers provided")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating kafka client: %w", err)
	}
	return &Conf{client: client}, nil
}

// PublishCartEvent produces the event asynchronously. A nil Conf is a valid
// receiver so callers need no guard when Kafka is not configured.
func (c *Conf) PublishCartEvent(ctx context.Context, topic string, event CartEvent) {
	if c == nil || c.client == nil {
		return
	}

	value, err := json.Marshal(event)
	if err != nil {
		slog.Error("marshaling cart event", slog.String(logkey.ERROR, err.Error()), slog.String("Topic", topic))
		return
	}

	record := &kgo.Record{
		Topic: topic,
		Key:   []byte(event.SessionID),
		Value: value,
	}
	// The publish must outlive the request that triggered it.
	c.client.Produce(context.WithoutCancel(ctx), record, func(_ *kgo.Record, err error) {
		if err != nil {
			slog.Error("producing cart event", slog.String(logkey.ERROR, err.Error()), slog.String("Topic", topic))
		}
	})
}

// Close flushes buffered records and shuts the producer down.
func (c *Conf) Close() {
	if c == nil || c.client == nil {
		return
	}
	c.client.Close()
}
