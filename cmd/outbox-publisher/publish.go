package main

import (
	"context"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/phuoc-stack/foodapp-backend/pkg/db/models"
	"github.com/phuoc-stack/foodapp-backend/pkg/outbox/registry"
)

const publishTimeout = 15 * time.Second

// broker delivers a message to a topic and waits for the server ack.
type broker interface {
	Ping(context.Context) error
	Send(ctx context.Context, topic string, msg *gcppubsub.Message) error
}

type publisherSource interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

// pubsubBroker adapts the shared Pub/Sub client to broker.
type pubsubBroker struct {
	source publisherSource
}

func (b pubsubBroker) Ping(ctx context.Context) error {
	return b.source.Ping(ctx)
}

func (b pubsubBroker) Send(ctx context.Context, topic string, msg *gcppubsub.Message) error {
	pub := b.source.Publisher(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("no publisher for topic %s", topic))
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if _, err := pub.Publish(ctx, msg).Get(ctx); err != nil {
		if msg.OrderingKey != "" {
			// an ordered key stays paused after a failure until resumed
			pub.ResumePublish(msg.OrderingKey)
		}
		return err
	}
	return nil
}

// orderMessage keys every event by its aggregate so subscribers see an
// order's lifecycle in commit order.
func orderMessage(row models.OutboxEvent, resolved *registry.ResolvedEvent) *gcppubsub.Message {
	return &gcppubsub.Message{
		Data:        row.Payload,
		OrderingKey: row.AggregateID.String(),
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(row.EventType),
			"aggregate_type": string(row.AggregateType),
			"aggregate_id":   row.AggregateID.String(),
			"created_at":     row.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
}
