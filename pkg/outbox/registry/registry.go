// Package registry maps outbox event types to their topic and payload type,
// and decodes stored rows before they are published.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/phuoc-stack/foodapp-backend/pkg/config"
	"github.com/phuoc-stack/foodapp-backend/pkg/db/models"
	"github.com/phuoc-stack/foodapp-backend/pkg/enums"
	"github.com/phuoc-stack/foodapp-backend/pkg/outbox"
	"github.com/phuoc-stack/foodapp-backend/pkg/outbox/payloads"
)

type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	decode        func(json.RawMessage) (any, error)
}

type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.Envelope
	// Payload is a pointer to the payloads struct for the event type.
	Payload any
}

type EventRegistry struct {
	byType map[enums.OutboxEventType]EventDescriptor
}

// NewEventRegistry routes every order lifecycle event, and the cart
// conversion that accompanies checkout, to the orders topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.OrdersTopic == "" {
		return nil, errors.New("orders topic is required")
	}
	order := func(t enums.OutboxEventType, decode func(json.RawMessage) (any, error)) EventDescriptor {
		return EventDescriptor{EventType: t, AggregateType: enums.AggregateOrder, Topic: cfg.OrdersTopic, decode: decode}
	}

	r := &EventRegistry{byType: map[enums.OutboxEventType]EventDescriptor{}}
	for _, d := range []EventDescriptor{
		order(enums.EventOrderCreated, decodeInto[payloads.OrderCreatedEvent]),
		order(enums.EventOrderPaid, decodeInto[payloads.OrderPaidEvent]),
		order(enums.EventOrderCompleted, decodeInto[payloads.OrderCompletedEvent]),
		order(enums.EventOrderAbandoned, decodeInto[payloads.OrderAbandonedEvent]),
		{
			EventType:     enums.EventCartConverted,
			AggregateType: enums.AggregateCart,
			Topic:         cfg.OrdersTopic,
			decode:        decodeInto[payloads.CartConvertedEvent],
		},
	} {
		r.byType[d.EventType] = d
	}
	return r, nil
}

func decodeInto[T any](data json.RawMessage) (any, error) {
	v := new(T)
	if err := json.Unmarshal(data, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Resolve checks a row against its descriptor and decodes the payload.
// Every failure is a NonRetryableError: the row will never decode.
func (r *EventRegistry) Resolve(row models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.byType[row.EventType]
	switch {
	case !ok:
		return nil, NewNonRetryableError(fmt.Errorf("no descriptor for event type %q", row.EventType))
	case desc.AggregateType != row.AggregateType:
		return nil, NewNonRetryableError(fmt.Errorf("%s belongs to %s aggregates, row says %s", row.EventType, desc.AggregateType, row.AggregateType))
	case row.AggregateID == uuid.Nil:
		return nil, NewNonRetryableError(errors.New("row has no aggregate id"))
	}

	var env outbox.Envelope
	if err := json.Unmarshal(row.Payload, &env); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("envelope: %w", err))
	}
	if data := bytes.TrimSpace(env.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, NewNonRetryableError(fmt.Errorf("%s envelope carries no data", row.EventType))
	}
	payload, err := desc.decode(env.Data)
	if err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("%s data: %w", row.EventType, err))
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: env, Payload: payload}, nil
}
