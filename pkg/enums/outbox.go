package enums

import "slices"

// OutboxAggregateType is the entity an outbox row describes. The publisher
// uses the aggregate id as the Pub/Sub ordering key.
type OutboxAggregateType string

const (
	AggregateOrder OutboxAggregateType = "order"
	AggregateCart  OutboxAggregateType = "cart"
)

func (a OutboxAggregateType) IsValid() bool {
	return slices.Contains([]OutboxAggregateType{AggregateOrder, AggregateCart}, a)
}

// OutboxEventType names a lifecycle transition. Values are part of the
// published contract and must not be renamed.
type OutboxEventType string

const (
	EventOrderCreated   OutboxEventType = "order_created"
	EventOrderPaid      OutboxEventType = "order_paid"
	EventOrderCompleted OutboxEventType = "order_completed"
	EventOrderAbandoned OutboxEventType = "order_abandoned"
	EventCartConverted  OutboxEventType = "cart_converted"
)

func (e OutboxEventType) IsValid() bool {
	switch e {
	case EventOrderCreated, EventOrderPaid, EventOrderCompleted, EventOrderAbandoned, EventCartConverted:
		return true
	}
	return false
}
