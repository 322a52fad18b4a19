package payloads

import (
	"time"

	"github.com/google/uuid"
)

// OrderCreatedEvent is emitted when checkout opens a pending order.
type OrderCreatedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	BuyerID    uuid.UUID `json:"buyer_id"`
	SellerID   uuid.UUID `json:"seller_id"`
	CartID     uuid.UUID `json:"cart_id"`
	TotalCents int       `json:"total_cents"`
	ItemCount  int       `json:"item_count"`
}

// OrderPaidEvent is emitted once the payment processor confirms the order.
type OrderPaidEvent struct {
	OrderID         uuid.UUID `json:"order_id"`
	BuyerID         uuid.UUID `json:"buyer_id"`
	SellerID        uuid.UUID `json:"seller_id"`
	TotalCents      int       `json:"total_cents"`
	StripePaymentID string    `json:"stripe_payment_id,omitempty"`
	PaidAt          time.Time `json:"paid_at"`
}

// OrderCompletedEvent is emitted when the seller marks the order picked up.
type OrderCompletedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	BuyerID     uuid.UUID `json:"buyer_id"`
	SellerID    uuid.UUID `json:"seller_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// OrderAbandonedEvent is emitted when a pending order is written off.
type OrderAbandonedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	BuyerID     uuid.UUID `json:"buyer_id"`
	SellerID    uuid.UUID `json:"seller_id"`
	Reason      string    `json:"reason"`
	AbandonedAt time.Time `json:"abandoned_at"`
}

// CartConvertedEvent is emitted when a paid order consumes its cart.
type CartConvertedEvent struct {
	CartID  uuid.UUID `json:"cart_id"`
	BuyerID uuid.UUID `json:"buyer_id"`
	OrderID uuid.UUID `json:"order_id"`
}
