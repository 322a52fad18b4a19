package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/phuoc-stack/foodapp-backend/pkg/enums"
	"github.com/phuoc-stack/foodapp-backend/pkg/money"
)

// Order is the immutable record of a checkout. Only Status and the payment
// bookkeeping columns change after creation.
type Order struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	BuyerID         uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null;index"`
	BuyerUsername   string            `gorm:"column:buyer_username;not null"`
	SellerID        uuid.UUID         `gorm:"column:seller_id;type:uuid;not null;index"`
	SellerUsername  string            `gorm:"column:seller_username;not null"`
	CartID          uuid.UUID         `gorm:"column:cart_id;type:uuid;not null"`
	Status          enums.OrderStatus `gorm:"column:status;not null;default:'PENDING'"`
	TotalCents      int               `gorm:"column:total_cents;not null"`
	Currency        string            `gorm:"column:currency;not null;default:'usd'"`
	StripeSessionID *string           `gorm:"column:stripe_session_id;uniqueIndex"`
	StripePaymentID *string           `gorm:"column:stripe_payment_id"`
	PaidAt          *time.Time        `gorm:"column:paid_at"`
	CompletedAt     *time.Time        `gorm:"column:completed_at"`
	AbandonedAt     *time.Time        `gorm:"column:abandoned_at"`
	Items           []OrderItem       `gorm:"foreignKey:OrderID"`
	CreatedAt       time.Time         `gorm:"column:created_at"`
	UpdatedAt       time.Time         `gorm:"column:updated_at"`
}

// OrderItem is a frozen copy of a cart line at checkout time.
type OrderItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	ListingID      uuid.UUID `gorm:"column:listing_id;type:uuid;not null"`
	ListingTitle   string    `gorm:"column:listing_title;not null"`
	Quantity       int       `gorm:"column:quantity;not null"`
	UnitPriceCents int       `gorm:"column:unit_price_cents;not null"`
	SellerID       uuid.UUID `gorm:"column:seller_id;type:uuid;not null;index"`
	SellerUsername string    `gorm:"column:seller_username;not null"`
	ImageURL       *string   `gorm:"column:image_url"`
	Position       int       `gorm:"column:position;not null;default:0"`
	CreatedAt      time.Time `gorm:"column:created_at"`
}

// ItemsTotalCents recomputes the total from the frozen lines.
func (o Order) ItemsTotalCents() int {
	total := 0
	for _, item := range o.Items {
		total += item.LineTotalCents()
	}
	return total
}

// LineTotalCents is quantity times the frozen unit price.
func (i OrderItem) LineTotalCents() int {
	return money.LineTotal(i.UnitPriceCents, i.Quantity)
}
