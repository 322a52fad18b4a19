package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/phuoc-stack/foodapp-backend/pkg/money"
)

// Cart is the single active cart a buyer holds. SellerID anchors seller
// exclusivity for every item in it.
type Cart struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	BuyerID        uuid.UUID  `gorm:"column:buyer_id;type:uuid;not null;uniqueIndex"`
	SellerID       uuid.UUID  `gorm:"column:seller_id;type:uuid;not null"`
	SellerUsername string     `gorm:"column:seller_username;not null"`
	ExpiresAt      time.Time  `gorm:"column:expires_at;not null"`
	Items          []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at"`
}

// CartItem is one listing line inside a cart. The unit price is frozen when
// the item is added.
type CartItem struct {
	ID                 uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CartID             uuid.UUID `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:idx_cart_items_cart_listing"`
	ListingID          uuid.UUID `gorm:"column:listing_id;type:uuid;not null;uniqueIndex:idx_cart_items_cart_listing"`
	ListingTitle       string    `gorm:"column:listing_title;not null"`
	ListingDescription string    `gorm:"column:listing_description;not null;default:''"`
	ImageURL           *string   `gorm:"column:image_url"`
	Quantity           int       `gorm:"column:quantity;not null"`
	UnitPriceCents     int       `gorm:"column:unit_price_cents;not null"`
	Position           int       `gorm:"column:position;not null;default:0"`
	CreatedAt          time.Time `gorm:"column:created_at"`
	UpdatedAt          time.Time `gorm:"column:updated_at"`
}

// IsExpired reports whether the sliding window has lapsed at now.
func (c Cart) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// TotalCents is the sum of every line total.
func (c Cart) TotalCents() int {
	total := 0
	for _, item := range c.Items {
		total += item.LineTotalCents()
	}
	return total
}

// TotalItems is the sum of every line quantity.
func (c Cart) TotalItems() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// FindItem returns the line for listingID, if present.
func (c *Cart) FindItem(listingID uuid.UUID) *CartItem {
	for i := range c.Items {
		if c.Items[i].ListingID == listingID {
			return &c.Items[i]
		}
	}
	return nil
}

// LineTotalCents is quantity times the price captured when the item was added.
func (i CartItem) LineTotalCents() int {
	return money.LineTotal(i.UnitPriceCents, i.Quantity)
}
