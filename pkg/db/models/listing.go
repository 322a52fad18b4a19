package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/phuoc-stack/foodapp-backend/pkg/enums"
)

// Listing is a homemade-food item authored by a seller. The cart and order
// core only reads it.
type Listing struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	SellerID        uuid.UUID           `gorm:"column:seller_id;type:uuid;not null;index"`
	Seller          User                `gorm:"foreignKey:SellerID"`
	Title           string              `gorm:"column:title;not null"`
	Description     string              `gorm:"column:description;not null;default:''"`
	PriceCents      int                 `gorm:"column:price_cents;not null"`
	PickupStartTime time.Time           `gorm:"column:pickup_start_time;not null"`
	PickupEndTime   time.Time           `gorm:"column:pickup_end_time;not null"`
	PickupAddress   string              `gorm:"column:pickup_address;not null"`
	ImageURL        *string             `gorm:"column:image_url"`
	Status          enums.ListingStatus `gorm:"column:status;not null;default:'AVAILABLE'"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
