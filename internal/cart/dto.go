package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/phuoc-stack/foodapp-backend/pkg/db/models"
	"github.com/phuoc-stack/foodapp-backend/pkg/money"
)

// CartItemView is one line of the cart response.
type CartItemView struct {
	ID                 uuid.UUID `json:"id"`
	ListingID          uuid.UUID `json:"listingId"`
	ListingTitle       string    `json:"listingTitle"`
	ListingDescription string    `json:"listingDescription"`
	ImageURL           *string   `json:"imageUrl,omitempty"`
	Quantity           int       `json:"quantity"`
	PriceAtTimeAdded   float64   `json:"priceAtTimeAdded"`
	ItemTotal          float64   `json:"itemTotal"`
}

// CartView is the cart as shown to its buyer. A buyer without a cart gets the
// zero view with an empty item list.
type CartView struct {
	ID             *uuid.UUID     `json:"id"`
	SellerUsername string         `json:"sellerUsername"`
	SellerID       *uuid.UUID     `json:"sellerId"`
	TotalPrice     float64        `json:"totalPrice"`
	TotalItems     int            `json:"totalItems"`
	Items          []CartItemView `json:"items"`
	CreatedAt      *time.Time     `json:"createdAt"`
	ExpiresAt      *time.Time     `json:"expiresAt"`
	Expired        bool           `json:"expired"`
}

// EmptyView is returned when the buyer holds no cart.
func EmptyView() CartView {
	return CartView{Items: []CartItemView{}}
}

// NewCartView projects the stored cart, evaluating expiry against now.
func NewCartView(c *models.Cart, now time.Time) CartView {
	if c == nil {
		return EmptyView()
	}
	id := c.ID
	sellerID := c.SellerID
	createdAt := c.CreatedAt.UTC()
	expiresAt := c.ExpiresAt.UTC()

	items := make([]CartItemView, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, CartItemView{
			ID:                 item.ID,
			ListingID:          item.ListingID,
			ListingTitle:       item.ListingTitle,
			ListingDescription: item.ListingDescription,
			ImageURL:           item.ImageURL,
			Quantity:           item.Quantity,
			PriceAtTimeAdded:   money.Dollars(item.UnitPriceCents),
			ItemTotal:          money.Dollars(item.LineTotalCents()),
		})
	}

	return CartView{
		ID:             &id,
		SellerUsername: c.SellerUsername,
		SellerID:       &sellerID,
		TotalPrice:     money.Dollars(c.TotalCents()),
		TotalItems:     c.TotalItems(),
		Items:          items,
		CreatedAt:      &createdAt,
		ExpiresAt:      &expiresAt,
		Expired:        c.IsExpired(now),
	}
}
