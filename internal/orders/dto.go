package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/phuoc-stack/foodapp-backend/pkg/db/models"
	"github.com/phuoc-stack/foodapp-backend/pkg/enums"
	"github.com/phuoc-stack/foodapp-backend/pkg/money"
)

// OrderItemView is a frozen order line as rendered to either party.
type OrderItemView struct {
	ID             uuid.UUID  `json:"id"`
	ListingID      uuid.UUID  `json:"listingId"`
	ListingTitle   string     `json:"listingTitle"`
	Price          float64    `json:"price"`
	Quantity       int        `json:"quantity"`
	SellerID       *uuid.UUID `json:"sellerId,omitempty"`
	SellerUsername string     `json:"sellerUsername,omitempty"`
	ImageURL       *string    `json:"imageUrl,omitempty"`
}

// OrderView is the order JSON shared by the buyer and seller screens.
// StatusLabel and ProgressStep are derived from Status on every render.
type OrderView struct {
	ID              uuid.UUID         `json:"id"`
	Status          enums.OrderStatus `json:"status"`
	StatusLabel     string            `json:"statusLabel"`
	ProgressStep    int               `json:"progressStep"`
	OrderDate       time.Time         `json:"orderDate"`
	StripePaymentID *string           `json:"stripePaymentId"`
	UserID          uuid.UUID         `json:"userId"`
	Username        string            `json:"username"`
	Items           []OrderItemView   `json:"items"`
	TotalAmount     float64           `json:"totalAmount"`
	ViewerRole      enums.OrderRole   `json:"viewerRole,omitempty"`
}

// RoleOrder is an order tagged with the side the caller is on.
type RoleOrder struct {
	Order OrderView
	Role  enums.OrderRole
}

// NewOrderView projects a stored order. The payment reference is the payment
// intent once known and the checkout session before that.
func NewOrderView(o *models.Order) OrderView {
	items := make([]OrderItemView, 0, len(o.Items))
	for _, item := range o.Items {
		view := OrderItemView{
			ID:             item.ID,
			ListingID:      item.ListingID,
			ListingTitle:   item.ListingTitle,
			Price:          money.Dollars(item.UnitPriceCents),
			Quantity:       item.Quantity,
			SellerUsername: item.SellerUsername,
			ImageURL:       item.ImageURL,
		}
		if item.SellerID != uuid.Nil {
			sellerID := item.SellerID
			view.SellerID = &sellerID
		}
		items = append(items, view)
	}

	paymentRef := o.StripePaymentID
	if paymentRef == nil || *paymentRef == "" {
		paymentRef = o.StripeSessionID
	}

	return OrderView{
		ID:              o.ID,
		Status:          o.Status,
		StatusLabel:     o.Status.Label(),
		ProgressStep:    o.Status.ProgressStep(),
		OrderDate:       o.CreatedAt.UTC(),
		StripePaymentID: paymentRef,
		UserID:          o.BuyerID,
		Username:        o.BuyerUsername,
		Items:           items,
		TotalAmount:     money.Dollars(o.TotalCents),
	}
}

func newOrderViews(rows []models.Order) []OrderView {
	views := make([]OrderView, 0, len(rows))
	for i := range rows {
		views = append(views, NewOrderView(&rows[i]))
	}
	return views
}

// roleOf reports which side of the order callerID is on.
func roleOf(o *models.Order, callerID uuid.UUID) (enums.OrderRole, bool) {
	if callerID == uuid.Nil {
		return "", false
	}
	if o.BuyerID == callerID {
		return enums.OrderRoleBuyer, true
	}
	if o.SellerID == callerID {
		return enums.OrderRoleSeller, true
	}
	for _, item := range o.Items {
		if item.SellerID == callerID {
			return enums.OrderRoleSeller, true
		}
	}
	return "", false
}
