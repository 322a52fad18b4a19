package stripe

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"
)

// MetadataOrderID is the session metadata key carrying the local order id.
const MetadataOrderID = "order_id"

// CheckoutLine is one priced line on a hosted checkout page.
type CheckoutLine struct {
	Name            string
	UnitAmountCents int64
	Quantity        int64
}

// CheckoutSessionRequest describes the hosted session opened for one order.
type CheckoutSessionRequest struct {
	OrderID    string
	BuyerID    string
	Lines      []CheckoutLine
	SuccessURL string
	CancelURL  string
}

// CheckoutSession is the processor handle returned to the buyer.
type CheckoutSession struct {
	ID  string
	URL string
}

// CreateCheckoutSession opens a one-off payment session priced from the order lines.
func (c *Client) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSession, error) {
	if c == nil {
		return nil, errors.New("stripe client not configured")
	}
	if strings.TrimSpace(req.OrderID) == "" {
		return nil, errors.New("order id is required")
	}
	if len(req.Lines) == 0 {
		return nil, errors.New("at least one line is required")
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.OrderID),
		LineItems:         make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Lines)),
	}
	for _, line := range req.Lines {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(c.Currency()),
				UnitAmount: stripe.Int64(line.UnitAmountCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(line.Name),
				},
			},
			Quantity: stripe.Int64(line.Quantity),
		})
	}
	params.AddMetadata(MetadataOrderID, req.OrderID)
	if req.BuyerID != "" {
		params.AddMetadata("buyer_id", req.BuyerID)
	}
	params.Context = ctx

	sess, err := session.New(params)
	if err != nil {
		return nil, err
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}
