package checkout

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/phuoc-stack/foodapp-backend/internal/cart"
	"github.com/phuoc-stack/foodapp-backend/internal/orders"
	"github.com/phuoc-stack/foodapp-backend/pkg/db/models"
	"github.com/phuoc-stack/foodapp-backend/pkg/enums"
	pkgerrors "github.com/phuoc-stack/foodapp-backend/pkg/errors"
	"github.com/phuoc-stack/foodapp-backend/pkg/logger"
	"github.com/phuoc-stack/foodapp-backend/pkg/metrics"
	"github.com/phuoc-stack/foodapp-backend/pkg/money"
	"github.com/phuoc-stack/foodapp-backend/pkg/outbox"
	"github.com/phuoc-stack/foodapp-backend/pkg/outbox/payloads"
	"github.com/phuoc-stack/foodapp-backend/pkg/stripe"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type cartStore interface {
	WithTx(tx *gorm.DB) cart.CartRepository
}

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// SessionCreator opens hosted payment sessions with the processor.
type SessionCreator interface {
	CreateCheckoutSession(ctx context.Context, req stripe.CheckoutSessionRequest) (*stripe.CheckoutSession, error)
}

// Service converts a buyer's active cart into a pending order.
type Service interface {
	Checkout(ctx context.Context, buyerID uuid.UUID) (*Result, error)
}

// Result is the redirect handle returned to the buyer.
type Result struct {
	CheckoutURL string    `json:"checkoutUrl"`
	OrderID     uuid.UUID `json:"orderId"`
}

// ServiceParams wires the checkout service.
type ServiceParams struct {
	Tx         txRunner
	Carts      cartStore
	Orders     orders.Repository
	Users      userLoader
	Sessions   SessionCreator
	Outbox     outboxPublisher
	SuccessURL string
	CancelURL  string
	Currency   string
	Now        func() time.Time
	Logger     *logger.Logger
	Metrics    *metrics.OrderMetrics
}

type service struct {
	tx         txRunner
	carts      cartStore
	orders     orders.Repository
	users      userLoader
	sessions   SessionCreator
	outbox     outboxPublisher
	successURL string
	cancelURL  string
	currency   string
	now        func() time.Time
	logg       *logger.Logger
	metrics    *metrics.OrderMetrics
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user loader required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session creator required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if strings.TrimSpace(params.SuccessURL) == "" || strings.TrimSpace(params.CancelURL) == "" {
		return nil, fmt.Errorf("success and cancel urls required")
	}
	currency := strings.ToLower(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = "usd"
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		tx:         params.Tx,
		carts:      params.Carts,
		orders:     params.Orders,
		users:      params.Users,
		sessions:   params.Sessions,
		outbox:     params.Outbox,
		successURL: params.SuccessURL,
		cancelURL:  params.CancelURL,
		currency:   currency,
		now:        func() time.Time { return now().UTC() },
		logg:       params.Logger,
		metrics:    params.Metrics,
	}, nil
}

// Checkout snapshots the cart into a PENDING order and opens a payment
// session for it. The cart survives until the payment is confirmed.
func (s *service) Checkout(ctx context.Context, buyerID uuid.UUID) (*Result, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	buyer, err := s.users.FindByID(ctx, buyerID)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user not found")
		}
		return nil, err
	}

	now := s.now()
	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		active, err := s.carts.WithTx(tx).LockByBuyer(ctx, buyerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if active == nil || len(active.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
		}
		if active.IsExpired(now) {
			return pkgerrors.New(pkgerrors.CodeCartExpired, "cart has expired").
				WithDetails(map[string]any{"expiresAt": active.ExpiresAt})
		}

		order = snapshotOrder(active, buyer, s.currency, now)
		if err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.Actor{UserID: buyerID, Role: string(enums.OrderRoleBuyer)},
			OccurredAt:    now,
			Data: payloads.OrderCreatedEvent{
				OrderID:    order.ID,
				BuyerID:    order.BuyerID,
				SellerID:   order.SellerID,
				CartID:     order.CartID,
				TotalCents: order.TotalCents,
				ItemCount:  len(order.Items),
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order created")
		}
		return nil
	})
	if err != nil {
		if pkgerrors.IsDomain(err) {
			s.metrics.IncCheckout(metrics.CheckoutRefused)
		}
		return nil, err
	}

	ctx = s.logContext(ctx, order)
	session, err := s.sessions.CreateCheckoutSession(ctx, s.sessionRequest(order))
	if err != nil || session == nil || session.URL == "" {
		if err == nil {
			err = fmt.Errorf("processor returned no checkout url")
		}
		return nil, s.abandon(ctx, order, err)
	}

	if err := s.orders.AttachCheckoutSession(ctx, order.ID, session.ID); err != nil {
		// The session carries the order id in its metadata, so confirmation
		// still finds the order without the stored session id.
		s.logError(ctx, "checkout.attach_session_failed", err)
	}

	s.metrics.IncCheckout(metrics.CheckoutStarted)
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "stripe_session_id", session.ID), "order.created")
	}
	return &Result{CheckoutURL: session.URL, OrderID: order.ID}, nil
}

// abandon writes off an order whose processor handoff failed.
func (s *service) abandon(ctx context.Context, order *models.Order, cause error) error {
	s.metrics.IncCheckout(metrics.CheckoutFailed)
	s.logError(ctx, "checkout.session_failed", cause)

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := orders.AbandonInTx(ctx, tx, s.orders, s.outbox, order.ID, orders.AbandonReasonCheckoutFailed, s.now())
		return err
	})
	if err != nil {
		s.logError(ctx, "checkout.abandon_failed", err)
	} else {
		s.metrics.IncTransition(string(enums.OrderStatusPending), string(enums.OrderStatusAbandoned))
	}
	return pkgerrors.Wrap(pkgerrors.CodeCheckoutInitiationFailed, cause, "could not start payment, please try again")
}

func (s *service) sessionRequest(order *models.Order) stripe.CheckoutSessionRequest {
	lines := make([]stripe.CheckoutLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, stripe.CheckoutLine{
			Name:            item.ListingTitle,
			UnitAmountCents: int64(item.UnitPriceCents),
			Quantity:        int64(item.Quantity),
		})
	}
	return stripe.CheckoutSessionRequest{
		OrderID:    order.ID.String(),
		BuyerID:    order.BuyerID.String(),
		Lines:      lines,
		SuccessURL: withOrderID(s.successURL, order.ID),
		CancelURL:  withOrderID(s.cancelURL, order.ID),
	}
}

func snapshotOrder(c *models.Cart, buyer *models.User, currency string, now time.Time) *models.Order {
	order := &models.Order{
		ID:             uuid.New(),
		BuyerID:        buyer.ID,
		BuyerUsername:  buyer.Username,
		SellerID:       c.SellerID,
		SellerUsername: c.SellerUsername,
		CartID:         c.ID,
		Status:         enums.OrderStatusPending,
		TotalCents:     c.TotalCents(),
		Currency:       currency,
		CreatedAt:      now,
		UpdatedAt:      now,
		Items:          make([]models.OrderItem, 0, len(c.Items)),
	}
	for i, item := range c.Items {
		order.Items = append(order.Items, models.OrderItem{
			ID:             uuid.New(),
			OrderID:        order.ID,
			ListingID:      item.ListingID,
			ListingTitle:   item.ListingTitle,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			SellerID:       c.SellerID,
			SellerUsername: c.SellerUsername,
			ImageURL:       item.ImageURL,
			Position:       i,
			CreatedAt:      now,
		})
	}
	return order
}

// RedirectURLs joins the public site origin with the success and cancel paths.
func RedirectURLs(baseURL, successPath, cancelPath string) (string, string) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	join := func(path string) string {
		path = strings.TrimSpace(path)
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		return base + path
	}
	return join(successPath), join(cancelPath)
}

// withOrderID appends the order id and, for Stripe, the session placeholder.
func withOrderID(raw string, orderID uuid.UUID) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Set("order_id", orderID.String())
	u.RawQuery = q.Encode()
	// Stripe substitutes the literal placeholder, so it must stay unescaped.
	return u.String() + "&session_id={CHECKOUT_SESSION_ID}"
}

func (s *service) logContext(ctx context.Context, order *models.Order) context.Context {
	if s.logg == nil {
		return ctx
	}
	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	return s.logg.WithFields(ctx, map[string]any{
		"buyer_id":   order.BuyerID.String(),
		"seller_id":  order.SellerID.String(),
		"total":      money.String(order.TotalCents),
		"item_count": len(order.Items),
	})
}

func (s *service) logError(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Error(ctx, msg, err)
}
