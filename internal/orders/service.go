package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/phuoc-stack/foodapp-backend/pkg/db/models"
	"github.com/phuoc-stack/foodapp-backend/pkg/enums"
	pkgerrors "github.com/phuoc-stack/foodapp-backend/pkg/errors"
	"github.com/phuoc-stack/foodapp-backend/pkg/logger"
	"github.com/phuoc-stack/foodapp-backend/pkg/metrics"
	"github.com/phuoc-stack/foodapp-backend/pkg/outbox"
	"github.com/phuoc-stack/foodapp-backend/pkg/outbox/payloads"
)

// Abandonment reasons recorded on order_abandoned events.
const (
	AbandonReasonCheckoutFailed  = "checkout_failed"
	AbandonReasonSessionExpired  = "session_expired"
	AbandonReasonPaymentTimedOut = "payment_timed_out"
	AbandonReasonPaymentFailed   = "payment_failed"
)

// Service exposes the order ledger and its status machine.
type Service interface {
	ListForBuyer(ctx context.Context, buyerID uuid.UUID, filter enums.OrderStatusFilter) ([]OrderView, error)
	ListForSeller(ctx context.Context, sellerID uuid.UUID, filter enums.OrderStatusFilter) ([]OrderView, error)
	GetByID(ctx context.Context, orderID, callerID uuid.UUID) (*RoleOrder, error)
	GetForBuyer(ctx context.Context, orderID, buyerID uuid.UUID) (OrderView, error)
	UpdateStatus(ctx context.Context, orderID, callerID uuid.UUID, target enums.OrderStatus) (OrderView, error)
	ConfirmPayment(ctx context.Context, input ConfirmPaymentInput) error
	Abandon(ctx context.Context, orderID uuid.UUID, reason string) (bool, error)
}

// ConfirmPaymentInput identifies a paid checkout session.
type ConfirmPaymentInput struct {
	OrderID         uuid.UUID
	SessionID       string
	PaymentIntentID string
}

// ServiceParams wires the order service.
type ServiceParams struct {
	Repo    Repository
	Carts   cartStore
	Tx      txRunner
	Outbox  outboxPublisher
	Now     func() time.Time
	Logger  *logger.Logger
	Metrics *metrics.OrderMetrics
}

type service struct {
	repo    Repository
	carts   cartStore
	tx      txRunner
	outbox  outboxPublisher
	now     func() time.Time
	logg    *logger.Logger
	metrics *metrics.OrderMetrics
}

// NewService builds the order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:    params.Repo,
		carts:   params.Carts,
		tx:      params.Tx,
		outbox:  params.Outbox,
		now:     func() time.Time { return now().UTC() },
		logg:    params.Logger,
		metrics: params.Metrics,
	}, nil
}

func (s *service) ListForBuyer(ctx context.Context, buyerID uuid.UUID, filter enums.OrderStatusFilter) ([]OrderView, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, err := s.repo.ListForBuyer(ctx, buyerID, filterStatus(filter))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list buyer orders")
	}
	return newOrderViews(rows), nil
}

func (s *service) ListForSeller(ctx context.Context, sellerID uuid.UUID, filter enums.OrderStatusFilter) ([]OrderView, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, err := s.repo.ListForSeller(ctx, sellerID, filterStatus(filter))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list seller orders")
	}
	return newOrderViews(rows), nil
}

func filterStatus(filter enums.OrderStatusFilter) *enums.OrderStatus {
	status, ok := filter.Status()
	if !ok {
		return nil
	}
	return &status
}

// GetByID resolves the caller's role on the order in one lookup.
func (s *service) GetByID(ctx context.Context, orderID, callerID uuid.UUID) (*RoleOrder, error) {
	order, err := s.loadVisible(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	role, ok := roleOf(order, callerID)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotAuthorized, "not authorized to view this order")
	}
	view := NewOrderView(order)
	view.ViewerRole = role
	return &RoleOrder{Order: view, Role: role}, nil
}

// GetForBuyer only finds orders the caller bought; anything else reads as
// not found so clients can fall back to the seller lookup.
func (s *service) GetForBuyer(ctx context.Context, orderID, buyerID uuid.UUID) (OrderView, error) {
	order, err := s.loadVisible(ctx, s.repo, orderID)
	if err != nil {
		return OrderView{}, err
	}
	if buyerID == uuid.Nil || order.BuyerID != buyerID {
		return OrderView{}, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	view := NewOrderView(order)
	view.ViewerRole = enums.OrderRoleBuyer
	return view, nil
}

func (s *service) loadVisible(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil || !order.Status.IsVisible() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

// UpdateStatus applies a caller-driven transition. The only one that exists is
// PAID -> COMPLETED by a seller on the order.
func (s *service) UpdateStatus(ctx context.Context, orderID, callerID uuid.UUID, target enums.OrderStatus) (OrderView, error) {
	if callerID == uuid.Nil {
		return OrderView{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !target.IsValid() {
		return OrderView{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockByID(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order == nil || !order.Status.IsVisible() {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		role, ok := roleOf(order, callerID)
		if !ok {
			return pkgerrors.New(pkgerrors.CodeNotAuthorized, "not authorized to update this order")
		}
		if err := checkSellerTransition(order.Status, target, role); err != nil {
			return err
		}

		now := s.now()
		changed, err := repo.TransitionStatus(ctx, order.ID, order.Status, target, map[string]any{
			"completed_at": now,
			"updated_at":   now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !changed {
			return invalidTransition(order.Status, target, "order changed concurrently")
		}
		from := order.Status
		order.Status = target
		order.CompletedAt = &now
		order.UpdatedAt = now

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCompleted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.Actor{UserID: callerID, Role: string(role)},
			OccurredAt:    now,
			Data: payloads.OrderCompletedEvent{
				OrderID:     order.ID,
				BuyerID:     order.BuyerID,
				SellerID:    order.SellerID,
				CompletedAt: now,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order completed")
		}
		s.metrics.IncTransition(string(from), string(target))
		updated = order
		return nil
	})
	if err != nil {
		return OrderView{}, err
	}

	s.logTransition(ctx, updated, "order.completed")
	view := NewOrderView(updated)
	view.ViewerRole = enums.OrderRoleSeller
	return view, nil
}

// checkSellerTransition enforces the caller-driven edges of the status
// machine. PENDING -> PAID belongs to payment confirmation alone.
func checkSellerTransition(current, target enums.OrderStatus, role enums.OrderRole) error {
	if target != enums.OrderStatusCompleted {
		return invalidTransition(current, target, fmt.Sprintf("orders cannot be moved to %s manually", target))
	}
	if role != enums.OrderRoleSeller {
		return invalidTransition(current, target, "only the seller can complete an order")
	}
	if current != enums.OrderStatusPaid {
		return invalidTransition(current, target, fmt.Sprintf("an order in %s cannot be completed", current.Label()))
	}
	return nil
}

func invalidTransition(current, target enums.OrderStatus, msg string) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, msg).WithDetails(map[string]any{
		"currentStatus":   current,
		"requestedStatus": target,
	})
}

// ConfirmPayment marks the order PAID and consumes the buyer's cart in the
// same transaction. Replays for an already paid order are no-ops.
func (s *service) ConfirmPayment(ctx context.Context, input ConfirmPaymentInput) error {
	if input.OrderID == uuid.Nil && input.SessionID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id or checkout session required")
	}

	var paid *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockForPayment(ctx, repo, input)
		if err != nil {
			return err
		}
		switch order.Status {
		case enums.OrderStatusPaid, enums.OrderStatusCompleted:
			return nil
		case enums.OrderStatusAbandoned:
			// Money moved after we gave up on the session; the payment wins.
			if s.logg != nil {
				s.logg.Warn(s.logg.WithOrderID(ctx, order.ID.String()), "order.paid_after_abandon")
			}
		}

		now := s.now()
		updates := map[string]any{"paid_at": now, "updated_at": now}
		if input.PaymentIntentID != "" {
			updates["stripe_payment_id"] = input.PaymentIntentID
		}
		from := order.Status
		changed, err := repo.TransitionStatus(ctx, order.ID, from, enums.OrderStatusPaid, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
		}
		if !changed {
			return pkgerrors.New(pkgerrors.CodeConflict, "order changed concurrently")
		}
		order.Status = enums.OrderStatusPaid
		order.PaidAt = &now

		events := []outbox.DomainEvent{{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			OccurredAt:    now,
			Data: payloads.OrderPaidEvent{
				OrderID:         order.ID,
				BuyerID:         order.BuyerID,
				SellerID:        order.SellerID,
				TotalCents:      order.TotalCents,
				StripePaymentID: input.PaymentIntentID,
				PaidAt:          now,
			},
		}}

		cartRepo := s.carts.WithTx(tx)
		buyerCart, err := cartRepo.LockByBuyer(ctx, order.BuyerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock buyer cart")
		}
		// A cart replaced after checkout belongs to a newer shopping session.
		if buyerCart != nil && buyerCart.ID == order.CartID {
			if err := cartRepo.Delete(ctx, buyerCart.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear converted cart")
			}
			events = append(events, outbox.DomainEvent{
				EventType:     enums.EventCartConverted,
				AggregateType: enums.AggregateCart,
				AggregateID:   buyerCart.ID,
				OccurredAt:    now,
				Data: payloads.CartConvertedEvent{
					CartID:  buyerCart.ID,
					BuyerID: order.BuyerID,
					OrderID: order.ID,
				},
			})
		}

		for _, event := range events {
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payment events")
			}
		}
		s.metrics.IncTransition(string(from), string(enums.OrderStatusPaid))
		paid = order
		return nil
	})
	if err != nil {
		return err
	}
	if paid != nil {
		s.logTransition(ctx, paid, "order.paid")
	}
	return nil
}

func (s *service) lockForPayment(ctx context.Context, repo Repository, input ConfirmPaymentInput) (*models.Order, error) {
	var (
		order *models.Order
		err   error
	)
	if input.OrderID != uuid.Nil {
		order, err = repo.LockByID(ctx, input.OrderID)
	} else {
		order, err = repo.FindByStripeSessionID(ctx, input.SessionID)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if input.SessionID != "" && order.StripeSessionID != nil && *order.StripeSessionID != input.SessionID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout session does not match order")
	}
	return order, nil
}

// Abandon writes off a PENDING order. It reports false when the order had
// already left PENDING.
func (s *service) Abandon(ctx context.Context, orderID uuid.UUID, reason string) (bool, error) {
	var abandoned *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		abandoned, err = AbandonInTx(ctx, tx, s.repo, s.outbox, orderID, reason, s.now())
		return err
	})
	if err != nil {
		return false, err
	}
	if abandoned == nil {
		return false, nil
	}
	s.metrics.IncTransition(string(enums.OrderStatusPending), string(enums.OrderStatusAbandoned))
	if s.logg != nil {
		ctx = s.logg.WithFields(s.logg.WithOrderID(ctx, orderID.String()), map[string]any{"reason": reason})
		s.logg.Info(ctx, "order.abandoned")
	}
	return true, nil
}

// AbandonInTx is Abandon for callers that already hold a transaction. It
// returns nil when the order is not PENDING.
func AbandonInTx(ctx context.Context, tx *gorm.DB, repo Repository, emitter outboxPublisher, orderID uuid.UUID, reason string, now time.Time) (*models.Order, error) {
	txRepo := repo.WithTx(tx)
	order, err := txRepo.LockByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil || order.Status != enums.OrderStatusPending {
		return nil, nil
	}
	changed, err := txRepo.TransitionStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusAbandoned, map[string]any{
		"abandoned_at": now,
		"updated_at":   now,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "abandon order")
	}
	if !changed {
		return nil, nil
	}
	order.Status = enums.OrderStatusAbandoned
	order.AbandonedAt = &now

	event := outbox.DomainEvent{
		EventType:     enums.EventOrderAbandoned,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		OccurredAt:    now,
		Data: payloads.OrderAbandonedEvent{
			OrderID:     order.ID,
			BuyerID:     order.BuyerID,
			SellerID:    order.SellerID,
			Reason:      reason,
			AbandonedAt: now,
		},
	}
	if err := emitter.Emit(ctx, tx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order abandoned")
	}
	return order, nil
}

func (s *service) logTransition(ctx context.Context, order *models.Order, msg string) {
	if s.logg == nil || order == nil {
		return
	}
	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	ctx = s.logg.WithFields(ctx, map[string]any{
		"status":      order.Status,
		"buyer_id":    order.BuyerID.String(),
		"seller_id":   order.SellerID.String(),
		"total_cents": order.TotalCents,
	})
	s.logg.Info(ctx, msg)
}
