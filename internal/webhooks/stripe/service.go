package stripewebhook

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/phuoc-stack/foodapp-backend/internal/orders"
	pkgerrors "github.com/phuoc-stack/foodapp-backend/pkg/errors"
	"github.com/phuoc-stack/foodapp-backend/pkg/logger"
	pkgstripe "github.com/phuoc-stack/foodapp-backend/pkg/stripe"
)

type orderPayments interface {
	ConfirmPayment(ctx context.Context, input orders.ConfirmPaymentInput) error
	Abandon(ctx context.Context, orderID uuid.UUID, reason string) (bool, error)
}

type ServiceParams struct {
	Orders orderPayments
	Logger *logger.Logger
}

// Service applies Stripe checkout events to the order ledger.
type Service struct {
	orders orderPayments
	logg   *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders service required")
	}
	return &Service{orders: params.Orders, logg: params.Logger}, nil
}

// HandleEvent acknowledges every event type; only checkout session events
// change state.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		sess, err := decodeSession(event)
		if err != nil {
			return err
		}
		// Delayed payment methods complete the session before funds arrive.
		if sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
			s.info(ctx, sess, "stripe.checkout_awaiting_payment")
			return nil
		}
		return s.confirm(ctx, sess)
	case stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		sess, err := decodeSession(event)
		if err != nil {
			return err
		}
		return s.confirm(ctx, sess)
	case stripe.EventTypeCheckoutSessionExpired:
		sess, err := decodeSession(event)
		if err != nil {
			return err
		}
		return s.abandon(ctx, sess, orders.AbandonReasonSessionExpired)
	case stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		sess, err := decodeSession(event)
		if err != nil {
			return err
		}
		return s.abandon(ctx, sess, orders.AbandonReasonPaymentFailed)
	default:
		return nil
	}
}

func decodeSession(event *stripe.Event) (*stripe.CheckoutSession, error) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session event")
	}
	if sess.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout session id missing")
	}
	return &sess, nil
}

func (s *Service) confirm(ctx context.Context, sess *stripe.CheckoutSession) error {
	input := orders.ConfirmPaymentInput{
		OrderID:   orderIDFromSession(sess),
		SessionID: sess.ID,
	}
	if sess.PaymentIntent != nil {
		input.PaymentIntentID = sess.PaymentIntent.ID
	}
	err := s.orders.ConfirmPayment(ctx, input)
	if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		// Sessions opened outside this service are acknowledged so Stripe
		// stops redelivering them.
		s.warn(ctx, sess, "stripe.checkout_order_missing")
		return nil
	}
	return err
}

func (s *Service) abandon(ctx context.Context, sess *stripe.CheckoutSession, reason string) error {
	orderID := orderIDFromSession(sess)
	if orderID == uuid.Nil {
		s.warn(ctx, sess, "stripe.checkout_order_missing")
		return nil
	}
	changed, err := s.orders.Abandon(ctx, orderID, reason)
	if err != nil {
		return err
	}
	if !changed {
		s.info(ctx, sess, "stripe.checkout_abandon_skipped")
	}
	return nil
}

// orderIDFromSession prefers the metadata written at session creation and
// falls back to the client reference id.
func orderIDFromSession(sess *stripe.CheckoutSession) uuid.UUID {
	candidates := []string{sess.ClientReferenceID}
	if sess.Metadata != nil {
		candidates = append([]string{sess.Metadata[pkgstripe.MetadataOrderID]}, candidates...)
	}
	for _, raw := range candidates {
		if id, err := uuid.Parse(strings.TrimSpace(raw)); err == nil {
			return id
		}
	}
	return uuid.Nil
}

func (s *Service) info(ctx context.Context, sess *stripe.CheckoutSession, msg string) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logg.WithField(ctx, "stripe_session_id", sess.ID), msg)
}

func (s *Service) warn(ctx context.Context, sess *stripe.CheckoutSession, msg string) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "stripe_session_id", sess.ID), msg)
}
