package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/phuoc-stack/foodapp-backend/internal/cart"
	"github.com/phuoc-stack/foodapp-backend/pkg/db"
	"github.com/phuoc-stack/foodapp-backend/pkg/db/dbtest"
	"github.com/phuoc-stack/foodapp-backend/pkg/db/models"
	"github.com/phuoc-stack/foodapp-backend/pkg/enums"
	pkgerrors "github.com/phuoc-stack/foodapp-backend/pkg/errors"
	"github.com/phuoc-stack/foodapp-backend/pkg/outbox"
)

type ordersFixture struct {
	conn   *gorm.DB
	repo   Repository
	svc    Service
	now    time.Time
	buyer  models.User
	seller models.User
	other  models.User
}

func newOrdersFixture(t *testing.T) *ordersFixture {
	t.Helper()
	conn := dbtest.Open(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := NewRepository(conn)
	svc, err := NewService(ServiceParams{
		Repo:   repo,
		Carts:  cart.NewRepository(conn),
		Tx:     db.NewFromConn(conn),
		Outbox: outbox.NewService(outbox.NewRepository(conn), nil),
		Now:    func() time.Time { return now },
	})
	require.NoError(t, err)
	return &ordersFixture{
		conn:   conn,
		repo:   repo,
		svc:    svc,
		now:    now,
		buyer:  dbtest.SeedUser(t, conn, "buyer"),
		seller: dbtest.SeedUser(t, conn, "seller"),
		other:  dbtest.SeedUser(t, conn, "stranger"),
	}
}

func (f *ordersFixture) seedOrder(t *testing.T, status enums.OrderStatus, createdAt time.Time) *models.Order {
	t.Helper()
	session := "cs_test_" + uuid.NewString()
	order := &models.Order{
		ID:              uuid.New(),
		BuyerID:         f.buyer.ID,
		BuyerUsername:   f.buyer.Username,
		SellerID:        f.seller.ID,
		SellerUsername:  f.seller.Username,
		CartID:          uuid.New(),
		Status:          status,
		TotalCents:      2100,
		Currency:        "usd",
		StripeSessionID: &session,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
		Items: []models.OrderItem{
			{ListingID: uuid.New(), ListingTitle: "Tamales", Quantity: 1, UnitPriceCents: 1000, SellerID: f.seller.ID, SellerUsername: f.seller.Username, Position: 0},
			{ListingID: uuid.New(), ListingTitle: "Horchata", Quantity: 2, UnitPriceCents: 550, SellerID: f.seller.ID, SellerUsername: f.seller.Username, Position: 1},
		},
	}
	require.NoError(t, f.repo.Create(context.Background(), order))
	return order
}

func (f *ordersFixture) status(t *testing.T, id uuid.UUID) enums.OrderStatus {
	t.Helper()
	var order models.Order
	require.NoError(t, f.conn.First(&order, "id = ?", id).Error)
	return order.Status
}

func (f *ordersFixture) outboxCount(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&n).Error)
	return n
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	require.True(t, pkgerrors.HasCode(err, code), "expected %s, got %v", code, err)
}

func TestListFiltersAndHidesAbandoned(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()

	pending := f.seedOrder(t, enums.OrderStatusPending, f.now.Add(-3*time.Hour))
	paid := f.seedOrder(t, enums.OrderStatusPaid, f.now.Add(-2*time.Hour))
	f.seedOrder(t, enums.OrderStatusAbandoned, f.now.Add(-time.Hour))

	all, err := f.svc.ListForBuyer(ctx, f.buyer.ID, enums.OrderStatusFilterAll)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, paid.ID, all[0].ID, "newest first")
	require.Equal(t, pending.ID, all[1].ID)

	onlyPaid, err := f.svc.ListForBuyer(ctx, f.buyer.ID, enums.OrderStatusFilter(enums.OrderStatusPaid))
	require.NoError(t, err)
	require.Len(t, onlyPaid, 1)
	require.Equal(t, "Preparing", onlyPaid[0].StatusLabel)
	require.Equal(t, 1, onlyPaid[0].ProgressStep)

	sales, err := f.svc.ListForSeller(ctx, f.seller.ID, enums.OrderStatusFilterAll)
	require.NoError(t, err)
	require.Len(t, sales, 2)

	none, err := f.svc.ListForSeller(ctx, f.other.ID, enums.OrderStatusFilterAll)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestListForSellerMatchesItemSellers(t *testing.T) {
	f := newOrdersFixture(t)
	order := f.seedOrder(t, enums.OrderStatusPaid, f.now)
	// Rows written before the order-level seller column was populated only
	// carry the seller on items.
	require.NoError(t, f.conn.Model(&models.Order{}).Where("id = ?", order.ID).Update("seller_id", uuid.New()).Error)

	sales, err := f.svc.ListForSeller(context.Background(), f.seller.ID, enums.OrderStatusFilterAll)
	require.NoError(t, err)
	require.Len(t, sales, 1)
}

func TestOrderViewShape(t *testing.T) {
	f := newOrdersFixture(t)
	order := f.seedOrder(t, enums.OrderStatusPending, f.now)

	got, err := f.svc.GetForBuyer(context.Background(), order.ID, f.buyer.ID)
	require.NoError(t, err)
	require.Equal(t, 21.0, got.TotalAmount)
	require.Equal(t, "Pending Payment", got.StatusLabel)
	require.Equal(t, 0, got.ProgressStep)
	require.Equal(t, f.buyer.ID, got.UserID)
	require.Equal(t, "buyer", got.Username)
	require.NotNil(t, got.StripePaymentID)
	require.Equal(t, *order.StripeSessionID, *got.StripePaymentID)
	require.Len(t, got.Items, 2)
	require.Equal(t, 5.5, got.Items[1].Price)
	require.Equal(t, f.seller.ID, *got.Items[0].SellerID)
}

func TestGetByIDTagsRole(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()
	order := f.seedOrder(t, enums.OrderStatusPaid, f.now)

	asBuyer, err := f.svc.GetByID(ctx, order.ID, f.buyer.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderRoleBuyer, asBuyer.Role)

	asSeller, err := f.svc.GetByID(ctx, order.ID, f.seller.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderRoleSeller, asSeller.Role)
	require.Equal(t, enums.OrderRoleSeller, asSeller.Order.ViewerRole)

	_, err = f.svc.GetByID(ctx, order.ID, f.other.ID)
	requireCode(t, err, pkgerrors.CodeNotAuthorized)

	_, err = f.svc.GetByID(ctx, uuid.New(), f.buyer.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = f.svc.GetForBuyer(ctx, order.ID, f.seller.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestUpdateStatusTransitions(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()

	pending := f.seedOrder(t, enums.OrderStatusPending, f.now)
	_, err := f.svc.UpdateStatus(ctx, pending.ID, f.seller.ID, enums.OrderStatusCompleted)
	requireCode(t, err, pkgerrors.CodeInvalidTransition)
	require.Equal(t, enums.OrderStatusPending, f.status(t, pending.ID))

	_, err = f.svc.UpdateStatus(ctx, pending.ID, f.seller.ID, enums.OrderStatusPaid)
	requireCode(t, err, pkgerrors.CodeInvalidTransition)
	require.Equal(t, enums.OrderStatusPending, f.status(t, pending.ID))

	paid := f.seedOrder(t, enums.OrderStatusPaid, f.now)
	_, err = f.svc.UpdateStatus(ctx, paid.ID, f.buyer.ID, enums.OrderStatusCompleted)
	requireCode(t, err, pkgerrors.CodeInvalidTransition)
	_, err = f.svc.UpdateStatus(ctx, paid.ID, f.other.ID, enums.OrderStatusCompleted)
	requireCode(t, err, pkgerrors.CodeNotAuthorized)
	require.Equal(t, enums.OrderStatusPaid, f.status(t, paid.ID))

	done, err := f.svc.UpdateStatus(ctx, paid.ID, f.seller.ID, enums.OrderStatusCompleted)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusCompleted, done.Status)
	require.Equal(t, "Completed", done.StatusLabel)
	require.Equal(t, 2, done.ProgressStep)
	require.Equal(t, 21.0, done.TotalAmount)
	require.Len(t, done.Items, 2)
	require.Equal(t, int64(1), f.outboxCount(t, enums.EventOrderCompleted))

	_, err = f.svc.UpdateStatus(ctx, paid.ID, f.seller.ID, enums.OrderStatusCompleted)
	requireCode(t, err, pkgerrors.CodeInvalidTransition)
	require.Equal(t, int64(1), f.outboxCount(t, enums.EventOrderCompleted), "second completion has no side effect")
}

func TestConfirmPaymentClearsMatchingCart(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()
	order := f.seedOrder(t, enums.OrderStatusPending, f.now)

	buyerCart := models.Cart{
		ID:             order.CartID,
		BuyerID:        f.buyer.ID,
		SellerID:       f.seller.ID,
		SellerUsername: f.seller.Username,
		ExpiresAt:      f.now.Add(time.Hour),
	}
	require.NoError(t, f.conn.Create(&buyerCart).Error)

	err := f.svc.ConfirmPayment(ctx, ConfirmPaymentInput{
		OrderID:         order.ID,
		SessionID:       *order.StripeSessionID,
		PaymentIntentID: "pi_123",
	})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPaid, f.status(t, order.ID))

	var carts int64
	require.NoError(t, f.conn.Model(&models.Cart{}).Count(&carts).Error)
	require.Zero(t, carts)
	require.Equal(t, int64(1), f.outboxCount(t, enums.EventOrderPaid))
	require.Equal(t, int64(1), f.outboxCount(t, enums.EventCartConverted))

	view, err := f.svc.GetForBuyer(ctx, order.ID, f.buyer.ID)
	require.NoError(t, err)
	require.Equal(t, "pi_123", *view.StripePaymentID)

	// Replayed confirmation is a no-op.
	require.NoError(t, f.svc.ConfirmPayment(ctx, ConfirmPaymentInput{OrderID: order.ID, PaymentIntentID: "pi_123"}))
	require.Equal(t, int64(1), f.outboxCount(t, enums.EventOrderPaid))
}

func TestConfirmPaymentKeepsNewerCart(t *testing.T) {
	f := newOrdersFixture(t)
	order := f.seedOrder(t, enums.OrderStatusPending, f.now)
	newer := models.Cart{
		ID:             uuid.New(),
		BuyerID:        f.buyer.ID,
		SellerID:       f.other.ID,
		SellerUsername: f.other.Username,
		ExpiresAt:      f.now.Add(time.Hour),
	}
	require.NoError(t, f.conn.Create(&newer).Error)

	require.NoError(t, f.svc.ConfirmPayment(context.Background(), ConfirmPaymentInput{SessionID: *order.StripeSessionID}))

	var carts int64
	require.NoError(t, f.conn.Model(&models.Cart{}).Count(&carts).Error)
	require.Equal(t, int64(1), carts)
}

func TestConfirmPaymentRejectsMismatchedSession(t *testing.T) {
	f := newOrdersFixture(t)
	order := f.seedOrder(t, enums.OrderStatusPending, f.now)

	err := f.svc.ConfirmPayment(context.Background(), ConfirmPaymentInput{OrderID: order.ID, SessionID: "cs_other"})
	requireCode(t, err, pkgerrors.CodeValidation)
	require.Equal(t, enums.OrderStatusPending, f.status(t, order.ID))
}

func TestAbandonOnlyMovesPending(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()

	pending := f.seedOrder(t, enums.OrderStatusPending, f.now)
	changed, err := f.svc.Abandon(ctx, pending.ID, AbandonReasonSessionExpired)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, enums.OrderStatusAbandoned, f.status(t, pending.ID))
	require.Equal(t, int64(1), f.outboxCount(t, enums.EventOrderAbandoned))

	_, err = f.svc.GetByID(ctx, pending.ID, f.buyer.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)

	paid := f.seedOrder(t, enums.OrderStatusPaid, f.now)
	changed, err = f.svc.Abandon(ctx, paid.ID, AbandonReasonSessionExpired)
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, enums.OrderStatusPaid, f.status(t, paid.ID))
}

func TestListPendingBefore(t *testing.T) {
	f := newOrdersFixture(t)
	old := f.seedOrder(t, enums.OrderStatusPending, f.now.Add(-48*time.Hour))
	f.seedOrder(t, enums.OrderStatusPending, f.now.Add(-time.Hour))
	f.seedOrder(t, enums.OrderStatusPaid, f.now.Add(-72*time.Hour))

	rows, err := f.repo.ListPendingBefore(context.Background(), f.now.Add(-24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, old.ID, rows[0].ID)
}
