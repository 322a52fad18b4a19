package cart

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/phuoc-stack/foodapp-backend/internal/listings"
	"github.com/phuoc-stack/foodapp-backend/pkg/db"
	"github.com/phuoc-stack/foodapp-backend/pkg/db/dbtest"
	"github.com/phuoc-stack/foodapp-backend/pkg/db/models"
	"github.com/phuoc-stack/foodapp-backend/pkg/enums"
	pkgerrors "github.com/phuoc-stack/foodapp-backend/pkg/errors"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	conn    *gorm.DB
	svc     Service
	clock   *fakeClock
	buyer   models.User
	sellerS models.User
	sellerT models.User
	l1      models.Listing
	l2      models.Listing
	l3      models.Listing
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(conn),
		Listings: listings.NewRepository(conn),
		Tx:       db.NewFromConn(conn),
		TTL:      30 * time.Minute,
		Now:      clock.Now,
	})
	require.NoError(t, err)

	f := &fixture{conn: conn, svc: svc, clock: clock}
	f.buyer = dbtest.SeedUser(t, conn, "buyer")
	f.sellerS = dbtest.SeedUser(t, conn, "seller_s")
	f.sellerT = dbtest.SeedUser(t, conn, "seller_t")
	f.l1 = dbtest.SeedListing(t, conn, f.sellerS, "Tamales", 1000)
	f.l2 = dbtest.SeedListing(t, conn, f.sellerS, "Horchata", 550)
	f.l3 = dbtest.SeedListing(t, conn, f.sellerT, "Pierogi", 800)
	return f
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	require.Equal(t, code, typed.Code())
}

func requireTotalsConsistent(t *testing.T, view CartView) {
	t.Helper()
	var sum float64
	count := 0
	for _, item := range view.Items {
		require.InDelta(t, float64(item.Quantity)*item.PriceAtTimeAdded, item.ItemTotal, 0.0001)
		sum += item.ItemTotal
		count += item.Quantity
	}
	require.InDelta(t, sum, view.TotalPrice, 0.0001)
	require.Equal(t, count, view.TotalItems)
}

func TestAddItemsFromOneSellerAndRejectAnother(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.svc.AddItem(ctx, f.buyer.ID, f.l1.ID, 1)
	require.NoError(t, err)
	require.Equal(t, 10.0, view.TotalPrice)
	require.Equal(t, 1, view.TotalItems)
	require.Equal(t, "seller_s", view.SellerUsername)
	requireTotalsConsistent(t, view)

	view, err = f.svc.AddItem(ctx, f.buyer.ID, f.l2.ID, 2)
	require.NoError(t, err)
	require.Equal(t, 21.0, view.TotalPrice)
	require.Equal(t, 3, view.TotalItems)
	require.Len(t, view.Items, 2)
	requireTotalsConsistent(t, view)

	_, err = f.svc.AddItem(ctx, f.buyer.ID, f.l3.ID, 1)
	requireCode(t, err, pkgerrors.CodeSellerConflict)

	after, err := f.svc.GetCart(ctx, f.buyer.ID)
	require.NoError(t, err)
	require.Equal(t, 21.0, after.TotalPrice)
	require.Equal(t, 3, after.TotalItems)
	require.Equal(t, f.sellerS.ID, *after.SellerID)
}

func TestAddItemIncrementsExistingLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, f.buyer.ID, f.l1.ID, 1)
	require.NoError(t, err)
	view, err := f.svc.AddItem(ctx, f.buyer.ID, f.l1.ID, 2)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	require.Equal(t, 3, view.Items[0].Quantity)
	require.Equal(t, 30.0, view.TotalPrice)
}

func TestAddItemFreezesPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, f.buyer.ID, f.l1.ID, 1)
	require.NoError(t, err)
	require.NoError(t, f.conn.Model(&models.Listing{}).Where("id = ?", f.l1.ID).Update("price_cents", 5000).Error)

	view, err := f.svc.AddItem(ctx, f.buyer.ID, f.l1.ID, 1)
	require.NoError(t, err)
	require.Equal(t, 10.0, view.Items[0].PriceAtTimeAdded)
	require.Equal(t, 20.0, view.TotalPrice)
}

func TestAddItemRejectsUnavailableOwnAndMissingListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.conn.Model(&models.Listing{}).Where("id = ?", f.l3.ID).
		Update("status", enums.ListingStatusSoldOut).Error)
	_, err := f.svc.AddItem(ctx, f.buyer.ID, f.l3.ID, 1)
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.AddItem(ctx, f.sellerS.ID, f.l1.ID, 1)
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.AddItem(ctx, f.buyer.ID, uuid.New(), 1)
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = f.svc.AddItem(ctx, f.buyer.ID, f.l1.ID, 0)
	requireCode(t, err, pkgerrors.CodeInvalidQuantity)
}

func TestUpdateQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, f.buyer.ID, f.l1.ID, 1)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, f.buyer.ID, f.l2.ID, 2)
	require.NoError(t, err)

	for _, qty := range []int{0, -1} {
		_, err = f.svc.UpdateQuantity(ctx, f.buyer.ID, f.l2.ID, qty)
		requireCode(t, err, pkgerrors.CodeInvalidQuantity)
	}
	unchanged, err := f.svc.GetCart(ctx, f.buyer.ID)
	require.NoError(t, err)
	require.Equal(t, 21.0, unchanged.TotalPrice)
	require.Equal(t, 3, unchanged.TotalItems)

	_, err = f.svc.UpdateQuantity(ctx, f.buyer.ID, f.l3.ID, 2)
	requireCode(t, err, pkgerrors.CodeItemNotFound)

	view, err := f.svc.UpdateQuantity(ctx, f.buyer.ID, f.l2.ID, 5)
	require.NoError(t, err)
	require.Equal(t, 37.5, view.TotalPrice)
	require.Equal(t, 6, view.TotalItems)
	requireTotalsConsistent(t, view)
}

func TestRemoveItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, f.buyer.ID, f.l1.ID, 1)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, f.buyer.ID, f.l2.ID, 2)
	require.NoError(t, err)

	view, err := f.svc.RemoveItem(ctx, f.buyer.ID, f.l1.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	require.Equal(t, 11.0, view.TotalPrice)

	_, err = f.svc.RemoveItem(ctx, f.buyer.ID, f.l1.ID)
	requireCode(t, err, pkgerrors.CodeItemNotFound)

	view, err = f.svc.RemoveItem(ctx, f.buyer.ID, f.l2.ID)
	require.NoError(t, err)
	require.Empty(t, view.Items)
	require.Zero(t, view.TotalPrice)
	require.Zero(t, view.TotalItems)

	// The seller anchor is released with the last item.
	_, err = f.svc.AddItem(ctx, f.buyer.ID, f.l3.ID, 1)
	require.NoError(t, err)
}

func TestClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Clear(ctx, f.buyer.ID))

	_, err := f.svc.AddItem(ctx, f.buyer.ID, f.l1.ID, 1)
	require.NoError(t, err)
	require.NoError(t, f.svc.Clear(ctx, f.buyer.ID))

	view, err := f.svc.GetCart(ctx, f.buyer.ID)
	require.NoError(t, err)
	require.Nil(t, view.ID)
	require.Empty(t, view.Items)

	var items int64
	require.NoError(t, f.conn.Model(&models.CartItem{}).Count(&items).Error)
	require.Zero(t, items)
}

func TestExpiryIsSlidingAndLazy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.AddItem(ctx, f.buyer.ID, f.l1.ID, 1)
	require.NoError(t, err)
	require.True(t, f.clock.Now().Add(30*time.Minute).Equal(*first.ExpiresAt))

	f.clock.Advance(20 * time.Minute)
	second, err := f.svc.UpdateQuantity(ctx, f.buyer.ID, f.l1.ID, 2)
	require.NoError(t, err)
	require.True(t, second.ExpiresAt.After(*first.ExpiresAt), "mutation must extend expiry")

	f.clock.Advance(31 * time.Minute)
	view, err := f.svc.GetCart(ctx, f.buyer.ID)
	require.NoError(t, err)
	require.True(t, view.Expired)
	require.Len(t, view.Items, 1, "expired cart stays displayable")

	active, err := f.svc.GetActiveCart(ctx, f.buyer.ID)
	require.NoError(t, err)
	require.Nil(t, active)

	_, err = f.svc.UpdateQuantity(ctx, f.buyer.ID, f.l1.ID, 3)
	requireCode(t, err, pkgerrors.CodeItemNotFound)

	// Adding from another seller replaces the expired cart instead of conflicting.
	fresh, err := f.svc.AddItem(ctx, f.buyer.ID, f.l3.ID, 1)
	require.NoError(t, err)
	require.False(t, fresh.Expired)
	require.Equal(t, f.sellerT.ID, *fresh.SellerID)
	require.Len(t, fresh.Items, 1)
	require.NotEqual(t, *view.ID, *fresh.ID)
}

func TestConcurrentAddsFromDifferentSellers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var g errgroup.Group
	errs := make([]error, 2)
	for i, listingID := range []uuid.UUID{f.l1.ID, f.l3.ID} {
		i, listingID := i, listingID
		g.Go(func() error {
			_, errs[i] = f.svc.AddItem(ctx, f.buyer.ID, listingID, 1)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	conflicts := 0
	for _, err := range errs {
		if err != nil {
			requireCode(t, err, pkgerrors.CodeSellerConflict)
			conflicts++
		}
	}
	require.Equal(t, 1, conflicts, "exactly one seller must win the cart")

	view, err := f.svc.GetCart(ctx, f.buyer.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	require.Equal(t, 1, view.TotalItems)
}

func TestConcurrentAddsOfSameListingDoNotLoseUpdates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const workers = 8

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			_, err := f.svc.AddItem(ctx, f.buyer.ID, f.l1.ID, 1)
			return err
		})
	}
	require.NoError(t, g.Wait())

	view, err := f.svc.GetCart(ctx, f.buyer.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	require.Equal(t, workers, view.Items[0].Quantity)
	require.Equal(t, float64(workers)*10, view.TotalPrice)
}

func TestNewServiceValidatesDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}
