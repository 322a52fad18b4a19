package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/phuoc-stack/foodapp-backend/pkg/db"
	"github.com/phuoc-stack/foodapp-backend/pkg/db/models"
	"github.com/phuoc-stack/foodapp-backend/pkg/enums"
	pkgerrors "github.com/phuoc-stack/foodapp-backend/pkg/errors"
	"github.com/phuoc-stack/foodapp-backend/pkg/logger"
	"github.com/phuoc-stack/foodapp-backend/pkg/metrics"
)

// DefaultTTL is the sliding expiry window used when none is configured.
const DefaultTTL = time.Hour

// errConcurrentCreate signals that another request created the buyer's cart
// between our read and insert.
var errConcurrentCreate = errors.New("cart created concurrently")

// Service exposes the buyer's single active cart.
type Service interface {
	GetCart(ctx context.Context, buyerID uuid.UUID) (CartView, error)
	GetActiveCart(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error)
	AddItem(ctx context.Context, buyerID, listingID uuid.UUID, quantity int) (CartView, error)
	UpdateQuantity(ctx context.Context, buyerID, listingID uuid.UUID, quantity int) (CartView, error)
	RemoveItem(ctx context.Context, buyerID, listingID uuid.UUID) (CartView, error)
	Clear(ctx context.Context, buyerID uuid.UUID) error
}

// ServiceParams wires the cart service.
type ServiceParams struct {
	Repo     CartRepository
	Listings listingLoader
	Tx       txRunner
	TTL      time.Duration
	Now      func() time.Time
	Logger   *logger.Logger
	Metrics  *metrics.OrderMetrics
}

type service struct {
	repo     CartRepository
	listings listingLoader
	tx       txRunner
	ttl      time.Duration
	now      func() time.Time
	logg     *logger.Logger
	metrics  *metrics.OrderMetrics
}

// NewService builds a cart service backed by the provided stack.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Listings == nil {
		return nil, fmt.Errorf("listing loader required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     params.Repo,
		listings: params.Listings,
		tx:       params.Tx,
		ttl:      ttl,
		now:      func() time.Time { return now().UTC() },
		logg:     params.Logger,
		metrics:  params.Metrics,
	}, nil
}

// GetCart returns the stored cart even when expired so the buyer can see the
// expired indicator.
func (s *service) GetCart(ctx context.Context, buyerID uuid.UUID) (CartView, error) {
	if buyerID == uuid.Nil {
		return CartView{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer id is required")
	}
	cart, err := s.repo.FindByBuyer(ctx, buyerID)
	if err != nil {
		return CartView{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return NewCartView(cart, s.now()), nil
}

// GetActiveCart returns nil when the buyer has no cart or it has expired.
func (s *service) GetActiveCart(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindByBuyer(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if cart == nil || cart.IsExpired(s.now()) {
		return nil, nil
	}
	return cart, nil
}

func (s *service) AddItem(ctx context.Context, buyerID, listingID uuid.UUID, quantity int) (CartView, error) {
	if buyerID == uuid.Nil {
		return CartView{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer id is required")
	}
	if quantity < 1 {
		return CartView{}, s.fail("add", pkgerrors.New(pkgerrors.CodeInvalidQuantity, "quantity must be at least 1"))
	}

	listing, err := s.listings.FindByID(ctx, listingID)
	if err != nil {
		return CartView{}, s.fail("add", err)
	}
	if listing.Status != enums.ListingStatusAvailable {
		return CartView{}, s.fail("add", pkgerrors.New(pkgerrors.CodeValidation, "listing is not available"))
	}
	if listing.SellerID == buyerID {
		return CartView{}, s.fail("add", pkgerrors.New(pkgerrors.CodeValidation, "cannot add your own listing to the cart"))
	}

	var result *models.Cart
	for attempt := 0; attempt < 2; attempt++ {
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			var txErr error
			result, txErr = s.addItemTx(ctx, s.repo.WithTx(tx), buyerID, listing, quantity)
			return txErr
		})
		if !errors.Is(err, errConcurrentCreate) {
			break
		}
	}
	if errors.Is(err, errConcurrentCreate) {
		err = pkgerrors.New(pkgerrors.CodeConflict, "cart is being modified, please retry")
	}
	if err != nil {
		return CartView{}, s.fail("add", err)
	}

	s.logMutation(ctx, "cart.item_added", result, map[string]any{
		"listing_id": listingID.String(),
		"quantity":   quantity,
	})
	s.metrics.IncCartOp("add", "ok")
	return NewCartView(result, s.now()), nil
}

func (s *service) addItemTx(ctx context.Context, repo CartRepository, buyerID uuid.UUID, listing *models.Listing, quantity int) (*models.Cart, error) {
	now := s.now()
	cart, err := repo.LockByBuyer(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock cart")
	}

	// An expired cart is replaced rather than revived so its stale seller
	// anchor and prices do not carry over.
	if cart != nil && cart.IsExpired(now) {
		if err := repo.Delete(ctx, cart.ID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "discard expired cart")
		}
		cart = nil
	}

	if cart != nil && cart.SellerID != listing.SellerID {
		return nil, pkgerrors.New(
			pkgerrors.CodeSellerConflict,
			fmt.Sprintf("your cart already has items from %s; clear it or check out first", cart.SellerUsername),
		).WithDetails(map[string]any{
			"sellerId":       cart.SellerID.String(),
			"sellerUsername": cart.SellerUsername,
		})
	}

	if cart == nil {
		cart = &models.Cart{
			ID:             uuid.New(),
			BuyerID:        buyerID,
			SellerID:       listing.SellerID,
			SellerUsername: listing.Seller.Username,
			ExpiresAt:      now.Add(s.ttl),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := repo.Create(ctx, cart); err != nil {
			if db.IsUniqueViolation(err, "") {
				return nil, errConcurrentCreate
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
		}
	}

	if existing := cart.FindItem(listing.ID); existing != nil {
		newQty := existing.Quantity + quantity
		if err := repo.UpdateItemQuantity(ctx, existing.ID, newQty); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment cart item")
		}
		existing.Quantity = newQty
	} else {
		item := models.CartItem{
			ID:                 uuid.New(),
			CartID:             cart.ID,
			ListingID:          listing.ID,
			ListingTitle:       listing.Title,
			ListingDescription: listing.Description,
			ImageURL:           listing.ImageURL,
			Quantity:           quantity,
			UnitPriceCents:     listing.PriceCents,
			Position:           nextPosition(cart.Items),
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := repo.CreateItem(ctx, &item); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart item")
		}
		cart.Items = append(cart.Items, item)
	}

	if err := s.touch(ctx, repo, cart, now); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *service) UpdateQuantity(ctx context.Context, buyerID, listingID uuid.UUID, quantity int) (CartView, error) {
	if buyerID == uuid.Nil {
		return CartView{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer id is required")
	}
	if quantity < 1 {
		return CartView{}, s.fail("update", pkgerrors.New(pkgerrors.CodeInvalidQuantity, "quantity must be at least 1"))
	}

	var result *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := s.now()
		cart, item, err := s.lockItem(ctx, repo, buyerID, listingID, now)
		if err != nil {
			return err
		}
		if err := repo.UpdateItemQuantity(ctx, item.ID, quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
		}
		item.Quantity = quantity
		if err := s.touch(ctx, repo, cart, now); err != nil {
			return err
		}
		result = cart
		return nil
	})
	if err != nil {
		return CartView{}, s.fail("update", err)
	}

	s.logMutation(ctx, "cart.quantity_updated", result, map[string]any{
		"listing_id": listingID.String(),
		"quantity":   quantity,
	})
	s.metrics.IncCartOp("update", "ok")
	return NewCartView(result, s.now()), nil
}

// RemoveItem deletes the line. Removing the last line deletes the cart so the
// seller anchor is released.
func (s *service) RemoveItem(ctx context.Context, buyerID, listingID uuid.UUID) (CartView, error) {
	if buyerID == uuid.Nil {
		return CartView{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer id is required")
	}

	var result *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := s.now()
		cart, item, err := s.lockItem(ctx, repo, buyerID, listingID, now)
		if err != nil {
			return err
		}
		if len(cart.Items) == 1 {
			if err := repo.Delete(ctx, cart.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart")
			}
			return nil
		}
		if err := repo.DeleteItem(ctx, item.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
		}
		cart.Items = withoutItem(cart.Items, item.ID)
		if err := s.touch(ctx, repo, cart, now); err != nil {
			return err
		}
		result = cart
		return nil
	})
	if err != nil {
		return CartView{}, s.fail("remove", err)
	}

	s.logMutation(ctx, "cart.item_removed", result, map[string]any{"listing_id": listingID.String()})
	s.metrics.IncCartOp("remove", "ok")
	return NewCartView(result, s.now()), nil
}

// Clear deletes the buyer's cart, expired or not. Clearing an absent cart is
// a no-op.
func (s *service) Clear(ctx context.Context, buyerID uuid.UUID) error {
	if buyerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer id is required")
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := repo.LockByBuyer(ctx, buyerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock cart")
		}
		if cart == nil {
			return nil
		}
		if err := repo.Delete(ctx, cart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart")
		}
		return nil
	})
	if err != nil {
		return s.fail("clear", err)
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithUserID(ctx, buyerID.String()), "cart.cleared")
	}
	s.metrics.IncCartOp("clear", "ok")
	return nil
}

// lockItem loads the buyer's live cart under lock and finds the listing's
// line. Expired carts behave as if absent.
func (s *service) lockItem(ctx context.Context, repo CartRepository, buyerID, listingID uuid.UUID, now time.Time) (*models.Cart, *models.CartItem, error) {
	cart, err := repo.LockByBuyer(ctx, buyerID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock cart")
	}
	if cart == nil || cart.IsExpired(now) {
		return nil, nil, pkgerrors.New(pkgerrors.CodeItemNotFound, "item not found in cart")
	}
	item := cart.FindItem(listingID)
	if item == nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeItemNotFound, "item not found in cart")
	}
	return cart, item, nil
}

// touch restarts the sliding TTL window from now.
func (s *service) touch(ctx context.Context, repo CartRepository, cart *models.Cart, now time.Time) error {
	cart.ExpiresAt = now.Add(s.ttl)
	cart.UpdatedAt = now
	if err := repo.Touch(ctx, cart); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "extend cart expiry")
	}
	return nil
}

func (s *service) fail(op string, err error) error {
	outcome := "error"
	if typed := pkgerrors.As(err); typed != nil {
		outcome = string(typed.Code())
	}
	s.metrics.IncCartOp(op, outcome)
	return err
}

func (s *service) logMutation(ctx context.Context, msg string, cart *models.Cart, fields map[string]any) {
	if s.logg == nil {
		return
	}
	if cart != nil {
		fields["cart_id"] = cart.ID.String()
		fields["total_items"] = cart.TotalItems()
		fields["total_cents"] = cart.TotalCents()
		fields["expires_at"] = cart.ExpiresAt
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), msg)
}

func nextPosition(items []models.CartItem) int {
	next := 0
	for _, item := range items {
		if item.Position >= next {
			next = item.Position + 1
		}
	}
	return next
}

func withoutItem(items []models.CartItem, id uuid.UUID) []models.CartItem {
	out := items[:0]
	for _, item := range items {
		if item.ID != id {
			out = append(out, item)
		}
	}
	return out
}
