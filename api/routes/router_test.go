package routes

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/phuoc-stack/foodapp-backend/internal/cart"
	"github.com/phuoc-stack/foodapp-backend/internal/checkout"
	"github.com/phuoc-stack/foodapp-backend/internal/orders"
	"github.com/phuoc-stack/foodapp-backend/pkg/auth"
	"github.com/phuoc-stack/foodapp-backend/pkg/config"
	"github.com/phuoc-stack/foodapp-backend/pkg/db/models"
	"github.com/phuoc-stack/foodapp-backend/pkg/enums"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubCartService struct {
	mu    sync.Mutex
	adds  int
	buyer uuid.UUID
}

func (s *stubCartService) GetCart(ctx context.Context, buyerID uuid.UUID) (cart.CartView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buyer = buyerID
	return cart.EmptyView(), nil
}

func (s *stubCartService) GetActiveCart(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error) {
	return nil, nil
}

func (s *stubCartService) AddItem(ctx context.Context, buyerID, listingID uuid.UUID, quantity int) (cart.CartView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adds++
	view := cart.EmptyView()
	view.TotalItems = quantity
	return view, nil
}

func (s *stubCartService) UpdateQuantity(ctx context.Context, buyerID, listingID uuid.UUID, quantity int) (cart.CartView, error) {
	return cart.EmptyView(), nil
}

func (s *stubCartService) RemoveItem(ctx context.Context, buyerID, listingID uuid.UUID) (cart.CartView, error) {
	return cart.EmptyView(), nil
}

func (s *stubCartService) Clear(ctx context.Context, buyerID uuid.UUID) error {
	return nil
}

type stubCheckoutService struct{}

func (stubCheckoutService) Checkout(ctx context.Context, buyerID uuid.UUID) (*checkout.Result, error) {
	return &checkout.Result{CheckoutURL: "https://pay.example/cs", OrderID: uuid.New()}, nil
}

type stubOrdersService struct {
	orders.Service
}

func (stubOrdersService) ListForBuyer(ctx context.Context, buyerID uuid.UUID, filter enums.OrderStatusFilter) ([]orders.OrderView, error) {
	return []orders.OrderView{}, nil
}

func (stubOrdersService) ListForSeller(ctx context.Context, sellerID uuid.UUID, filter enums.OrderStatusFilter) ([]orders.OrderView, error) {
	return []orders.OrderView{}, nil
}

func (stubOrdersService) GetByID(ctx context.Context, orderID, callerID uuid.UUID) (*orders.RoleOrder, error) {
	return &orders.RoleOrder{Order: orders.OrderView{ID: orderID, Status: enums.OrderStatusPending}, Role: enums.OrderRoleBuyer}, nil
}

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memoryStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "foodapp:idempotency:" + scope + ":" + id
}

func (m *memoryStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "foodapp", ExpirationMinutes: 60}

type routerFixture struct {
	handler http.Handler
	cart    *stubCartService
	token   string
	buyer   uuid.UUID
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	cfg := &config.Config{
		App: config.AppConfig{Env: "test", CORSOrigins: []string{"http://localhost:3000"}},
		JWT: testJWT,
	}
	buyer := uuid.New()
	token, err := auth.Mint(testJWT, time.Now(), auth.Identity{UserID: buyer, Username: "maria"})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	cartSvc := &stubCartService{}
	handler := NewRouter(Dependencies{
		Config:           cfg,
		DBPinger:         stubPinger{},
		RedisPinger:      stubPinger{},
		IdempotencyStore: &memoryStore{data: map[string]string{}},
		Gatherer:         prometheus.NewRegistry(),
		CartService:      cartSvc,
		CheckoutService:  stubCheckoutService{},
		OrdersService:    stubOrdersService{},
	})
	return &routerFixture{handler: handler, cart: cartSvc, token: token, buyer: buyer}
}

func (f *routerFixture) do(method, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(""))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *routerFixture) authed(extra map[string]string) map[string]string {
	headers := map[string]string{"Authorization": "Bearer " + f.token}
	for k, v := range extra {
		headers[k] = v
	}
	return headers
}

func TestHealthRoutesArePublic(t *testing.T) {
	f := newRouterFixture(t)
	for _, path := range []string{"/health/live", "/health/ready"} {
		rec := f.do(http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, rec.Code)
		}
		if rec.Header().Get("X-Request-Id") == "" {
			t.Fatalf("%s: expected request id header", path)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newRouterFixture(t)
	rec := f.do(http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	f := newRouterFixture(t)
	cases := []struct{ method, path string }{
		{http.MethodGet, "/api/cart"},
		{http.MethodPost, "/api/cart/checkout"},
		{http.MethodGet, "/api/my-orders"},
		{http.MethodGet, "/api/my-sales"},
		{http.MethodPut, "/api/orders/" + uuid.NewString() + "/status"},
	}
	for _, tc := range cases {
		rec := f.do(tc.method, tc.path, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401 got %d", tc.method, tc.path, rec.Code)
		}
	}
}

func TestAuthenticatedCartFetch(t *testing.T) {
	f := newRouterFixture(t)
	rec := f.do(http.MethodGet, "/api/cart", f.authed(nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if f.cart.buyer != f.buyer {
		t.Fatalf("expected buyer from token, got %s", f.cart.buyer)
	}

	rec = f.do(http.MethodGet, "/api/my-orders", f.authed(nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}

func TestOrderRoutesLiveUnderAPIPrefix(t *testing.T) {
	f := newRouterFixture(t)
	orderID := uuid.NewString()
	for _, path := range []string{"/api/my-orders?status=ALL", "/api/my-sales?status=PAID", "/api/orders/" + orderID} {
		rec := f.do(http.MethodGet, path, f.authed(nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d (%s)", path, rec.Code, rec.Body.String())
		}
	}

	for _, path := range []string{"/cart", "/my-orders", "/orders/" + orderID} {
		rec := f.do(http.MethodGet, path, f.authed(nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404 outside /api, got %d", path, rec.Code)
		}
	}
}

func TestAddToCartReplaysIdempotentRequest(t *testing.T) {
	f := newRouterFixture(t)
	target := "/api/cart/add/" + uuid.NewString() + "?quantity=2"
	headers := f.authed(map[string]string{"Idempotency-Key": "add-1"})

	first := f.do(http.MethodPost, target, headers)
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", first.Code, first.Body.String())
	}
	second := f.do(http.MethodPost, target, headers)
	if second.Code != http.StatusOK {
		t.Fatalf("expected replay 200 got %d", second.Code)
	}
	if second.Header().Get("Idempotent-Replay") != "true" {
		t.Fatalf("expected replay header")
	}
	if f.cart.adds != 1 {
		t.Fatalf("expected one add, got %d", f.cart.adds)
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("replayed body differs")
	}
}

func TestWebhookWithoutStripeWiringFails(t *testing.T) {
	f := newRouterFixture(t)
	rec := f.do(http.MethodPost, "/webhooks/stripe", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rec.Code)
	}
}
