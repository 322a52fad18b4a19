package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/phuoc-stack/foodapp-backend/api/controllers"
	cartcontrollers "github.com/phuoc-stack/foodapp-backend/api/controllers/cart"
	ordercontrollers "github.com/phuoc-stack/foodapp-backend/api/controllers/orders"
	webhookcontrollers "github.com/phuoc-stack/foodapp-backend/api/controllers/webhooks"
	"github.com/phuoc-stack/foodapp-backend/api/middleware"
	"github.com/phuoc-stack/foodapp-backend/internal/cart"
	checkoutsvc "github.com/phuoc-stack/foodapp-backend/internal/checkout"
	"github.com/phuoc-stack/foodapp-backend/internal/orders"
	"github.com/phuoc-stack/foodapp-backend/pkg/config"
	"github.com/phuoc-stack/foodapp-backend/pkg/logger"
	"github.com/phuoc-stack/foodapp-backend/pkg/redis"
)

type signingClient interface {
	SigningSecret() string
}

// Dependencies carries everything the HTTP surface needs. Pingers may be nil.
type Dependencies struct {
	Config             *config.Config
	Logger             *logger.Logger
	DBPinger           controllers.Pinger
	RedisPinger        controllers.Pinger
	IdempotencyStore   redis.IdempotencyStore
	Gatherer           prometheus.Gatherer
	CartService        cart.Service
	CheckoutService    checkoutsvc.Service
	OrdersService      orders.Service
	StripeClient       signingClient
	StripeWebhooks     webhookcontrollers.StripeWebhookService
	StripeWebhookGuard webhookcontrollers.DeliveryGuard
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Recoverer(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DBPinger, deps.RedisPinger))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(deps.StripeWebhooks, deps.StripeClient, deps.StripeWebhookGuard, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		if deps.IdempotencyStore != nil {
			r.Use(middleware.Idempotency(deps.IdempotencyStore, logg))
		}

		// Flat patterns so the idempotency middleware sees the full route.
		r.Get("/cart", cartcontrollers.Fetch(deps.CartService, logg))
		r.Post("/cart/add/{listingId}", cartcontrollers.AddItem(deps.CartService, logg))
		r.Put("/cart/update-quantity", cartcontrollers.UpdateQuantity(deps.CartService, logg))
		r.Delete("/cart/remove/{listingId}", cartcontrollers.RemoveItem(deps.CartService, logg))
		r.Delete("/cart/clear", cartcontrollers.Clear(deps.CartService, logg))
		r.Post("/cart/checkout", cartcontrollers.Checkout(deps.CheckoutService, logg))

		r.Get("/my-orders", ordercontrollers.ListMine(deps.OrdersService, logg))
		r.Get("/my-orders/{id}", ordercontrollers.GetMine(deps.OrdersService, logg))
		r.Get("/my-sales", ordercontrollers.ListSales(deps.OrdersService, logg))
		r.Get("/orders/{id}", ordercontrollers.Get(deps.OrdersService, logg))
		r.Put("/orders/{id}/status", ordercontrollers.UpdateStatus(deps.OrdersService, logg))
	})

	return r
}
