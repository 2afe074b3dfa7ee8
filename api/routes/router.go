package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

// Store is the Redis surface used by the HTTP layer for idempotency and throttling.
type Store interface {
	middleware.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Params carries everything the router wires into handlers. A nil Store disables
// idempotency and rate limiting.
type Params struct {
	Config *config.Config
	Logger *logger.Logger

	Store    Store
	Pingers  map[string]controllers.Pinger
	Gatherer prometheus.Gatherer
	Metrics  *metrics.HTTPMetrics

	Catalog      catalog.Service
	CatalogAdmin catalog.AdminService
	Cart         cart.Service
	Orders       orders.Service
	Payments     payments.Service
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger

	var (
		idemStore    middleware.IdempotencyStore
		limiterStore interface {
			IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
		}
	)
	if p.Store != nil {
		idemStore = p.Store
		limiterStore = p.Store
	}
	idempotent := middleware.Idempotency(idemStore, middleware.AdminIdempotencyTTL, logg)

	paymentPolicy := middleware.NewRateLimitPolicy("payments", cfg.RateLimit.Window, cfg.RateLimit.PaymentIPLimit, 0)
	checkoutPolicy := middleware.NewRateLimitPolicy(
		"checkout",
		cfg.RateLimit.Window,
		cfg.RateLimit.CheckoutIPLimit,
		cfg.RateLimit.CheckoutEmailLimit,
	)

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(p.Metrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Pingers))
	})

	if p.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/functions", func(r chi.Router) {
		r.Use(middleware.PublicCORS())
		r.Use(middleware.RateLimit(paymentPolicy, limiterStore, logg, responses.WriteFlatError))
		r.Post("/create-paypal-order", controllers.CreatePayPalOrder(p.Payments, logg))
		r.Post("/capture-paypal-order", controllers.CapturePayPalOrder(p.Payments, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
		r.Use(middleware.CartSession(logg))

		r.Route("/v1", func(r chi.Router) {
			r.Get("/products", controllers.CatalogListProducts(p.Catalog, logg))
			r.Get("/products/{productId}", controllers.CatalogGetProduct(p.Catalog, logg))
			r.Get("/categories", controllers.CatalogListCategories(p.Catalog, logg))
			r.Get("/groups", controllers.CatalogListGroups(p.Catalog, logg))
			r.Get("/groups/{slug}", controllers.CatalogGetGroup(p.Catalog, logg))
			r.Get("/delivery-zones", controllers.CatalogListDeliveryZones(p.Catalog, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartGet(p.Cart, logg))
				r.Delete("/", controllers.CartClear(p.Cart, logg))
				r.Post("/items", controllers.CartAddItem(p.Cart, logg))
				r.Patch("/items", controllers.CartUpdateItem(p.Cart, logg))
				r.Delete("/items", controllers.CartRemoveItem(p.Cart, logg))
			})

			r.With(
				middleware.RateLimit(checkoutPolicy, limiterStore, logg, nil),
				middleware.Idempotency(idemStore, middleware.CheckoutIdempotencyTTL, logg),
			).Post("/checkout", controllers.Checkout(p.Cart, p.Orders, logg))
			r.Get("/orders/{orderId}", controllers.OrderTrack(p.Orders, logg))
		})

		r.Route("/admin/v1", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.RequireRole(logg, cfg.JWT.AdminRole))

			r.Route("/products", func(r chi.Router) {
				r.Get("/", controllers.AdminListProducts(p.CatalogAdmin, logg))
				r.With(idempotent).Post("/", controllers.AdminCreateProduct(p.CatalogAdmin, logg))
				r.Get("/{productId}", controllers.AdminGetProduct(p.CatalogAdmin, logg))
				r.Put("/{productId}", controllers.AdminUpdateProduct(p.CatalogAdmin, logg))
				r.Delete("/{productId}", controllers.AdminDeleteProduct(p.CatalogAdmin, logg))
				r.Put("/{productId}/images", controllers.AdminReplaceImages(p.CatalogAdmin, logg))
				r.With(idempotent).Post("/{productId}/variants", controllers.AdminCreateVariant(p.CatalogAdmin, logg))
			})
			r.Put("/variants/{variantId}", controllers.AdminUpdateVariant(p.CatalogAdmin, logg))
			r.Delete("/variants/{variantId}", controllers.AdminDeleteVariant(p.CatalogAdmin, logg))

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", controllers.CatalogListCategories(p.Catalog, logg))
				r.With(idempotent).Post("/", controllers.AdminCreateCategory(p.CatalogAdmin, logg))
				r.Put("/{categoryId}", controllers.AdminUpdateCategory(p.CatalogAdmin, logg))
				r.Delete("/{categoryId}", controllers.AdminDeleteCategory(p.CatalogAdmin, logg))
			})

			r.Route("/groups", func(r chi.Router) {
				r.Get("/", controllers.CatalogListGroups(p.Catalog, logg))
				r.With(idempotent).Post("/", controllers.AdminCreateGroup(p.CatalogAdmin, logg))
				r.Put("/{groupId}", controllers.AdminUpdateGroup(p.CatalogAdmin, logg))
				r.Delete("/{groupId}", controllers.AdminDeleteGroup(p.CatalogAdmin, logg))
			})

			r.Route("/delivery-zones", func(r chi.Router) {
				r.Get("/", controllers.AdminListDeliveryZones(p.Catalog, logg))
				r.With(idempotent).Post("/", controllers.AdminCreateDeliveryZone(p.CatalogAdmin, logg))
				r.Put("/{zoneId}", controllers.AdminUpdateDeliveryZone(p.CatalogAdmin, logg))
				r.Delete("/{zoneId}", controllers.AdminDeleteDeliveryZone(p.CatalogAdmin, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.AdminListOrders(p.Orders, logg))
				r.Get("/{orderId}", controllers.AdminGetOrder(p.Orders, logg))
				r.Patch("/{orderId}/status", controllers.AdminUpdateOrderStatus(p.Orders, logg))
			})
		})
	})

	return r
}
