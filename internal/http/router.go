package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/metrics"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/middleware"
)

type RouterOptions struct {
	Logger      logrus.FieldLogger
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	CORSOrigins []string
}

func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.Recover(opts.Logger))
	r.Use(chimw.RequestLogger(&chimw.DefaultLogFormatter{Logger: opts.Logger, NoColor: true}))
	r.Use(middleware.CORS(opts.CORSOrigins))
	r.Use(opts.Metrics.Middleware)

	r.Get("/health", h.Health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler(opts.Gatherer))

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Get("/products/{slug}", h.GetProduct)
		r.Get("/promotions", h.ListPromotions)
	})

	r.Route("/me", func(r chi.Router) {
		r.Use(middleware.RequireUserID)

		r.Get("/cart", h.GetCart)
		r.Post("/cart/items/{slug}", h.AddCartItem)
		r.Delete("/cart/items/{slug}", h.RemoveCartItem)
		r.Post("/cart/items/{slug}/decrement", h.DecrementCartItem)

		r.Get("/checkout", h.CheckoutPreview)
		r.Post("/checkout", h.Checkout)

		r.Get("/orders", h.ListOrders)
		r.Get("/orders/{slug}", h.GetOrder)
		r.Put("/orders/{slug}/delivery", h.RescheduleOrder)

		r.Get("/profile", h.GetProfile)
		r.Put("/profile", h.UpdateProfile)
		r.Post("/profile", h.CompleteProfile)
	})

	return r
}
