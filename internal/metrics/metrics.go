package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

type Metrics struct {
	// RequestsTotal tracks HTTP requests by route pattern
	RequestsTotal   *prometheus.CounterVec
	// RequestDuration tracks HTTP request duration
	RequestDuration *prometheus.HistogramVec

	CartMutations *prometheus.CounterVec

	// OrdersPlaced counts finalized orders
	OrdersPlaced prometheus.Counter
	// OrderValue tracks final order totals in dollars
	OrderValue   prometheus.Histogram

	AmbiguousPromotions  prometheus.Counter
	EventPublishFailures prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		CartMutations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Cart line mutations by action",
		}, []string{"action"}),
		OrdersPlaced: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Total number of finalized orders",
		}),
		OrderValue: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_value_dollars",
			Help:      "Final order totals in dollars",
			Buckets:   []float64{10, 25, 50, 100, 250, 500},
		}),
		AmbiguousPromotions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promotion_ambiguous_matches_total",
			Help:      "Products priced while more than one promotion was eligible",
		}),
		EventPublishFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_failures_total",
			Help:      "Domain events that could not be published",
		}),
	}
}

// Middleware records request count and latency keyed by the matched chi route.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
