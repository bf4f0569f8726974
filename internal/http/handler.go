package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/account"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/http/dto"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/pricing"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/promotion"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/storefront"
)

const serviceName = "storefront-service"

// Storefront is the subset of *storefront.Service the handlers call.
type Storefront interface {
	Browse(ctx context.Context, f catalog.Filter) (storefront.Catalog, error)
	ProductView(ctx context.Context, slug string, now time.Time) (storefront.ProductView, error)
	ActivePromotions(ctx context.Context, now time.Time) ([]promotion.Promotion, error)
	Cart(ctx context.Context, userID string, now time.Time) (storefront.OrderView, error)
	AddToCart(ctx context.Context, userID, slug string) error
	RemoveFromCart(ctx context.Context, userID, slug string) error
	RemoveSingleFromCart(ctx context.Context, userID, slug string) error
	Checkout(ctx context.Context, userID string, req storefront.CheckoutRequest, now time.Time) (storefront.OrderView, error)
	History(ctx context.Context, userID string) ([]order.Order, error)
	Detail(ctx context.Context, userID, slug string) (storefront.OrderView, error)
	Reschedule(ctx context.Context, userID, slug string, req storefront.RescheduleRequest, now time.Time) error
}

type Accounts interface {
	Profile(ctx context.Context, userID string) (*account.Profile, error)
	Update(ctx context.Context, userID string, p account.Profile) (*account.Profile, error)
	Complete(ctx context.Context, userID string, p account.Profile) (*account.Profile, error)
}

type Options struct {
	RequestTimeout  time.Duration
	CheckoutTimeout time.Duration
}

type Handler struct {
	store    Storefront
	accounts Accounts
	logger   logrus.FieldLogger
	now      func() time.Time

	requestTimeout  time.Duration
	checkoutTimeout time.Duration
}

func NewHandler(store Storefront, accounts Accounts, logger logrus.FieldLogger, opts Options) *Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 3 * time.Second
	}
	if opts.CheckoutTimeout <= 0 {
		opts.CheckoutTimeout = 5 * time.Second
	}
	return &Handler{
		store:           store,
		accounts:        accounts,
		logger:          logger,
		now:             time.Now,
		requestTimeout:  opts.RequestTimeout,
		checkoutTimeout: opts.CheckoutTimeout,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.HealthResponse{Status: "ok", Service: serviceName})
}

func (h *Handler) withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.requestTimeout)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, storefront.ErrInvalidRequest), errors.Is(err, account.ErrInvalidProfile):
		return http.StatusBadRequest
	case errors.Is(err, pricing.ErrInvalidLineItem):
		return http.StatusUnprocessableEntity
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, order.ErrNotInCart),
		errors.Is(err, storefront.ErrCartEmpty),
		errors.Is(err, account.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, order.ErrAlreadyFinalized),
		errors.Is(err, order.ErrCartChanged),
		errors.Is(err, order.ErrCartGone),
		errors.Is(err, order.ErrNotReschedulable),
		errors.Is(err, account.ErrProfileExists):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// writeError hides internal failures from the client and logs them instead.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	cid := middleware.GetCorrelationID(r.Context())
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		h.logger.WithFields(logrus.Fields{
			"method":         r.Method,
			"path":           r.URL.Path,
			"status":         status,
			"correlation_id": cid,
		}).WithError(err).Error("request failed")
		msg = http.StatusText(status)
	}
	writeJSON(w, status, dto.Error{Error: msg, CorrelationID: cid})
}

func (h *Handler) badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	writeJSON(w, http.StatusBadRequest, dto.Error{Error: msg, CorrelationID: middleware.GetCorrelationID(r.Context())})
}
