package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/http/dto"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/storefront"
)

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	view, err := h.store.Cart(ctx, middleware.GetUserID(r.Context()), h.now())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromOrderView(view))
}

func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	h.mutateCart(w, r, h.store.AddToCart)
}

func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	h.mutateCart(w, r, h.store.RemoveFromCart)
}

func (h *Handler) DecrementCartItem(w http.ResponseWriter, r *http.Request) {
	h.mutateCart(w, r, h.store.RemoveSingleFromCart)
}

// mutateCart applies op and responds with the repriced cart. A cart emptied
// by the mutation is reported as an empty body rather than an error.
func (h *Handler) mutateCart(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, userID, slug string) error) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	userID := middleware.GetUserID(r.Context())
	if err := op(ctx, userID, chi.URLParam(r, "slug")); err != nil {
		h.writeError(w, r, err)
		return
	}

	view, err := h.store.Cart(ctx, userID, h.now())
	if err != nil {
		if statusFor(err) == http.StatusNotFound {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromOrderView(view))
}

// CheckoutPreview prices the cart without placing the order.
func (h *Handler) CheckoutPreview(w http.ResponseWriter, r *http.Request) {
	h.GetCart(w, r)
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req storefront.CheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badRequest(w, r, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.checkoutTimeout)
	defer cancel()

	view, err := h.store.Checkout(ctx, middleware.GetUserID(r.Context()), req, h.now())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.FromOrderView(view))
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	orders, err := h.store.History(ctx, middleware.GetUserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromHistory(orders))
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	view, err := h.store.Detail(ctx, middleware.GetUserID(r.Context()), chi.URLParam(r, "slug"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromOrderView(view))
}

func (h *Handler) RescheduleOrder(w http.ResponseWriter, r *http.Request) {
	var req storefront.RescheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badRequest(w, r, "invalid JSON body")
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	userID := middleware.GetUserID(r.Context())
	slug := chi.URLParam(r, "slug")
	if err := h.store.Reschedule(ctx, userID, slug, req, h.now()); err != nil {
		h.writeError(w, r, err)
		return
	}

	view, err := h.store.Detail(ctx, userID, slug)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromOrderView(view))
}
