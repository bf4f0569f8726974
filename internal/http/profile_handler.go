package httpapi

import (
	"context"
	"net/http"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/account"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/middleware"
)

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	p, err := h.accounts.Profile(ctx, middleware.GetUserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	h.saveProfile(w, r, h.accounts.Update, http.StatusOK)
}

func (h *Handler) CompleteProfile(w http.ResponseWriter, r *http.Request) {
	h.saveProfile(w, r, h.accounts.Complete, http.StatusCreated)
}

type saveFunc func(ctx context.Context, userID string, p account.Profile) (*account.Profile, error)

func (h *Handler) saveProfile(w http.ResponseWriter, r *http.Request, save saveFunc, status int) {
	var in account.Profile
	if err := decodeJSON(r, &in); err != nil {
		h.badRequest(w, r, "invalid JSON body")
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	p, err := save(ctx, middleware.GetUserID(r.Context()), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, status, p)
}
