package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/http/dto"
)

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := catalog.Filter{
		Query:      strings.TrimSpace(q.Get("q")),
		Categories: nonEmpty(q["category"]),
		Labels:     nonEmpty(q["labels"]),
		Sort:       q.Get("sort"),
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	c, err := h.store.Browse(ctx, f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromCatalog(c))
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	pv, err := h.store.ProductView(ctx, chi.URLParam(r, "slug"), h.now())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromProductView(pv))
}

func (h *Handler) ListPromotions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	promos, err := h.store.ActivePromotions(ctx, h.now())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromPromotions(promos))
}

func nonEmpty(in []string) []string {
	var out []string
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
