package httpx

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ecofinds/ecofinds-orders/internal/catalog"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type ProductSource interface {
	Get(ctx context.Context, id int64) (catalog.Product, error)
	List(ctx context.Context, f catalog.Filter) ([]catalog.Product, error)
}

// CatalogHandler serves the read-only product listing.
type CatalogHandler struct {
	Products ProductSource
	Log      zerolog.Logger
}

func (h *CatalogHandler) Register(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f catalog.Filter
	if s := q.Get("seller_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusBadRequest, "invalid seller_id")
			return
		}
		f.SellerID = &id
	}
	f.Category = q.Get("category")
	for name, dst := range map[string]*int{"limit": &f.Limit, "offset": &f.Offset} {
		s := q.Get(name)
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid "+name)
			return
		}
		*dst = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Products.List(ctx, f)
	if err != nil {
		h.Log.Error().Err(err).Msg("list products")
		writeError(w, http.StatusInternalServerError, "Failed to fetch products")
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *CatalogHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Products.Get(ctx, id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, p)
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, "Product not found")
	default:
		h.Log.Error().Err(err).Int64("product_id", id).Msg("get product")
		writeError(w, http.StatusInternalServerError, "Failed to fetch product")
	}
}
