package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ecofinds/ecofinds-orders/internal/identity"
	"github.com/ecofinds/ecofinds-orders/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

const maxPlaceBody = 1 << 20

type OrderService interface {
	Place(ctx context.Context, req orders.PlaceRequest) (orders.PlaceResult, error)
	History(ctx context.Context, userID int64) ([]orders.Order, error)
}

type OrdersHandler struct {
	Service OrderService
	Auth    *Authenticator
	Log     zerolog.Logger
}

type PlaceOrderReq struct {
	Address       string            `json:"address"`
	PaymentMethod string            `json:"paymentMethod"`
	Cart          []orders.CartItem `json:"cart"`
}

type PlaceOrderResp struct {
	Success bool  `json:"success"`
	OrderID int64 `json:"orderId"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.Auth.RequireUser)
		r.Post("/orders/place", h.placeOrder)
		r.Get("/orders/my", h.myOrders)
	})
}

func (h *OrdersHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity.UserIDFrom(r.Context())

	var req PlaceOrderReq
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPlaceBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.Service.Place(ctx, orders.PlaceRequest{
		UserID:          userID,
		ShippingAddress: req.Address,
		PaymentMethod:   req.PaymentMethod,
		Items:           req.Cart,
		IdempotencyKey:  r.Header.Get("Idempotency-Key"),
		RequestID:       middleware.GetReqID(r.Context()),
	})
	var verr *orders.ValidationError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, PlaceOrderResp{Success: true, OrderID: res.OrderID})
	case errors.Is(err, orders.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "Not authenticated")
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	default:
		h.Log.Error().Err(err).Int64("user_id", userID).Str("request_id", middleware.GetReqID(r.Context())).Msg("place order")
		writeError(w, http.StatusInternalServerError, "Failed to place order")
	}
}

func (h *OrdersHandler) myOrders(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity.UserIDFrom(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Service.History(ctx, userID)
	switch {
	case err == nil:
		if list == nil {
			list = []orders.Order{}
		}
		writeJSON(w, http.StatusOK, list)
	case errors.Is(err, orders.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "Not authenticated")
	default:
		h.Log.Error().Err(err).Int64("user_id", userID).Msg("fetch orders")
		writeError(w, http.StatusInternalServerError, "Failed to fetch orders")
	}
}
