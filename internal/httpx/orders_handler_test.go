package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ecofinds/ecofinds-orders/internal/identity"
	"github.com/ecofinds/ecofinds-orders/internal/orders"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type fakeOrders struct {
	mu       sync.Mutex
	placed   []orders.PlaceRequest
	placeRes orders.PlaceResult
	placeErr error
	history  []orders.Order
	histErr  error
	histUser int64
}

func (f *fakeOrders) Place(_ context.Context, req orders.PlaceRequest) (orders.PlaceResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.placed = append(f.placed, req)
	return f.placeRes, f.placeErr
}

func (f *fakeOrders) History(_ context.Context, userID int64) ([]orders.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.histUser = userID
	return f.history, f.histErr
}

func newOrdersServer(svc OrderService) http.Handler {
	r := NewRouter(zerolog.Nop())
	h := &OrdersHandler{
		Service: svc,
		Auth:    &Authenticator{Verifier: identity.NewVerifier(testSecret), CookieName: "token"},
		Log:     zerolog.Nop(),
	}
	h.Register(r)
	return r
}

func tokenFor(t *testing.T, userID int64) string {
	t.Helper()
	tok, err := identity.NewIssuer(testSecret, time.Hour).Issue(userID, fmt.Sprintf("u%d@example.com", userID))
	require.NoError(t, err)
	return tok
}

func do(t *testing.T, h http.Handler, method, path, body string, opts ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for _, o := range opts {
		o(req)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func withCookie(tok string) func(*http.Request) {
	return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "token", Value: tok}) }
}

func withHeader(k, v string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set(k, v) }
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

const lampAndVase = `{
	"address": "12 Elm Street",
	"paymentMethod": "COD",
	"cart": [
		{"title": "Lamp", "price_minor_units": 1500, "quantity": 2, "category": "Home"},
		{"id": 7, "title": "Vase", "image": "/uploads/vase.png", "price_minor_units": 800, "quantity": 1}
	]
}`

func TestPlaceOrderOK(t *testing.T) {
	svc := &fakeOrders{placeRes: orders.PlaceResult{OrderID: 41, TotalAmount: 3800}}
	srv := newOrdersServer(svc)

	rec := do(t, srv, http.MethodPost, "/orders/place", lampAndVase,
		withCookie(tokenFor(t, 9)), withHeader("Idempotency-Key", "chk-1"))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp PlaceOrderResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.EqualValues(t, 41, resp.OrderID)

	require.Len(t, svc.placed, 1)
	got := svc.placed[0]
	require.EqualValues(t, 9, got.UserID)
	require.Equal(t, "12 Elm Street", got.ShippingAddress)
	require.Equal(t, "COD", got.PaymentMethod)
	require.Equal(t, "chk-1", got.IdempotencyKey)
	require.NotEmpty(t, got.RequestID)
	require.Len(t, got.Items, 2)
	require.Nil(t, got.Items[0].ProductID)
	require.EqualValues(t, 1500, *got.Items[0].PriceMinorUnits)
	require.Equal(t, 2, *got.Items[0].Quantity)
	require.EqualValues(t, 7, *got.Items[1].ProductID)
	require.Equal(t, "/uploads/vase.png", *got.Items[1].Image)
}

func TestPlaceOrderBearerToken(t *testing.T) {
	svc := &fakeOrders{placeRes: orders.PlaceResult{OrderID: 1}}
	rec := do(t, newOrdersServer(svc), http.MethodPost, "/orders/place", lampAndVase,
		withHeader("Authorization", "Bearer "+tokenFor(t, 3)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 3, svc.placed[0].UserID)
}

func TestPlaceOrderAuth(t *testing.T) {
	svc := &fakeOrders{}
	srv := newOrdersServer(svc)

	rec := do(t, srv, http.MethodPost, "/orders/place", lampAndVase)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Not authenticated", errorBody(t, rec))

	rec = do(t, srv, http.MethodPost, "/orders/place", lampAndVase, withCookie("not-a-jwt"))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Invalid token", errorBody(t, rec))

	forged, err := identity.NewIssuer("other-secret", time.Hour).Issue(9, "")
	require.NoError(t, err)
	rec = do(t, srv, http.MethodPost, "/orders/place", lampAndVase, withCookie(forged))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Invalid token", errorBody(t, rec))

	require.Empty(t, svc.placed)
}

func TestPlaceOrderInvalidJSON(t *testing.T) {
	svc := &fakeOrders{}
	rec := do(t, newOrdersServer(svc), http.MethodPost, "/orders/place", `{"cart": [`, withCookie(tokenFor(t, 1)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid json", errorBody(t, rec))
	require.Empty(t, svc.placed)
}

func TestPlaceOrderErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"empty cart", orders.ErrEmptyCart, http.StatusBadRequest, "Cart is empty"},
		{"validation", &orders.ValidationError{Field: "cart[0].quantity", Reason: "is required"}, http.StatusBadRequest, "cart[0].quantity: is required"},
		{"wrapped validation", fmt.Errorf("place: %w", &orders.ValidationError{Field: "address", Reason: "shipping address is required"}), http.StatusBadRequest, "address: shipping address is required"},
		{"unauthenticated", orders.ErrUnauthenticated, http.StatusUnauthorized, "Not authenticated"},
		{"store", fmt.Errorf("%w: pq: relation does not exist", orders.ErrStoreFailure), http.StatusInternalServerError, "Failed to place order"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "Failed to place order"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeOrders{placeErr: tc.err}
			rec := do(t, newOrdersServer(svc), http.MethodPost, "/orders/place", lampAndVase, withCookie(tokenFor(t, 1)))
			require.Equal(t, tc.code, rec.Code)
			require.Equal(t, tc.msg, errorBody(t, rec))
			require.NotContains(t, rec.Body.String(), "relation")
		})
	}
}

func TestMyOrders(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	svc := &fakeOrders{history: []orders.Order{{
		ID: 5, UserID: 9, ShippingAddress: "12 Elm Street", PaymentMethod: orders.PaymentCard,
		TotalAmount: 3800, CreatedAt: created,
		Items: []orders.OrderItem{{ID: 1, OrderID: 5, Title: "Lamp", PriceMinorUnits: 1500, Quantity: 2}},
	}}}

	rec := do(t, newOrdersServer(svc), http.MethodGet, "/orders/my", "", withCookie(tokenFor(t, 9)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 9, svc.histUser)

	var body []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	require.EqualValues(t, 5, body[0]["id"])
	require.Equal(t, "Card", body[0]["payment_method"])
	require.EqualValues(t, 3800, body[0]["total_amount"])
	require.Equal(t, "12 Elm Street", body[0]["shipping_address"])
	require.NotContains(t, body[0], "IdempotencyKey")
	items := body[0]["items"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	require.Equal(t, "Lamp", item["title"])
	require.EqualValues(t, 1500, item["price_minor_units"])
	require.Nil(t, item["product_id"])
}

func TestMyOrdersEmptyIsArray(t *testing.T) {
	rec := do(t, newOrdersServer(&fakeOrders{}), http.MethodGet, "/orders/my", "", withCookie(tokenFor(t, 2)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[]`, rec.Body.String())
}

func TestMyOrdersErrors(t *testing.T) {
	rec := do(t, newOrdersServer(&fakeOrders{}), http.MethodGet, "/orders/my", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Not authenticated", errorBody(t, rec))

	svc := &fakeOrders{histErr: fmt.Errorf("%w: timeout", orders.ErrStoreFailure)}
	rec = do(t, newOrdersServer(svc), http.MethodGet, "/orders/my", "", withCookie(tokenFor(t, 2)))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "Failed to fetch orders", errorBody(t, rec))
}

func TestHealthzAndMetrics(t *testing.T) {
	srv := newOrdersServer(&fakeOrders{})

	rec := do(t, srv, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "http_requests_total")
}
