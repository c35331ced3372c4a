package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ecofinds/ecofinds-orders/internal/catalog"
	kafkax "github.com/ecofinds/ecofinds-orders/internal/kafka"
	"github.com/ecofinds/ecofinds-orders/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
)

// Store is the persistence the service needs. CreateOrder must be all-or-nothing.
type Store interface {
	CreateOrder(ctx context.Context, o *Order) error
	FindByIdempotencyKey(ctx context.Context, userID int64, key string) (Order, bool, error)
	ListOrdersByUser(ctx context.Context, userID int64) ([]Order, error)
	ListItemsByOrders(ctx context.Context, orderIDs []int64) (map[int64][]OrderItem, error)
}

// Catalog supplies authoritative product data by id.
type Catalog interface {
	GetMany(ctx context.Context, ids []int64) (map[int64]catalog.Product, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

const maxIdempotencyKeyLen = 128

type Service struct {
	Store     Store
	Catalog   Catalog   // nil: client snapshot prices are used as-is
	Publisher Publisher // nil: no events
	Log       zerolog.Logger

	ServiceName string
	// RequireCatalogPrice rejects cart lines without a product id.
	RequireCatalogPrice bool
}

// Place validates the cart, prices it and writes the order atomically.
func (s *Service) Place(ctx context.Context, req PlaceRequest) (PlaceResult, error) {
	res, err := s.place(ctx, req)
	switch {
	case err == nil:
	case errors.Is(err, ErrUnauthenticated):
		metrics.OrderPlaceFailures.WithLabelValues("unauthenticated").Inc()
	case errors.Is(err, ErrInvalidInput):
		metrics.OrderPlaceFailures.WithLabelValues("invalid_input").Inc()
	default:
		metrics.OrderPlaceFailures.WithLabelValues("store").Inc()
	}
	return res, err
}

func (s *Service) place(ctx context.Context, req PlaceRequest) (PlaceResult, error) {
	if req.UserID <= 0 {
		return PlaceResult{}, ErrUnauthenticated
	}
	v, err := validate(req)
	if err != nil {
		return PlaceResult{}, err
	}
	key := strings.TrimSpace(req.IdempotencyKey)
	if len(key) > maxIdempotencyKeyLen {
		return PlaceResult{}, invalid("Idempotency-Key", "longer than %d characters", maxIdempotencyKeyLen)
	}

	if key != "" {
		if res, ok, err := s.existing(ctx, req.UserID, key); err != nil || ok {
			return res, err
		}
	}

	items, err := s.price(ctx, v.items)
	if err != nil {
		return PlaceResult{}, err
	}
	total, err := orderTotal(items)
	if err != nil {
		return PlaceResult{}, err
	}

	o := &Order{
		UserID:          req.UserID,
		ShippingAddress: v.address,
		PaymentMethod:   v.payment,
		TotalAmount:     total,
		IdempotencyKey:  key,
		Items:           items,
	}
	if err := s.Store.CreateOrder(ctx, o); err != nil {
		if errors.Is(err, ErrDuplicateIdempotencyKey) {
			// lost a race against the same key; the winner's order is the answer
			if res, ok, ferr := s.existing(ctx, req.UserID, key); ferr != nil || ok {
				return res, ferr
			}
		}
		s.Log.Error().Err(err).Int64("user_id", req.UserID).Int("items", len(items)).Msg("place order failed")
		return PlaceResult{}, storeFailure("create order", err)
	}

	metrics.OrdersPlaced.WithLabelValues(string(o.PaymentMethod)).Inc()
	metrics.OrderAmount.Observe(float64(o.TotalAmount))
	s.Log.Info().Int64("order_id", o.ID).Int64("user_id", o.UserID).Int64("total_amount", o.TotalAmount).
		Int("items", len(o.Items)).Msg("order placed")

	s.publishPlaced(*o, req.RequestID)
	return PlaceResult{OrderID: o.ID, TotalAmount: o.TotalAmount}, nil
}

func (s *Service) existing(ctx context.Context, userID int64, key string) (PlaceResult, bool, error) {
	o, ok, err := s.Store.FindByIdempotencyKey(ctx, userID, key)
	if err != nil {
		s.Log.Error().Err(err).Int64("user_id", userID).Msg("idempotency lookup failed")
		return PlaceResult{}, false, storeFailure("find by idempotency key", err)
	}
	if !ok {
		return PlaceResult{}, false, nil
	}
	return PlaceResult{OrderID: o.ID, TotalAmount: o.TotalAmount, Existed: true}, true, nil
}

// price turns cart lines into order items. Lines naming a product take the catalog's
// price, title and image; the client's values are only kept for lines without one.
func (s *Service) price(ctx context.Context, cart []CartItem) ([]OrderItem, error) {
	var ids []int64
	for i, it := range cart {
		if it.ProductID != nil {
			ids = append(ids, *it.ProductID)
		} else if s.RequireCatalogPrice {
			return nil, invalid(fmt.Sprintf("cart[%d].id", i), "is required")
		}
	}

	var products map[int64]catalog.Product
	if len(ids) > 0 && s.Catalog != nil {
		var err error
		products, err = s.Catalog.GetMany(ctx, ids)
		if err != nil {
			s.Log.Error().Err(err).Msg("catalog lookup failed")
			return nil, storeFailure("catalog lookup", err)
		}
	}

	items := make([]OrderItem, 0, len(cart))
	for i, it := range cart {
		item := OrderItem{
			ProductID:       it.ProductID,
			Title:           strings.TrimSpace(it.Title),
			Image:           it.Image,
			PriceMinorUnits: *it.PriceMinorUnits,
			Quantity:        *it.Quantity,
		}
		if it.ProductID != nil && s.Catalog != nil {
			p, ok := products[*it.ProductID]
			if !ok {
				return nil, invalid(fmt.Sprintf("cart[%d].id", i), "product %d not found", *it.ProductID)
			}
			if p.PriceMinorUnits != item.PriceMinorUnits {
				s.Log.Warn().Int64("product_id", p.ID).Int64("client_price", item.PriceMinorUnits).
					Int64("catalog_price", p.PriceMinorUnits).Msg("client price differs from catalog")
			}
			item.PriceMinorUnits = p.PriceMinorUnits
			item.Title = p.Title
			item.Image = p.ImageURL
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *Service) publishPlaced(o Order, requestID string) {
	if s.Publisher == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     EventOrderPlaced,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		TraceID:       requestID,
		CorrelationID: fmt.Sprint(o.ID),
		Payload:       kafkax.MustMarshal(placedPayload(o)),
	}
	s.Publisher.Publish(PartitionKey(o.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(EventOrderPlaced)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

// History returns the user's orders newest first, each with its items.
func (s *Service) History(ctx context.Context, userID int64) ([]Order, error) {
	if userID <= 0 {
		return nil, ErrUnauthenticated
	}
	orders, err := s.Store.ListOrdersByUser(ctx, userID)
	if err != nil {
		s.Log.Error().Err(err).Int64("user_id", userID).Msg("list orders failed")
		return nil, storeFailure("list orders", err)
	}
	if len(orders) == 0 {
		return []Order{}, nil
	}

	ids := make([]int64, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	items, err := s.Store.ListItemsByOrders(ctx, ids)
	if err != nil {
		s.Log.Error().Err(err).Int64("user_id", userID).Msg("list order items failed")
		return nil, storeFailure("list order items", err)
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
		if orders[i].Items == nil {
			orders[i].Items = []OrderItem{}
		}
	}
	return orders, nil
}
