// Package audit reconciles placed orders against what was actually stored.
package audit

import (
	"context"
	"encoding/json"
	"errors"

	kafkax "github.com/ecofinds/ecofinds-orders/internal/kafka"
	"github.com/ecofinds/ecofinds-orders/internal/metrics"
	"github.com/ecofinds/ecofinds-orders/internal/orders"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
)

type Result string

const (
	ResultOK            Result = "ok"
	ResultTotalMismatch Result = "total_mismatch"
	ResultItemsMismatch Result = "items_mismatch"
	ResultMissing       Result = "missing"
)

type OrderReader interface {
	GetOrder(ctx context.Context, orderID int64) (orders.Order, error)
	ListItemsByOrder(ctx context.Context, orderID int64) ([]orders.OrderItem, error)
}

// Deduper remembers processed event ids (redisx.Dedup in production).
type Deduper interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

type Service struct {
	Orders OrderReader
	Dedup  Deduper
	Log    zerolog.Logger
}

// HandleOrderPlaced is installed as the consumer handler for order.placed.
// Undecodable messages are logged and skipped; store errors are returned and the consumer retries the message.
func (s *Service) HandleOrderPlaced(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		s.Log.Error().Err(err).Int64("offset", m.Offset).Msg("skip undecodable envelope")
		return nil
	}
	if env.EventType != orders.EventOrderPlaced {
		return nil
	}

	if env.EventID != "" {
		fresh, err := s.Dedup.Claim(ctx, env.EventID)
		if err != nil {
			return err
		}
		if !fresh {
			return nil
		}
	}

	p, err := kafkax.UnwrapPayload[orders.OrderPlacedPayload](env.Payload)
	if err != nil {
		s.Log.Error().Err(err).Str("event_id", env.EventID).Msg("skip undecodable payload")
		return nil
	}

	res, err := s.Check(ctx, p)
	if err != nil {
		if env.EventID != "" {
			if rerr := s.Dedup.Release(ctx, env.EventID); rerr != nil {
				s.Log.Warn().Err(rerr).Str("event_id", env.EventID).Msg("release dedup key")
			}
		}
		return err
	}
	metrics.AuditChecks.WithLabelValues(string(res)).Inc()

	ev := s.Log.Info()
	if res != ResultOK {
		ev = s.Log.Error()
	}
	ev.Str("result", string(res)).Int64("order_id", p.OrderID).Str("trace_id", env.TraceID).Msg("order audited")
	return nil
}

// Check compares the stored order and its items with each other and with the event.
func (s *Service) Check(ctx context.Context, p orders.OrderPlacedPayload) (Result, error) {
	o, err := s.Orders.GetOrder(ctx, p.OrderID)
	if errors.Is(err, orders.ErrOrderNotFound) {
		return ResultMissing, nil
	}
	if err != nil {
		return "", err
	}
	items, err := s.Orders.ListItemsByOrder(ctx, p.OrderID)
	if err != nil {
		return "", err
	}

	if len(items) == 0 || len(items) != len(p.Items) {
		return ResultItemsMismatch, nil
	}
	if sum := orders.SumItems(items); sum != o.TotalAmount || o.TotalAmount != p.TotalAmount {
		return ResultTotalMismatch, nil
	}
	return ResultOK, nil
}
