package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderPlaced = "OrderPlaced"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // one of the Event* consts
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"` // e.g. "order-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type ItemLine struct {
	ProductID       *int64 `json:"product_id,omitempty"`
	Quantity        int    `json:"quantity"`
	PriceMinorUnits int64  `json:"price_minor_units"`
}

type OrderPlacedPayload struct {
	OrderID       int64         `json:"order_id"`
	UserID        int64         `json:"user_id"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	TotalAmount   int64         `json:"total_amount"`
	Items         []ItemLine    `json:"items"`
}

func placedPayload(o Order) OrderPlacedPayload {
	lines := make([]ItemLine, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, ItemLine{ProductID: it.ProductID, Quantity: it.Quantity, PriceMinorUnits: it.PriceMinorUnits})
	}
	return OrderPlacedPayload{
		OrderID:       o.ID,
		UserID:        o.UserID,
		PaymentMethod: o.PaymentMethod,
		TotalAmount:   o.TotalAmount,
		Items:         lines,
	}
}
