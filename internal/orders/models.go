package orders

import (
	"strings"
	"time"
)

type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "COD"
	PaymentCard           PaymentMethod = "Card"
	PaymentNetBanking     PaymentMethod = "NetBanking"
)

var paymentAliases = map[string]PaymentMethod{
	"cod":              PaymentCashOnDelivery,
	"cashondelivery":   PaymentCashOnDelivery,
	"cash_on_delivery": PaymentCashOnDelivery,
	"card":             PaymentCard,
	"netbanking":       PaymentNetBanking,
	"net_banking":      PaymentNetBanking,
}

// ParsePaymentMethod accepts the checkout values case-insensitively.
func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	pm, ok := paymentAliases[strings.ToLower(strings.TrimSpace(s))]
	return pm, ok
}

type Order struct {
	ID              int64         `json:"id"`
	UserID          int64         `json:"user_id"`
	ShippingAddress string        `json:"shipping_address"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
	TotalAmount     int64         `json:"total_amount"`
	IdempotencyKey  string        `json:"-"`
	CreatedAt       time.Time     `json:"created_at"`
	Items           []OrderItem   `json:"items"`
}

// OrderItem is a purchase-time snapshot; ProductID is nil once the catalog entry is gone.
type OrderItem struct {
	ID              int64   `json:"id"`
	OrderID         int64   `json:"order_id"`
	ProductID       *int64  `json:"product_id"`
	Title           string  `json:"title"`
	Image           *string `json:"image"`
	PriceMinorUnits int64   `json:"price_minor_units"`
	Quantity        int     `json:"quantity"`
}

func (it OrderItem) LineTotal() int64 { return it.PriceMinorUnits * int64(it.Quantity) }

// SumItems is the total an order must carry for its items.
func SumItems(items []OrderItem) int64 {
	var total int64
	for _, it := range items {
		total += it.LineTotal()
	}
	return total
}

// CartItem is one line of the client-assembled cart. Pointer fields distinguish absent from zero.
type CartItem struct {
	ProductID       *int64  `json:"id,omitempty"`
	Title           string  `json:"title"`
	Image           *string `json:"image,omitempty"`
	PriceMinorUnits *int64  `json:"price_minor_units"`
	Quantity        *int    `json:"quantity"`
}

type PlaceRequest struct {
	UserID          int64
	ShippingAddress string
	PaymentMethod   string
	Items           []CartItem
	IdempotencyKey  string
	RequestID       string
}

type PlaceResult struct {
	OrderID     int64
	TotalAmount int64
	Existed     bool
}
