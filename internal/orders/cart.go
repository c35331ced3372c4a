package orders

import (
	"fmt"
	"math"
	"strings"
)

const (
	MaxCartItems    = 100
	MaxItemQuantity = 10000
	maxAddressLen   = 1000
	maxTitleLen     = 300
)

type validRequest struct {
	address string
	payment PaymentMethod
	items   []CartItem
}

func validate(req PlaceRequest) (validRequest, error) {
	if len(req.Items) == 0 {
		return validRequest{}, ErrEmptyCart
	}
	if len(req.Items) > MaxCartItems {
		return validRequest{}, invalid("cart", "at most %d items per order", MaxCartItems)
	}

	address := strings.TrimSpace(req.ShippingAddress)
	if address == "" {
		return validRequest{}, invalid("address", "shipping address is required")
	}
	if len(address) > maxAddressLen {
		return validRequest{}, invalid("address", "longer than %d characters", maxAddressLen)
	}

	pm, ok := ParsePaymentMethod(req.PaymentMethod)
	if !ok {
		return validRequest{}, invalid("paymentMethod", "must be one of COD, Card, NetBanking")
	}

	for i, it := range req.Items {
		if err := validateItem(i, it); err != nil {
			return validRequest{}, err
		}
	}
	return validRequest{address: address, payment: pm, items: req.Items}, nil
}

func validateItem(i int, it CartItem) error {
	field := func(name string) string { return fmt.Sprintf("cart[%d].%s", i, name) }

	if it.ProductID != nil && *it.ProductID <= 0 {
		return invalid(field("id"), "must be positive")
	}
	title := strings.TrimSpace(it.Title)
	if title == "" {
		return invalid(field("title"), "is required")
	}
	if len(title) > maxTitleLen {
		return invalid(field("title"), "longer than %d characters", maxTitleLen)
	}
	if it.PriceMinorUnits == nil {
		return invalid(field("price_minor_units"), "is required")
	}
	if *it.PriceMinorUnits < 0 {
		return invalid(field("price_minor_units"), "must not be negative")
	}
	if it.Quantity == nil {
		return invalid(field("quantity"), "is required")
	}
	if q := *it.Quantity; q < 1 || q > MaxItemQuantity {
		return invalid(field("quantity"), "must be between 1 and %d", MaxItemQuantity)
	}
	return nil
}

// orderTotal sums price*quantity, rejecting totals that do not fit in int64.
func orderTotal(items []OrderItem) (int64, error) {
	var total int64
	for i, it := range items {
		q := int64(it.Quantity)
		if it.PriceMinorUnits > 0 && q > math.MaxInt64/it.PriceMinorUnits {
			return 0, invalid(fmt.Sprintf("cart[%d]", i), "line total overflows")
		}
		line := it.PriceMinorUnits * q
		if total > math.MaxInt64-line {
			return 0, invalid("cart", "order total overflows")
		}
		total += line
	}
	return total, nil
}
