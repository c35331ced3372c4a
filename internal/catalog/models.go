package catalog

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("product not found")

type Product struct {
	ID              int64     `json:"id"`
	SellerID        int64     `json:"seller_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Category        string    `json:"category"`
	PriceMinorUnits int64     `json:"price_minor_units"`
	ImageURL        *string   `json:"image_url"`
	Quantity        int       `json:"quantity"`
	Condition       string    `json:"condition"`
	Brand           string    `json:"brand"`
	CreatedAt       time.Time `json:"created_at"`
}

// Filter narrows List. Zero values mean "no constraint"; Limit is clamped to [1, MaxListLimit].
type Filter struct {
	SellerID *int64
	Category string
	Limit    int
	Offset   int
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

func (f Filter) limit() int {
	switch {
	case f.Limit <= 0:
		return DefaultListLimit
	case f.Limit > MaxListLimit:
		return MaxListLimit
	default:
		return f.Limit
	}
}
