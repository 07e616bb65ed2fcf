package cart

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

// ErrSubtotalOutOfRange reports a cart whose total no longer fits a float64.
var ErrSubtotalOutOfRange = errors.New("cart subtotal out of range")

// Product describes a catalog entry being placed in the cart.
type Product struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	ImageURL string  `json:"image_url"`
	Price    float64 `json:"price"`
}

// LineItem is one product entry in the cart with its quantity (always >= 1).
type LineItem struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	ImageURL string  `json:"image_url"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

func newLineItem(p Product) LineItem {
	return LineItem{
		ID:       p.ID,
		Title:    p.Title,
		ImageURL: p.ImageURL,
		Price:    p.Price,
		Quantity: 1,
	}
}

// Summary is derived from the line items; it is never persisted.
type Summary struct {
	Lines    int     `json:"lines"`
	Units    int     `json:"units"`
	Subtotal float64 `json:"subtotal"`
}

func summarize(items []LineItem) Summary {
	subtotal := decimal.Zero
	units := 0
	for _, it := range items {
		units += it.Quantity
		line := decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity)))
		subtotal = subtotal.Add(line)
	}
	total, _ := subtotal.Round(2).Float64()
	return Summary{
		Lines:    len(items),
		Units:    units,
		Subtotal: total,
	}
}

// checkSubtotal fails when the summary of items cannot be represented.
// Non-finite prices are left to the snapshot encoder.
func checkSubtotal(items []LineItem) error {
	for _, it := range items {
		if math.IsNaN(it.Price) || math.IsInf(it.Price, 0) {
			return nil
		}
	}
	if math.IsInf(summarize(items).Subtotal, 0) {
		return ErrSubtotalOutOfRange
	}
	return nil
}

func indexOf(items []LineItem, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}
