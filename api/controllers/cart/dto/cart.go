package dto

import cartsvc "github.com/gomarketplace/cartstore/internal/cart"

// AddItemRequest is the product being placed in the cart. Quantity is owned
// by the cart and cannot be sent.
type AddItemRequest struct {
	ID       string  `json:"id" validate:"required"`
	Title    string  `json:"title" validate:"required"`
	ImageURL string  `json:"image_url"`
	Price    float64 `json:"price" validate:"gte=0"`
}

func (r AddItemRequest) Product() cartsvc.Product {
	return cartsvc.Product{
		ID:       r.ID,
		Title:    r.Title,
		ImageURL: r.ImageURL,
		Price:    r.Price,
	}
}

type LineItem struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	ImageURL string  `json:"image_url"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

type Summary struct {
	Lines    int     `json:"lines"`
	Units    int     `json:"units"`
	Subtotal float64 `json:"subtotal"`
}

// Cart is the response body for every cart endpoint.
type Cart struct {
	Items   []LineItem `json:"items"`
	Summary Summary    `json:"summary"`
}

func NewCart(items []cartsvc.LineItem, summary cartsvc.Summary) Cart {
	out := Cart{
		Items: make([]LineItem, 0, len(items)),
		Summary: Summary{
			Lines:    summary.Lines,
			Units:    summary.Units,
			Subtotal: summary.Subtotal,
		},
	}
	for _, it := range items {
		out.Items = append(out.Items, LineItem{
			ID:       it.ID,
			Title:    it.Title,
			ImageURL: it.ImageURL,
			Price:    it.Price,
			Quantity: it.Quantity,
		})
	}
	return out
}
