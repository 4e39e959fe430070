// Package catalog fetches the storefront's product list from the external
// demo API and memoizes that single fetch for the life of the process.
package catalog

import (
	"context"

	"github.com/shopspring/decimal"
)

// DefaultProductsURL is the public read-only demo endpoint.
const DefaultProductsURL = "https://fakestoreapi.com/products"

// Product is a read-only record owned by the external source.
type Product struct {
	ID          int             `json:"id"`
	Title       string          `json:"title"`
	Image       string          `json:"image"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Rating      Rating          `json:"rating"`
}

type Rating struct {
	Rate  float64 `json:"rate"`
	Count int     `json:"count"`
}

// DisplayPrice renders the price with two decimals, e.g. "$109.95".
func (p Product) DisplayPrice() string {
	return "$" + p.Price.StringFixed(2)
}

// ImageOrPlaceholder falls back to a local placeholder when the source
// omits an image.
func (p Product) ImageOrPlaceholder() string {
	if p.Image == "" {
		return "/assets/placeholder.svg"
	}
	return p.Image
}

// Source retrieves the full product list.
type Source interface {
	FetchProducts(ctx context.Context) ([]Product, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]Product, error)

func (f SourceFunc) FetchProducts(ctx context.Context) ([]Product, error) { return f(ctx) }
