package domain

import "github.com/shopspring/decimal"

// LowStockThreshold marks products the catalog flags as running out.
const LowStockThreshold = 5

// Product is a sellable item. Addon products are ordinary products for
// stock purposes but are excluded from the standalone catalog.
type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
	Active   bool            `json:"active"`
	IsAddon  bool            `json:"isAddon"`
	Category string          `json:"category"`
}

// Sellable reports whether the product appears in the standalone catalog.
func (p Product) Sellable() bool {
	return p.Active && !p.IsAddon
}

// LowStock reports whether the product should be flagged as running out.
func (p Product) LowStock() bool {
	return p.Stock > 0 && p.Stock <= LowStockThreshold
}

// StockLine pairs a product with a quantity for ledger operations.
type StockLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}
