package domain

import "github.com/shopspring/decimal"

// AddonSelection is a snapshot of an addon product captured when the line
// is added, so later price edits do not alter an open cart.
type AddonSelection struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// CartLine is one line of a cart or order. UnitPrice is the base product
// price plus the sum of the selected addon prices, frozen at add-time.
type CartLine struct {
	ProductID string           `json:"productId"`
	Name      string           `json:"name"`
	UnitPrice decimal.Decimal  `json:"unitPrice"`
	Quantity  int              `json:"quantity"`
	Note      string           `json:"note,omitempty"`
	Addons    []AddonSelection `json:"addons,omitempty"`
}

// LineTotal is UnitPrice * Quantity.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// NewCartLine freezes the unit price of a product plus its addons.
func NewCartLine(p Product, quantity int, note string, addons []AddonSelection) CartLine {
	unit := p.Price
	for _, a := range addons {
		unit = unit.Add(a.Price)
	}
	return CartLine{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: unit,
		Quantity:  quantity,
		Note:      note,
		Addons:    addons,
	}
}

// LinesTotal sums the line totals of a cart or order item list.
func LinesTotal(lines []CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.LineTotal())
	}
	return total
}

// StockLines collapses cart lines into ledger quantities per product,
// counting addon snapshots as their own products.
func StockLines(lines []CartLine) []StockLine {
	index := make(map[string]int)
	var out []StockLine
	add := func(productID string, qty int) {
		if i, ok := index[productID]; ok {
			out[i].Quantity += qty
			return
		}
		index[productID] = len(out)
		out = append(out, StockLine{ProductID: productID, Quantity: qty})
	}
	for _, l := range lines {
		add(l.ProductID, l.Quantity)
		for _, a := range l.Addons {
			add(a.ID, l.Quantity)
		}
	}
	return out
}
