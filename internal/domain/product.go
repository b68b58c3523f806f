package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Product is an immutable catalog entry. The barcode is its identity: two
// products with the same barcode are the same product whatever the other fields say.
type Product struct {
	ID      int
	Name    string
	Price   decimal.Decimal
	Barcode int64
}

// SameAs reports whether p and other identify the same product.
func (p Product) SameAs(other Product) bool {
	return p.Barcode == other.Barcode
}

func (p Product) String() string {
	return fmt.Sprintf("%d. %s - $%s", p.ID, p.Name, p.Price.StringFixed(2))
}

// ProductResolver maps a persisted barcode back to a loaded catalog product.
type ProductResolver interface {
	FindByBarcode(code int64) (*Product, bool)
}
