package catalog

import (
	"strings"

	"grocery-store/internal/domain"
)

// Catalog is the read-only product set loaded at startup. Pointers handed out
// by the finders point into the catalog and must not be modified.
type Catalog struct {
	products  []domain.Product
	byBarcode map[int64]int
}

// New copies products into a catalog, keeping their order. When barcodes
// repeat, the first product loaded wins barcode lookups.
func New(products []domain.Product) *Catalog {
	c := &Catalog{
		products:  make([]domain.Product, len(products)),
		byBarcode: make(map[int64]int, len(products)),
	}
	copy(c.products, products)
	for i := range c.products {
		if _, exists := c.byBarcode[c.products[i].Barcode]; !exists {
			c.byBarcode[c.products[i].Barcode] = i
		}
	}
	return c
}

// Products returns a copy of every product in catalog order.
func (c *Catalog) Products() []domain.Product {
	out := make([]domain.Product, len(c.products))
	copy(out, c.products)
	return out
}

func (c *Catalog) Len() int {
	return len(c.products)
}

func (c *Catalog) FindByID(id int) (*domain.Product, bool) {
	for i := range c.products {
		if c.products[i].ID == id {
			return &c.products[i], true
		}
	}
	return nil, false
}

func (c *Catalog) FindByBarcode(code int64) (*domain.Product, bool) {
	i, ok := c.byBarcode[code]
	if !ok {
		return nil, false
	}
	return &c.products[i], true
}

// FindByExactName matches the whole name, ignoring case.
func (c *Catalog) FindByExactName(name string) (*domain.Product, bool) {
	for i := range c.products {
		if strings.EqualFold(c.products[i].Name, name) {
			return &c.products[i], true
		}
	}
	return nil, false
}

// FilterByNameSubstring returns every product whose name contains text,
// ignoring case, in catalog order. The result is empty, not nil, when nothing matches.
func (c *Catalog) FilterByNameSubstring(text string) []*domain.Product {
	needle := strings.ToLower(text)
	matches := make([]*domain.Product, 0)
	for i := range c.products {
		if strings.Contains(strings.ToLower(c.products[i].Name), needle) {
			matches = append(matches, &c.products[i])
		}
	}
	return matches
}

var _ domain.ProductResolver = (*Catalog)(nil)
