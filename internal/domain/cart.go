package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidQuantity is returned when a cart operation is given a quantity below one.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	// ErrNilProduct is returned when a cart operation is given no product.
	ErrNilProduct = errors.New("product is required")
)

// CartLine is one product in a cart together with how many units were added.
type CartLine struct {
	Product  *Product
	Quantity int
}

// Subtotal returns price * quantity for the line.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is an ordered set of lines with at most one line per barcode.
// A line never holds a quantity below one; it is removed instead.
type Cart struct {
	lines []CartLine
}

func NewCart() *Cart {
	return &Cart{}
}

func (c *Cart) index(barcode int64) int {
	for i := range c.lines {
		if c.lines[i].Product.Barcode == barcode {
			return i
		}
	}
	return -1
}

// AddLine merges quantity into the line for product, appending a new line
// when the product is not in the cart yet.
func (c *Cart) AddLine(product *Product, quantity int) error {
	if product == nil {
		return ErrNilProduct
	}
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if i := c.index(product.Barcode); i >= 0 {
		c.lines[i].Quantity += quantity
		return nil
	}
	c.lines = append(c.lines, CartLine{Product: product, Quantity: quantity})
	return nil
}

// RemoveLine drops the whole line for product. Absent products are ignored.
func (c *Cart) RemoveLine(product *Product) {
	if product == nil {
		return
	}
	if i := c.index(product.Barcode); i >= 0 {
		c.deleteAt(i)
	}
}

// ReduceLine lowers the line quantity for product, deleting the line once it
// reaches zero. Absent products are ignored.
func (c *Cart) ReduceLine(product *Product, quantity int) error {
	if product == nil {
		return ErrNilProduct
	}
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	i := c.index(product.Barcode)
	if i < 0 {
		return nil
	}
	if c.lines[i].Quantity-quantity <= 0 {
		c.deleteAt(i)
		return nil
	}
	c.lines[i].Quantity -= quantity
	return nil
}

func (c *Cart) deleteAt(i int) {
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
}

// Total sums price * quantity over all lines without rounding.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.lines = nil
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

func (c *Cart) Len() int {
	return len(c.lines)
}

// Quantity returns the quantity held for barcode, or zero.
func (c *Cart) Quantity(barcode int64) int {
	if i := c.index(barcode); i >= 0 {
		return c.lines[i].Quantity
	}
	return 0
}

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []CartLine {
	out := make([]CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// Snapshot copies every line, product included, so the result does not
// change when the cart is mutated or cleared afterwards.
func (c *Cart) Snapshot() []OrderLine {
	out := make([]OrderLine, len(c.lines))
	for i, line := range c.lines {
		out[i] = OrderLine{Product: *line.Product, Quantity: line.Quantity}
	}
	return out
}
