package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrEmptyCart is returned when checking out a cart without lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrGuestCheckout is returned when a guest session tries to check out.
	ErrGuestCheckout = errors.New("checkout requires a registered user")
)

// OrderLine is a copied cart line. It holds the product by value.
type OrderLine struct {
	Product  Product
	Quantity int
}

func (l OrderLine) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order is an immutable record of a checkout.
type Order struct {
	UserName  string
	UserEmail string
	Lines     []OrderLine
	CreatedAt time.Time
}

// CreateOrder snapshots cart for user. Neither argument is modified; clearing
// the cart after a successful checkout is the caller's job.
func CreateOrder(user *User, cart *Cart, now time.Time) (*Order, error) {
	if user == nil {
		return nil, ErrGuestCheckout
	}
	if cart == nil || cart.IsEmpty() {
		return nil, ErrEmptyCart
	}
	return &Order{
		UserName:  user.Name,
		UserEmail: user.Email,
		Lines:     cart.Snapshot(),
		CreatedAt: now.UTC().Truncate(time.Second),
	}, nil
}

func (o Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range o.Lines {
		total = total.Add(line.Subtotal())
	}
	return total
}
