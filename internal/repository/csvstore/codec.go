package csvstore

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"grocery-store/internal/domain"
)

const (
	// Delimiter separates fields within a record. It is never escaped.
	Delimiter = ","
	// ItemDelimiter separates barcode and quantity inside a cart or order item field.
	ItemDelimiter = ":"
)

// ErrDelimiterInField is returned by Save when a value would break the line format.
var ErrDelimiterInField = errors.New("field contains a reserved delimiter")

// ParseError describes one malformed record or item. Loads log it and skip
// the offending line or item.
type ParseError struct {
	Path   string
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Reason)
}

func decodeProduct(fields []string) (domain.Product, error) {
	if len(fields) != 4 {
		return domain.Product{}, fmt.Errorf("expected 4 fields, got %d", len(fields))
	}
	id, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil || id <= 0 {
		return domain.Product{}, fmt.Errorf("invalid id %q", fields[0])
	}
	price, err := decimal.NewFromString(strings.TrimSpace(fields[2]))
	if err != nil || price.IsNegative() {
		return domain.Product{}, fmt.Errorf("invalid price %q", fields[2])
	}
	barcode, err := strconv.ParseInt(strings.TrimSpace(fields[3]), 10, 64)
	if err != nil || barcode <= 0 {
		return domain.Product{}, fmt.Errorf("invalid barcode %q", fields[3])
	}
	return domain.Product{ID: id, Name: fields[1], Price: price, Barcode: barcode}, nil
}

func encodeProduct(p domain.Product) (string, error) {
	if err := checkFields(p.Name); err != nil {
		return "", err
	}
	return strings.Join([]string{
		strconv.Itoa(p.ID),
		p.Name,
		formatPrice(p.Price),
		strconv.FormatInt(p.Barcode, 10),
	}, Delimiter), nil
}

// formatPrice keeps the scale the price was parsed with, so "2.50" is written back as "2.50".
func formatPrice(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.StringFixed(0)
}

type item struct {
	barcode  int64
	quantity int
}

func decodeItem(field string) (item, error) {
	parts := strings.Split(field, ItemDelimiter)
	if len(parts) != 2 {
		return item{}, fmt.Errorf("malformed item %q", field)
	}
	barcode, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return item{}, fmt.Errorf("invalid item barcode %q", parts[0])
	}
	quantity, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return item{}, fmt.Errorf("invalid item quantity %q", parts[1])
	}
	if quantity <= 0 {
		return item{}, fmt.Errorf("non-positive item quantity %d", quantity)
	}
	return item{barcode: barcode, quantity: quantity}, nil
}

func encodeItem(barcode int64, quantity int) string {
	return strconv.FormatInt(barcode, 10) + ItemDelimiter + strconv.Itoa(quantity)
}

func checkFields(values ...string) error {
	for _, v := range values {
		if strings.Contains(v, Delimiter) || strings.ContainsAny(v, "\r\n") {
			return fmt.Errorf("%w: %q", ErrDelimiterInField, v)
		}
	}
	return nil
}
