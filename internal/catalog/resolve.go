package catalog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"grocery-store/internal/domain"
)

var (
	// ErrNotFound means the reference matched no product.
	ErrNotFound = errors.New("product not found")
	// ErrNoMatches means a name filter matched no product.
	ErrNoMatches = errors.New("no products match filter")
	// ErrChoiceRequired means a name filter matched several products and no choice was given.
	ErrChoiceRequired = errors.New("several products match filter, choose one")
	// ErrInvalidChoice means the choice does not index the filter matches.
	ErrInvalidChoice = errors.New("invalid choice")
	// ErrInvalidReference means the reference value cannot be parsed for its field.
	ErrInvalidReference = errors.New("invalid product reference")
)

// Field selects the lookup strategy of a Reference.
type Field int

const (
	ByID Field = iota + 1
	ByBarcode
	ByName
	ByFilter
)

func (f Field) String() string {
	switch f {
	case ByID:
		return "id"
	case ByBarcode:
		return "barcode"
	case ByName:
		return "name"
	case ByFilter:
		return "filter"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

// ParseField maps "id", "barcode", "name" or "filter" to a Field.
func ParseField(s string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "id":
		return ByID, nil
	case "barcode":
		return ByBarcode, nil
	case "name":
		return ByName, nil
	case "filter", "search":
		return ByFilter, nil
	}
	return 0, fmt.Errorf("%w: unknown field %q", ErrInvalidReference, s)
}

// Reference names a product the way a caller typed it. Choice is the
// 1-based pick among filter matches; zero means no pick was made.
type Reference struct {
	By     Field
	Value  string
	Choice int
}

// AmbiguousError carries the matches of a filter that needs a choice.
type AmbiguousError struct {
	Matches []*domain.Product
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("%d products match filter, choose one", len(e.Matches))
}

func (e *AmbiguousError) Unwrap() error {
	return ErrChoiceRequired
}

// Resolve turns ref into a single catalog product.
func (c *Catalog) Resolve(ref Reference) (*domain.Product, error) {
	switch ref.By {
	case ByID:
		id, err := strconv.Atoi(strings.TrimSpace(ref.Value))
		if err != nil {
			return nil, fmt.Errorf("%w: id %q", ErrInvalidReference, ref.Value)
		}
		return found(c.FindByID(id))
	case ByBarcode:
		code, err := strconv.ParseInt(strings.TrimSpace(ref.Value), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: barcode %q", ErrInvalidReference, ref.Value)
		}
		return found(c.FindByBarcode(code))
	case ByName:
		return found(c.FindByExactName(strings.TrimSpace(ref.Value)))
	case ByFilter:
		return pick(c.FilterByNameSubstring(ref.Value), ref.Choice)
	}
	return nil, fmt.Errorf("%w: unknown field %v", ErrInvalidReference, ref.By)
}

func found(p *domain.Product, ok bool) (*domain.Product, error) {
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func pick(matches []*domain.Product, choice int) (*domain.Product, error) {
	if len(matches) == 0 {
		return nil, ErrNoMatches
	}
	if choice == 0 {
		if len(matches) == 1 {
			return matches[0], nil
		}
		return nil, &AmbiguousError{Matches: matches}
	}
	if choice < 0 || choice > len(matches) {
		return nil, fmt.Errorf("%w: %d of %d", ErrInvalidChoice, choice, len(matches))
	}
	return matches[choice-1], nil
}
