package repository

import (
	"context"
	"fmt"

	"grocery-store/internal/domain"
)

// ProductRepository loads and saves the product catalog. Skipped reports how
// many records the last Load dropped as malformed.
type ProductRepository interface {
	Load(ctx context.Context) ([]domain.Product, error)
	Save(ctx context.Context, products []domain.Product) error
	Skipped() int
}

// UserRepository loads and saves every account with its current cart.
// Cart lines are resolved against the catalog on load.
type UserRepository interface {
	Load(ctx context.Context, products domain.ProductResolver) ([]*domain.User, error)
	Save(ctx context.Context, users []*domain.User) error
}

// OrderRepository is the append-only order history.
type OrderRepository interface {
	Init(ctx context.Context) error
	Append(ctx context.Context, order *domain.Order) error
	ListByEmail(ctx context.Context, email string, products domain.ProductResolver) ([]domain.Order, error)
}

// StorageError reports a store that could not be read or written.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
