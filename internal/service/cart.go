package service

import (
	"grocery-store/internal/catalog"
	"grocery-store/internal/domain"
)

func (s *storefront) AddToCart(sessionID string, ref catalog.Reference, quantity int) (domain.Product, error) {
	return s.mutateCart(sessionID, ref, func(cart *domain.Cart, p *domain.Product) error {
		return cart.AddLine(p, quantity)
	})
}

func (s *storefront) RemoveFromCart(sessionID string, ref catalog.Reference) (domain.Product, error) {
	return s.mutateCart(sessionID, ref, func(cart *domain.Cart, p *domain.Product) error {
		cart.RemoveLine(p)
		return nil
	})
}

func (s *storefront) ReduceInCart(sessionID string, ref catalog.Reference, quantity int) (domain.Product, error) {
	return s.mutateCart(sessionID, ref, func(cart *domain.Cart, p *domain.Product) error {
		return cart.ReduceLine(p, quantity)
	})
}

// mutateCart resolves ref through the catalog and applies fn to the session cart.
func (s *storefront) mutateCart(sessionID string, ref catalog.Reference, fn func(*domain.Cart, *domain.Product) error) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookup(sessionID)
	if err != nil {
		return domain.Product{}, err
	}
	product, err := s.catalog.Resolve(ref)
	if err != nil {
		return domain.Product{}, err
	}
	if err := fn(sess.cart, product); err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *storefront) Cart(sessionID string) (CartView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookup(sessionID)
	if err != nil {
		return CartView{}, err
	}
	return CartView{Lines: sess.cart.Snapshot(), Total: sess.cart.Total()}, nil
}
