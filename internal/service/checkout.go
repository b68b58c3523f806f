package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"grocery-store/internal/catalog"
	"grocery-store/internal/domain"
)

const ordersCacheTTL = 5 * time.Minute

func ordersCacheKey(email string) string {
	return fmt.Sprintf("orders:%s", email)
}

// Checkout turns the session cart into an order. The cart is only cleared
// once the order has been appended to the order store.
func (s *storefront) Checkout(ctx context.Context, sessionID string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	order, err := domain.CreateOrder(sess.user, sess.cart, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.orders.Append(ctx, order); err != nil {
		return nil, fmt.Errorf("append order: %w", err)
	}

	sess.cart.Clear()
	s.orderPlaced(ctx, order)

	// order already appended; a failed save is logged, not returned
	if err := s.users.Save(ctx, s.accounts); err != nil {
		s.logger.WithError(err).WithField("email", order.UserEmail).Warn("save users after checkout")
	}
	return order, nil
}

// BuyNow orders quantity units of one product directly, leaving the cart alone.
func (s *storefront) BuyNow(ctx context.Context, sessionID string, ref catalog.Reference, quantity int) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.user == nil {
		return nil, domain.ErrGuestCheckout
	}
	product, err := s.catalog.Resolve(ref)
	if err != nil {
		return nil, err
	}

	single := domain.NewCart()
	if err := single.AddLine(product, quantity); err != nil {
		return nil, err
	}
	order, err := domain.CreateOrder(sess.user, single, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.orders.Append(ctx, order); err != nil {
		return nil, fmt.Errorf("append order: %w", err)
	}

	s.orderPlaced(ctx, order)
	return order, nil
}

func (s *storefront) orderPlaced(ctx context.Context, order *domain.Order) {
	if err := s.cache.Delete(ctx, ordersCacheKey(order.UserEmail)); err != nil {
		s.logger.WithError(err).Warn("invalidate order cache")
	}
	s.logger.WithFields(logrus.Fields{
		"email": order.UserEmail,
		"lines": len(order.Lines),
		"total": order.Total().StringFixed(2),
	}).Info("order placed")
}

// Orders returns the order history of the session user, oldest first.
func (s *storefront) Orders(ctx context.Context, sessionID string) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.user == nil {
		return nil, ErrLoginRequired
	}

	key := ordersCacheKey(sess.user.Email)
	if data := s.cache.Get(ctx, key); data != nil {
		var cached []domain.Order
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
	}

	orders, err := s.orders.ListByEmail(ctx, sess.user.Email, s.catalog)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if payload, err := json.Marshal(orders); err == nil {
		s.cache.Set(ctx, key, payload, ordersCacheTTL)
	}
	return orders, nil
}
