package service

import (
	"context"
	"fmt"

	"github.com/flicky/moodshop-api/internal/model"
	"github.com/flicky/moodshop-api/internal/repository"
)

// CartService manages the cart of one session at a time. Every mutation
// returns the cart as stored afterwards.
type CartService struct {
	cartStore   repository.CartStore
	productRepo repository.ProductRepository
}

func NewCartService(cartStore repository.CartStore, productRepo repository.ProductRepository) *CartService {
	return &CartService{cartStore: cartStore, productRepo: productRepo}
}

func (s *CartService) GetCart(ctx context.Context, sessionID string) (*model.Cart, error) {
	cart, err := s.cartStore.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

func (s *CartService) AddItem(ctx context.Context, sessionID string, productID int64, quantity int) (*model.Cart, error) {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	return s.update(ctx, sessionID, func(cart *model.Cart) { cart.Add(*product, quantity) })
}

// SetQuantity removes the line when quantity is zero or less. Products that
// are not in the cart are ignored.
func (s *CartService) SetQuantity(ctx context.Context, sessionID string, productID int64, quantity int) (*model.Cart, error) {
	return s.update(ctx, sessionID, func(cart *model.Cart) { cart.SetQuantity(productID, quantity) })
}

func (s *CartService) RemoveItem(ctx context.Context, sessionID string, productID int64) (*model.Cart, error) {
	return s.update(ctx, sessionID, func(cart *model.Cart) { cart.Remove(productID) })
}

func (s *CartService) Clear(ctx context.Context, sessionID string) error {
	if err := s.cartStore.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (s *CartService) update(ctx context.Context, sessionID string, fn func(cart *model.Cart)) (*model.Cart, error) {
	cart, err := s.cartStore.Update(ctx, sessionID, func(cart *model.Cart) error {
		fn(cart)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update cart: %w", err)
	}
	return cart, nil
}
