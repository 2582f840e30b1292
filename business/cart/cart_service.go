package cart

import (
	"context"
	"errors"

	"storefront/domain"
	"storefront/pkg/logger"
)

type CartRepository interface {
	AddItem(ctx context.Context, customerID, productID uint, qty int) (domain.CartItem, error)
	SetQuantity(ctx context.Context, customerID, productID uint, qty int) (domain.CartItem, error)
	RemoveItem(ctx context.Context, customerID, productID uint) error
	FindByCustomer(ctx context.Context, customerID uint) ([]domain.CartItem, error)
	ClearByCustomer(ctx context.Context, customerID uint) error
}

type ProductRepository interface {
	FindByID(ctx context.Context, id uint) (domain.Product, error)
}

type CustomerRepository interface {
	FindByUserID(ctx context.Context, userID uint) (domain.Customer, error)
}

type cartService struct {
	cartRepo     CartRepository
	productRepo  ProductRepository
	customerRepo CustomerRepository
}

func NewCartService(cartRepo CartRepository, productRepo ProductRepository, customerRepo CustomerRepository) *cartService {
	return &cartService{
		cartRepo:     cartRepo,
		productRepo:  productRepo,
		customerRepo: customerRepo,
	}
}

// AddItem puts qty of the product into the user's cart, adding to the
// quantity already there. Stock is not reserved; it is checked again when
// the order is placed.
func (s *cartService) AddItem(ctx context.Context, userID, productID uint, qty int) (domain.CartItem, error) {
	if productID == 0 {
		return domain.CartItem{}, domain.NewMissingFieldsError("product_id")
	}
	if qty < 1 {
		return domain.CartItem{}, domain.NewValidationError("quantity", "quantity must be at least 1")
	}

	customerID, err := s.customerID(ctx, userID)
	if err != nil {
		return domain.CartItem{}, err
	}

	if _, err := s.productRepo.FindByID(ctx, productID); err != nil {
		return domain.CartItem{}, err
	}

	item, err := s.cartRepo.AddItem(ctx, customerID, productID, qty)
	if err != nil {
		logger.Error("Failed to add cart item", err, "customer_id", customerID)
		return domain.CartItem{}, err
	}

	return item, nil
}

func (s *cartService) SetQuantity(ctx context.Context, userID, productID uint, qty int) (domain.CartItem, error) {
	if qty < 1 {
		return domain.CartItem{}, domain.NewValidationError("quantity", "quantity must be at least 1")
	}

	customerID, err := s.customerID(ctx, userID)
	if err != nil {
		return domain.CartItem{}, err
	}

	item, err := s.cartRepo.SetQuantity(ctx, customerID, productID, qty)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Error("Failed to update cart item", err, "customer_id", customerID)
		}
		return domain.CartItem{}, err
	}

	return item, nil
}

func (s *cartService) RemoveItem(ctx context.Context, userID, productID uint) error {
	customerID, err := s.customerID(ctx, userID)
	if err != nil {
		return err
	}

	return s.cartRepo.RemoveItem(ctx, customerID, productID)
}

func (s *cartService) GetCart(ctx context.Context, userID uint) ([]domain.CartItem, error) {
	customerID, err := s.customerID(ctx, userID)
	if err != nil {
		return nil, err
	}

	items, err := s.cartRepo.FindByCustomer(ctx, customerID)
	if err != nil {
		logger.Error("Failed to get cart", err, "customer_id", customerID)
		return nil, err
	}

	return items, nil
}

func (s *cartService) ClearCart(ctx context.Context, userID uint) error {
	customerID, err := s.customerID(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.cartRepo.ClearByCustomer(ctx, customerID); err != nil {
		logger.Error("Failed to clear cart", err, "customer_id", customerID)
		return err
	}

	return nil
}

func (s *cartService) customerID(ctx context.Context, userID uint) (uint, error) {
	customer, err := s.customerRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrCustomerNotFound) {
			return 0, domain.ErrCustomerMissing
		}
		logger.Error("Failed to find customer", err)
		return 0, err
	}

	return customer.ID, nil
}
