package postgres

import (
	"context"
	"errors"
	"fmt"

	"storefront/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartRepository struct {
	DB *gorm.DB
}

func NewCartRepository(db *gorm.DB) *CartRepository {
	return &CartRepository{DB: db}
}

// AddItem inserts the (customer, product) row or adds qty to the existing
// one, relying on the composite unique index.
func (r *CartRepository) AddItem(ctx context.Context, customerID, productID uint, qty int) (domain.CartItem, error) {
	item := domain.CartItem{
		CustomerID: customerID,
		ProductID:  productID,
		Quantity:   qty,
	}

	err := conn(ctx, r.DB).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "customer_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity": gorm.Expr("cart_items.quantity + ?", qty),
			}),
		}).
		Create(&item).Error
	if err != nil {
		return domain.CartItem{}, fmt.Errorf("failed to add cart item: %w", err)
	}

	return r.find(ctx, customerID, productID)
}

func (r *CartRepository) SetQuantity(ctx context.Context, customerID, productID uint, qty int) (domain.CartItem, error) {
	result := conn(ctx, r.DB).Model(&domain.CartItem{}).
		Where("customer_id = ? AND product_id = ?", customerID, productID).
		Update("quantity", qty)
	if result.Error != nil {
		return domain.CartItem{}, fmt.Errorf("failed to update cart item: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.CartItem{}, domain.ErrCartItemNotFound
	}

	return r.find(ctx, customerID, productID)
}

func (r *CartRepository) RemoveItem(ctx context.Context, customerID, productID uint) error {
	result := conn(ctx, r.DB).
		Where("customer_id = ? AND product_id = ?", customerID, productID).
		Delete(&domain.CartItem{})
	if result.Error != nil {
		return fmt.Errorf("failed to remove cart item: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.ErrCartItemNotFound
	}

	return nil
}

func (r *CartRepository) FindByCustomer(ctx context.Context, customerID uint) ([]domain.CartItem, error) {
	var items []domain.CartItem

	err := conn(ctx, r.DB).Preload("Product").
		Where("customer_id = ?", customerID).
		Order("id").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find cart items: %w", err)
	}

	return items, nil
}

func (r *CartRepository) ClearByCustomer(ctx context.Context, customerID uint) error {
	err := conn(ctx, r.DB).Where("customer_id = ?", customerID).Delete(&domain.CartItem{}).Error
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	return nil
}

func (r *CartRepository) find(ctx context.Context, customerID, productID uint) (domain.CartItem, error) {
	var item domain.CartItem

	err := conn(ctx, r.DB).Preload("Product").
		Where("customer_id = ? AND product_id = ?", customerID, productID).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.CartItem{}, domain.ErrCartItemNotFound
		}
		return domain.CartItem{}, fmt.Errorf("failed to find cart item: %w", err)
	}

	return item, nil
}
