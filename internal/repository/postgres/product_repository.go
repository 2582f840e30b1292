package postgres

import (
	"context"
	"errors"
	"fmt"

	"storefront/domain"

	"gorm.io/gorm"
)

type ProductRepository struct {
	DB *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{
		DB: db,
	}
}

func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := conn(ctx, r.DB).Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

func (r *ProductRepository) FindByID(ctx context.Context, id uint) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, fmt.Errorf("context error: %w", err)
	}

	var product domain.Product

	err := conn(ctx, r.DB).First(&product, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("failed to find product: %w", err)
	}

	return product, nil
}

func (r *ProductRepository) FindAll(ctx context.Context) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var products []domain.Product
	err := conn(ctx, r.DB).Order("id").Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}

	return products, nil
}

// Update writes the catalog fields of the product. Stock is left alone;
// it only moves through DecrementStock and AdjustStock.
func (r *ProductRepository) Update(ctx context.Context, product *domain.Product) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	updateData := map[string]interface{}{
		"name":        product.Name,
		"description": product.Description,
		"brand":       product.Brand,
		"category":    product.Category,
		"image":       product.Image,
		"price":       product.Price,
	}

	db := conn(ctx, r.DB)

	result := db.Model(&domain.Product{}).Where("id = ?", product.ID).Updates(updateData)
	if result.Error != nil {
		return fmt.Errorf("failed to update product: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// mysql reports zero affected rows when nothing changed
	var count int64
	if err := db.Model(&domain.Product{}).Where("id = ?", product.ID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to find product: %w", err)
	}
	if count == 0 {
		return domain.ErrProductNotFound
	}

	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id uint) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	result := conn(ctx, r.DB).Delete(&domain.Product{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrProductNotFound
	}

	return nil
}

// DecrementStock subtracts qty in a single conditional UPDATE. The row lock
// taken by the UPDATE serializes concurrent orders for the same product, and
// the stock >= qty guard means a losing order sees zero affected rows instead
// of driving stock negative.
func (r *ProductRepository) DecrementStock(ctx context.Context, id uint, qty int) error {
	if qty <= 0 {
		return domain.NewValidationError("quantity", "quantity must be at least 1")
	}

	db := conn(ctx, r.DB)

	result := db.Model(&domain.Product{}).
		Where("id = ? AND stock >= ?", id, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if result.Error != nil {
		return fmt.Errorf("failed to decrement stock: %w", result.Error)
	}

	if result.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := db.Model(&domain.Product{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to find product: %w", err)
	}
	if count == 0 {
		return domain.ErrProductNotFound
	}

	return &domain.StockError{ProductID: id, Requested: qty}
}

// AdjustStock adds delta to the current stock in a single conditional
// UPDATE, so units sold in the meantime are kept. A negative delta larger
// than the stock on hand is refused with a StockError.
func (r *ProductRepository) AdjustStock(ctx context.Context, id uint, delta int) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	db := conn(ctx, r.DB)

	result := db.Model(&domain.Product{}).
		Where("id = ? AND stock + ? >= 0", id, delta).
		UpdateColumn("stock", gorm.Expr("stock + ?", delta))
	if result.Error != nil {
		return fmt.Errorf("failed to adjust stock: %w", result.Error)
	}

	if result.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := db.Model(&domain.Product{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to find product: %w", err)
	}
	if count == 0 {
		return domain.ErrProductNotFound
	}

	return &domain.StockError{ProductID: id, Requested: -delta}
}
