package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/domain"

	"gorm.io/gorm"
)

type OrdersRepository struct {
	DB *gorm.DB
}

func NewOrdersRepository(db *gorm.DB) *OrdersRepository {
	return &OrdersRepository{
		DB: db,
	}
}

// CreateOrder inserts the order together with its line items.
func (r *OrdersRepository) CreateOrder(ctx context.Context, order *domain.Orders) error {
	if err := conn(ctx, r.DB).Omit("Customer").Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

func (r *OrdersRepository) GetAllOrders(ctx context.Context) ([]domain.Orders, error) {
	var orders []domain.Orders
	err := conn(ctx, r.DB).
		Preload("OrderItems").
		Preload("Customer").
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find orders: %w", err)
	}

	return orders, nil
}

func (r *OrdersRepository) GetOrdersByCustomer(ctx context.Context, customerID uint) ([]domain.Orders, error) {
	var orders []domain.Orders
	err := conn(ctx, r.DB).
		Preload("OrderItems").
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find orders: %w", err)
	}

	return orders, nil
}

// GetOrder loads the order with its items, customer and the customer's
// account (the account email is where receipts go).
func (r *OrdersRepository) GetOrder(ctx context.Context, orderID uint) (domain.Orders, error) {
	var order domain.Orders
	err := conn(ctx, r.DB).
		Preload("OrderItems").
		Preload("Customer.User").
		First(&order, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Orders{}, domain.ErrOrderNotFound
		}
		return domain.Orders{}, fmt.Errorf("failed to find order: %w", err)
	}

	return order, nil
}

// UpdateOrderStatus moves the order from one status to the next. The write
// only applies while the order is still in from, so of two concurrent
// updates only one succeeds and the other gets ErrInvalidStatusTransition.
func (r *OrdersRepository) UpdateOrderStatus(ctx context.Context, orderID uint, from, to domain.OrderStatus) error {
	db := conn(ctx, r.DB)

	row := db.Model(&domain.Orders{}).
		Where("id = ? AND order_status = ?", orderID, from).
		Update("order_status", to)
	if err := row.Error; err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	if row.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := db.Model(&domain.Orders{}).Where("id = ?", orderID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to find order: %w", err)
	}
	if count == 0 {
		return domain.ErrOrderNotFound
	}

	return fmt.Errorf("%w: order %d is no longer %s", domain.ErrInvalidStatusTransition, orderID, from)
}

// GetOrderTotals returns creation time and grand total for orders created
// in [from, to].
func (r *OrdersRepository) GetOrderTotals(ctx context.Context, from, to time.Time) ([]domain.OrderTotal, error) {
	var totals []domain.OrderTotal
	err := conn(ctx, r.DB).Model(&domain.Orders{}).
		Select("created_at", "total_price").
		Where("created_at BETWEEN ? AND ?", from, to).
		Order("created_at").
		Scan(&totals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate orders: %w", err)
	}

	return totals, nil
}
