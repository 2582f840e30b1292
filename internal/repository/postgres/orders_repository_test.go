package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrder(customerID uint, product domain.Product, qty int, createdAt time.Time) domain.Orders {
	return domain.Orders{
		CustomerID: customerID,
		ShippingInfo: domain.ShippingInfo{
			Address:    "12 Market St",
			City:       "Springfield",
			PostalCode: "1234",
			Country:    "PH",
		},
		OrderTotals: domain.OrderTotals{
			ItemsPrice:    product.Price.Mul(decimal.NewFromInt(int64(qty))),
			TaxPrice:      decimal.Zero,
			ShippingPrice: decimal.Zero,
			TotalPrice:    product.Price.Mul(decimal.NewFromInt(int64(qty))),
		},
		OrderStatus: domain.OrderStatusProcessing,
		CreatedAt:   createdAt,
		OrderItems: []domain.OrderItem{{
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  qty,
			Price:     product.Price,
		}},
	}
}

func TestProductRepository_DecrementStock(t *testing.T) {
	db := newTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	product := seedProduct(t, db, "Kale", "2.50", 5)

	require.NoError(t, repo.DecrementStock(ctx, product.ID, 3))

	err := repo.DecrementStock(ctx, product.ID, 3)
	var stockErr *domain.StockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, product.ID, stockErr.ProductID)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	reloaded, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Stock)

	require.NoError(t, repo.DecrementStock(ctx, product.ID, 2))
	reloaded, err = repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.Stock)

	assert.ErrorIs(t, repo.DecrementStock(ctx, 999, 1), domain.ErrProductNotFound)
}

func TestTransactor_RollsBackOrderOnStockFailure(t *testing.T) {
	db := newTestDB(t)
	tx := NewTransactor(db)
	orders := NewOrdersRepository(db)
	products := NewProductRepository(db)
	ctx := context.Background()

	user := seedUser(t, db, "jane@example.com")
	customer := seedCustomer(t, db, user.ID)
	plenty := seedProduct(t, db, "Kale", "2.50", 10)
	scarce := seedProduct(t, db, "Truffle", "99.00", 1)

	err := tx.WithinTransaction(ctx, func(ctx context.Context) error {
		order := newOrder(customer.ID, plenty, 2, time.Now().UTC())
		if err := orders.CreateOrder(ctx, &order); err != nil {
			return err
		}
		if err := products.DecrementStock(ctx, plenty.ID, 2); err != nil {
			return err
		}
		return products.DecrementStock(ctx, scarce.ID, 2)
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	all, err := orders.GetAllOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	reloaded, err := products.FindByID(ctx, plenty.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, reloaded.Stock)
}

func TestOrdersRepository_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrdersRepository(db)
	ctx := context.Background()

	user := seedUser(t, db, "jane@example.com")
	customer := seedCustomer(t, db, user.ID)
	product := seedProduct(t, db, "Kale", "2.50", 10)

	order := newOrder(customer.ID, product, 2, time.Now().UTC())
	require.NoError(t, repo.CreateOrder(ctx, &order))
	require.NotZero(t, order.ID)

	found, err := repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusProcessing, found.OrderStatus)
	require.Len(t, found.OrderItems, 1)
	assert.Equal(t, "Kale", found.OrderItems[0].Name)
	assert.True(t, found.TotalPrice.Equal(decimal.RequireFromString("5")))
	require.NotNil(t, found.Customer)
	require.NotNil(t, found.Customer.User)
	assert.Equal(t, "jane@example.com", found.Customer.User.Email)

	mine, err := repo.GetOrdersByCustomer(ctx, customer.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	_, err = repo.GetOrder(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestOrdersRepository_UpdateOrderStatus(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrdersRepository(db)
	ctx := context.Background()

	user := seedUser(t, db, "jane@example.com")
	customer := seedCustomer(t, db, user.ID)
	product := seedProduct(t, db, "Kale", "2.50", 10)

	order := newOrder(customer.ID, product, 1, time.Now().UTC())
	require.NoError(t, repo.CreateOrder(ctx, &order))

	require.NoError(t, repo.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusProcessing, domain.OrderStatusShipped))

	found, err := repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusShipped, found.OrderStatus)

	err = repo.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusProcessing, domain.OrderStatusCancelled)
	assert.ErrorIs(t, err, domain.ErrInvalidStatusTransition)

	assert.ErrorIs(t, repo.UpdateOrderStatus(ctx, 999, domain.OrderStatusProcessing, domain.OrderStatusShipped), domain.ErrOrderNotFound)
}

func TestOrdersRepository_GetOrderTotals(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrdersRepository(db)
	ctx := context.Background()

	user := seedUser(t, db, "jane@example.com")
	customer := seedCustomer(t, db, user.ID)
	product := seedProduct(t, db, "Kale", "10.00", 100)

	for _, createdAt := range []time.Time{
		time.Date(2023, 12, 15, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC),
		time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC),
	} {
		order := newOrder(customer.ID, product, 1, createdAt)
		require.NoError(t, repo.CreateOrder(ctx, &order))
	}

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC)

	totals, err := repo.GetOrderTotals(ctx, from, to)
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.Equal(t, time.January, totals[0].CreatedAt.Month())
	assert.Equal(t, time.March, totals[1].CreatedAt.Month())
	assert.True(t, totals[0].TotalPrice.Equal(decimal.NewFromInt(10)))
}
