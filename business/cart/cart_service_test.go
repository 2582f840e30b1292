package cart

import (
	"context"
	"errors"
	"testing"

	"storefront/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cartKey struct {
	customerID, productID uint
}

type fakeCartRepo struct {
	items map[cartKey]int
}

func (r *fakeCartRepo) AddItem(ctx context.Context, customerID, productID uint, qty int) (domain.CartItem, error) {
	k := cartKey{customerID, productID}
	r.items[k] += qty
	return domain.CartItem{CustomerID: customerID, ProductID: productID, Quantity: r.items[k]}, nil
}

func (r *fakeCartRepo) SetQuantity(ctx context.Context, customerID, productID uint, qty int) (domain.CartItem, error) {
	k := cartKey{customerID, productID}
	if _, ok := r.items[k]; !ok {
		return domain.CartItem{}, domain.ErrCartItemNotFound
	}
	r.items[k] = qty
	return domain.CartItem{CustomerID: customerID, ProductID: productID, Quantity: qty}, nil
}

func (r *fakeCartRepo) RemoveItem(ctx context.Context, customerID, productID uint) error {
	k := cartKey{customerID, productID}
	if _, ok := r.items[k]; !ok {
		return domain.ErrCartItemNotFound
	}
	delete(r.items, k)
	return nil
}

func (r *fakeCartRepo) FindByCustomer(ctx context.Context, customerID uint) ([]domain.CartItem, error) {
	var items []domain.CartItem
	for k, qty := range r.items {
		if k.customerID == customerID {
			items = append(items, domain.CartItem{CustomerID: customerID, ProductID: k.productID, Quantity: qty})
		}
	}
	return items, nil
}

func (r *fakeCartRepo) ClearByCustomer(ctx context.Context, customerID uint) error {
	for k := range r.items {
		if k.customerID == customerID {
			delete(r.items, k)
		}
	}
	return nil
}

type fakeProductRepo struct{}

func (fakeProductRepo) FindByID(ctx context.Context, id uint) (domain.Product, error) {
	if id != 1 && id != 2 {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return domain.Product{ID: id}, nil
}

type fakeCustomerRepo struct{}

func (fakeCustomerRepo) FindByUserID(ctx context.Context, userID uint) (domain.Customer, error) {
	if userID != 7 {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	return domain.Customer{ID: 70, UserID: 7}, nil
}

func newService() (*cartService, *fakeCartRepo) {
	repo := &fakeCartRepo{items: map[cartKey]int{}}
	return NewCartService(repo, fakeProductRepo{}, fakeCustomerRepo{}), repo
}

func TestCartService_AddItemAccumulates(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, 7, 1, 2)
	require.NoError(t, err)
	item, err := svc.AddItem(ctx, 7, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, item.Quantity)
	assert.Equal(t, uint(70), item.CustomerID)

	items, err := svc.GetCart(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestCartService_Validation(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	var verr *domain.ValidationError
	_, err := svc.AddItem(ctx, 7, 1, 0)
	assert.True(t, errors.As(err, &verr))

	_, err = svc.AddItem(ctx, 7, 0, 1)
	assert.True(t, errors.As(err, &verr))

	_, err = svc.AddItem(ctx, 7, 404, 1)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	_, err = svc.AddItem(ctx, 8, 1, 1)
	assert.ErrorIs(t, err, domain.ErrCustomerMissing)

	_, err = svc.SetQuantity(ctx, 7, 1, 0)
	assert.True(t, errors.As(err, &verr))
}

func TestCartService_SetRemoveClear(t *testing.T) {
	svc, repo := newService()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, 7, 1, 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, 7, 2, 1)
	require.NoError(t, err)

	item, err := svc.SetQuantity(ctx, 7, 1, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, item.Quantity)

	require.NoError(t, svc.RemoveItem(ctx, 7, 2))
	assert.ErrorIs(t, svc.RemoveItem(ctx, 7, 2), domain.ErrCartItemNotFound)

	require.NoError(t, svc.ClearCart(ctx, 7))
	assert.Empty(t, repo.items)
}
