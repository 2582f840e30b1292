package product

import (
	"context"
	"errors"
	"sync"
	"testing"

	"storefront/domain"
	"storefront/pkg/utils"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProductRepo struct {
	mu        sync.Mutex
	products  map[uint]domain.Product
	nextID    uint
	createErr error
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{products: map[uint]domain.Product{}}
}

func (r *fakeProductRepo) Create(ctx context.Context, product *domain.Product) error {
	if r.createErr != nil {
		return r.createErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	product.ID = r.nextID
	r.products[product.ID] = *product
	return nil
}

func (r *fakeProductRepo) FindByID(ctx context.Context, id uint) (domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

func (r *fakeProductRepo) FindAll(ctx context.Context) ([]domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]domain.Product, 0, len(r.products))
	for id := uint(1); id <= r.nextID; id++ {
		if p, ok := r.products[id]; ok {
			all = append(all, p)
		}
	}
	return all, nil
}

func (r *fakeProductRepo) Update(ctx context.Context, product *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.products[product.ID]
	if !ok {
		return domain.ErrProductNotFound
	}
	stored := *product
	stored.Stock = existing.Stock
	r.products[product.ID] = stored
	return nil
}

func (r *fakeProductRepo) AdjustStock(ctx context.Context, id uint, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	if p.Stock+delta < 0 {
		return &domain.StockError{ProductID: id, Requested: -delta}
	}
	p.Stock += delta
	r.products[id] = p
	return nil
}

// sell stands in for an order placed while an admin edits the product.
func (r *fakeProductRepo) sell(id uint, qty int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.products[id]
	p.Stock -= qty
	r.products[id] = p
}

func (r *fakeProductRepo) Delete(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(r.products, id)
	return nil
}

type fakeImages struct {
	uploaded []string
	deleted  []string
}

func (f *fakeImages) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	url := "/uploads/" + filename
	f.uploaded = append(f.uploaded, url)
	return url, nil
}

func (f *fakeImages) Delete(ctx context.Context, url string) error {
	f.deleted = append(f.deleted, url)
	return nil
}

func kale() ProductInput {
	return ProductInput{
		Name:     "Kale",
		Brand:    "Green Farm",
		Category: "Vegetables",
		Price:    decimal.RequireFromString("2.50"),
		Stock:    10,
	}
}

func TestProductService_CreateAndGet(t *testing.T) {
	repo := newFakeProductRepo()
	images := &fakeImages{}
	svc := NewProductService(repo, images, utils.NewValidator())
	ctx := context.Background()

	in := kale()
	in.Image = &ImageUpload{Filename: "kale.png", Data: []byte("png")}

	created, err := svc.CreateProduct(ctx, in)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "/uploads/kale.png", created.Image)

	got, err := svc.GetProductByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kale", got.Name)

	all, err := svc.GetAllProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = svc.GetProductByID(ctx, 99)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestProductService_CreateValidation(t *testing.T) {
	svc := NewProductService(newFakeProductRepo(), &fakeImages{}, utils.NewValidator())
	ctx := context.Background()

	noName := kale()
	noName.Name = ""
	_, err := svc.CreateProduct(ctx, noName)
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"name"}, verr.Fields)

	negativeStock := kale()
	negativeStock.Stock = -1
	_, err = svc.CreateProduct(ctx, negativeStock)
	require.True(t, errors.As(err, &verr))

	negativePrice := kale()
	negativePrice.Price = decimal.RequireFromString("-0.01")
	_, err = svc.CreateProduct(ctx, negativePrice)
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"price"}, verr.Fields)
}

func TestProductService_CreateFailureDiscardsImage(t *testing.T) {
	repo := newFakeProductRepo()
	repo.createErr = errors.New("db down")
	images := &fakeImages{}
	svc := NewProductService(repo, images, utils.NewValidator())

	in := kale()
	in.Image = &ImageUpload{Filename: "kale.png", Data: []byte("png")}

	_, err := svc.CreateProduct(context.Background(), in)
	require.Error(t, err)
	assert.Equal(t, []string{"/uploads/kale.png"}, images.deleted)
}

func ptr[T any](v T) *T {
	return &v
}

func TestProductService_UpdateReplacesImage(t *testing.T) {
	repo := newFakeProductRepo()
	images := &fakeImages{}
	svc := NewProductService(repo, images, utils.NewValidator())
	ctx := context.Background()

	in := kale()
	in.Image = &ImageUpload{Filename: "old.png", Data: []byte("png")}
	created, err := svc.CreateProduct(ctx, in)
	require.NoError(t, err)

	updated, err := svc.UpdateProduct(ctx, created.ID, ProductUpdate{
		Image: &ImageUpload{Filename: "new.png", Data: []byte("png")},
	})
	require.NoError(t, err)

	assert.Equal(t, "/uploads/new.png", updated.Image)
	assert.Equal(t, []string{"/uploads/old.png"}, images.deleted)

	_, err = svc.UpdateProduct(ctx, 99, ProductUpdate{Name: ptr("Chard")})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestProductService_UpdateKeepsOmittedFieldsAndStock(t *testing.T) {
	repo := newFakeProductRepo()
	svc := NewProductService(repo, &fakeImages{}, utils.NewValidator())
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, kale())
	require.NoError(t, err)

	// units sold after the admin opened the edit form stay sold
	repo.sell(created.ID, 4)

	updated, err := svc.UpdateProduct(ctx, created.ID, ProductUpdate{Name: ptr("Curly Kale")})
	require.NoError(t, err)

	assert.Equal(t, "Curly Kale", updated.Name)
	assert.Equal(t, "Green Farm", updated.Brand)
	assert.True(t, updated.Price.Equal(decimal.RequireFromString("2.50")))
	assert.Equal(t, 6, updated.Stock)

	updated, err = svc.UpdateProduct(ctx, created.ID, ProductUpdate{Price: ptr(decimal.RequireFromString("3.10"))})
	require.NoError(t, err)
	assert.Equal(t, "Curly Kale", updated.Name)
	assert.True(t, updated.Price.Equal(decimal.RequireFromString("3.10")))
}

func TestProductService_UpdateValidation(t *testing.T) {
	svc := NewProductService(newFakeProductRepo(), &fakeImages{}, utils.NewValidator())
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, kale())
	require.NoError(t, err)

	var verr *domain.ValidationError

	_, err = svc.UpdateProduct(ctx, created.ID, ProductUpdate{Name: ptr("")})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"name"}, verr.Fields)

	_, err = svc.UpdateProduct(ctx, created.ID, ProductUpdate{Price: ptr(decimal.RequireFromString("-1"))})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"price"}, verr.Fields)
}

func TestProductService_RestockAppliesDelta(t *testing.T) {
	repo := newFakeProductRepo()
	svc := NewProductService(repo, &fakeImages{}, utils.NewValidator())
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, kale())
	require.NoError(t, err)
	repo.sell(created.ID, 10)

	restocked, err := svc.RestockProduct(ctx, created.ID, 25)
	require.NoError(t, err)
	assert.Equal(t, 25, restocked.Stock)

	restocked, err = svc.RestockProduct(ctx, created.ID, -5)
	require.NoError(t, err)
	assert.Equal(t, 20, restocked.Stock)

	_, err = svc.RestockProduct(ctx, created.ID, -21)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	var verr *domain.ValidationError
	_, err = svc.RestockProduct(ctx, created.ID, 0)
	assert.True(t, errors.As(err, &verr))

	_, err = svc.RestockProduct(ctx, 99, 1)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestProductService_Delete(t *testing.T) {
	repo := newFakeProductRepo()
	svc := NewProductService(repo, &fakeImages{}, utils.NewValidator())
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, kale())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProduct(ctx, created.ID))
	assert.ErrorIs(t, svc.DeleteProduct(ctx, created.ID), domain.ErrProductNotFound)

	var verr *domain.ValidationError
	assert.True(t, errors.As(svc.DeleteProduct(ctx, 0), &verr))
}
